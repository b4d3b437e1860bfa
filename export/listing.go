package export

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/cloudinary"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/types"
)

type ListParams struct {
	PageSize       int
	IncludeContext bool
}

// ListAll walks every page of the listing, in order, until the remote side
// stops returning a cursor. Any page error aborts the whole listing. Records
// seen on an earlier page are not repeated. A nil throttle does not pace pages.
func ListAll(ctx rcontext.RequestContext, source Source, throttle *Throttle, params ListParams) ([]*types.ResourceRecord, error) {
	records := make([]*types.ResourceRecord, 0)
	seen := make(map[string]bool)
	cursors := make(map[string]bool)
	cursor := ""
	pageNum := 0

	for {
		pageNum++
		var page *types.ResourcePage
		err := throttle.Do(ctx, func() error {
			var err error
			page, err = source.ListResources(ctx, cloudinary.ListOptions{
				MaxResults:     params.PageSize,
				NextCursor:     cursor,
				IncludeContext: params.IncludeContext,
			})
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "error listing page %d", pageNum)
		}

		for _, r := range page.Resources {
			if r == nil {
				continue
			}
			if r.AssetId != "" {
				if seen[r.AssetId] {
					ctx.Log.WithFields(logrus.Fields{"assetId": r.AssetId}).Debug("Dropping repeated record")
					continue
				}
				seen[r.AssetId] = true
			}
			records = append(records, r)
		}
		ctx.Log.Infof("Fetched %d images so far...", len(records))

		if page.NextCursor == "" {
			break
		}
		if cursors[page.NextCursor] {
			return nil, errors.Errorf("listing returned cursor %s more than once", page.NextCursor)
		}
		cursors[page.NextCursor] = true
		cursor = page.NextCursor
	}

	ctx.Log.Infof("Total resources found: %d", len(records))
	return records, nil
}
