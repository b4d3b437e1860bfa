package cloudinary

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/types"
)

type ListOptions struct {
	MaxResults     int
	NextCursor     string
	IncludeContext bool
}

// ListResources fetches one page of image resources.
func (c *Client) ListResources(ctx rcontext.RequestContext, opts ListOptions) (*types.ResourcePage, error) {
	query := url.Values{}
	if opts.MaxResults > 0 {
		query.Set("max_results", strconv.Itoa(opts.MaxResults))
	}
	if opts.NextCursor != "" {
		query.Set("next_cursor", opts.NextCursor)
	}
	if opts.IncludeContext {
		query.Set("context", "true")
	}

	page := &types.ResourcePage{}
	err := c.doRequest(ctx, "list_resources", http.MethodGet, c.apiUrl("resources/image", query), nil, true, page)
	if err != nil {
		return nil, err
	}
	if page.Resources == nil {
		page.Resources = make([]*types.ResourceRecord, 0)
	}
	return page, nil
}

// GetResourceDetails returns the full admin API payload for one asset, untouched.
func (c *Client) GetResourceDetails(ctx rcontext.RequestContext, assetId string) (json.RawMessage, error) {
	var details json.RawMessage
	err := c.doRequest(ctx, "resource_details", http.MethodGet, c.apiUrl("resources/"+url.PathEscape(assetId), nil), nil, true, &details)
	if err != nil {
		return nil, err
	}
	return details, nil
}
