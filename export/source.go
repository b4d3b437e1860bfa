package export

import (
	"encoding/json"

	"github.com/t2bot/image-backup-proxy/cloudinary"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/types"
)

// Source is the remote side of an export. *cloudinary.Client satisfies it.
type Source interface {
	ListResources(ctx rcontext.RequestContext, opts cloudinary.ListOptions) (*types.ResourcePage, error)
	DownloadContent(ctx rcontext.RequestContext, contentUrl string, maxBytes int64) ([]byte, error)
	GetResourceDetails(ctx rcontext.RequestContext, assetId string) (json.RawMessage, error)
}

var _ Source = (*cloudinary.Client)(nil)
