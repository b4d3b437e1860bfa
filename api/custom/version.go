package custom

import (
	"net/http"

	"github.com/t2bot/image-backup-proxy/api"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/common/version"
)

func GetVersion(r *http.Request, rctx rcontext.RequestContext) interface{} {
	version.SetDefaults()
	return &api.DoNotCacheResponse{
		Payload: map[string]interface{}{
			"Version":   version.Version,
			"GitCommit": version.GitCommit,
		},
	}
}
