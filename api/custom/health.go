package custom

import (
	"net/http"

	"github.com/t2bot/image-backup-proxy/api"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
)

type HealthzResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
}

func GetHealthz(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return &api.DoNotCacheResponse{
		Payload: &HealthzResponse{
			OK:     true,
			Status: "Probably not dead",
		},
	}
}

func GetHello(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return &api.TextResponse{Text: "Hello World!"}
}
