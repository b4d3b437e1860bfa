package api

import (
	"net/http"

	"github.com/t2bot/image-backup-proxy/common/rcontext"
)

func NotFoundHandler(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return NotFoundError()
}

func MethodNotAllowedHandler(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return MethodNotAllowed()
}

func EmptyResponseHandler(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return &EmptyResponse{}
}
