package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alioygur/is"
	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sebest/xff"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/api"
	"github.com/t2bot/image-backup-proxy/common"
	"github.com/t2bot/image-backup-proxy/common/config"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/metrics"
	"github.com/t2bot/image-backup-proxy/util"
)

type handler struct {
	h          func(r *http.Request, ctx rcontext.RequestContext) interface{}
	action     string
	reqCounter *requestCounter
	conf       *config.MainConfig
	origins    *originPolicy
}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var raddr string
	if h.conf.General.TrustAnyForward {
		raddr = r.Header.Get("X-Forwarded-For")
	} else {
		raddr = xff.GetRemoteAddr(r)
	}
	if raddr == "" {
		raddr = r.RemoteAddr
	}
	host, _, err := net.SplitHostPort(raddr)
	if err != nil {
		host = raddr
	}
	r.RemoteAddr = host

	requestId := h.reqCounter.GetNextId()
	contextLog := logrus.WithFields(logrus.Fields{
		"method":        r.Method,
		"resource":      r.URL.Path,
		"contentType":   r.Header.Get("Content-Type"),
		"contentLength": r.ContentLength,
		"queryString":   util.GetLogSafeQueryString(r),
		"requestId":     requestId,
		"remoteAddr":    r.RemoteAddr,
	})
	contextLog.Info("Received request")

	metrics.HttpRequests.With(prometheus.Labels{
		"action": h.action,
		"method": r.Method,
	}).Inc()
	defer func() {
		metrics.HttpResponseTime.With(prometheus.Labels{
			"action": h.action,
			"method": r.Method,
		}).Observe(time.Since(startTime).Seconds())
	}()

	streaming := false
	defer func() {
		if err := recover(); err != nil {
			if err == http.ErrAbortHandler {
				panic(err)
			}
			contextLog.Errorf("Panic received on %s %s: %v", r.Method, r.URL.Path, err)
			sentry.CaptureException(util.PanicToError(err))
			if streaming {
				panic(http.ErrAbortHandler)
			}
			h.respondJson(w, r, contextLog, api.InternalServerError("unexpected error"))
		}
	}()

	origin := r.Header.Get("Origin")
	var res interface{}
	if !h.origins.IsAllowed(origin) {
		contextLog.Warnf("Rejecting request: %s: %s", common.ErrOriginNotAllowed, origin)
		h.origins.writeHeaders(w, "")
		res = api.OriginNotAllowed()
	} else {
		h.origins.writeHeaders(w, origin)
		w.Header().Set("Server", "image-backup-proxy")

		ctx := rcontext.Wrap(r.Context(), contextLog)
		ctx.Context = context.WithValue(ctx.Context, common.ContextAction, h.action)
		ctx.Context = context.WithValue(ctx.Context, common.ContextRequestId, requestId)
		r = r.WithContext(ctx)

		res = h.h(r, ctx)
		if res == nil {
			res = &api.EmptyResponse{}
		}
	}

	switch result := res.(type) {
	case *api.DoNotCacheResponse:
		w.Header().Set("Cache-Control", "no-store")
		res = result.Payload
	case *api.TextResponse:
		contextLog.Info("Replying with text result")
		h.countResponse(r, http.StatusOK)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, result.Text)
		return
	case *api.StreamResponse:
		contextLog.Info("Replying with stream result: ", result.Filename)
		h.countResponse(r, http.StatusOK)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", result.ContentType)
		if result.Filename != "" {
			w.Header().Set("Content-Disposition", contentDisposition("attachment", result.Filename))
		}
		w.WriteHeader(http.StatusOK)
		streaming = true
		if err := result.WriteTo(w); err != nil {
			// the status line is already out, so the client can only learn
			// about this from a truncated body
			contextLog.Error("Error streaming response: ", err)
			panic(http.ErrAbortHandler)
		}
		return
	}

	h.respondJson(w, r, contextLog, res)
}

func (h handler) respondJson(w http.ResponseWriter, r *http.Request, log *logrus.Entry, res interface{}) {
	statusCode := http.StatusOK
	if errRes, ok := res.(*api.ErrorResponse); ok {
		statusCode = statusCodeFor(errRes)
	}
	log.Info(fmt.Sprintf("Replying with result: %T (status %d)", res, statusCode))
	h.countResponse(r, statusCode)

	// Order is important: Set headers before sending responses
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(res); err != nil {
		log.Warn("Error writing response: ", err)
	}
}

func (h handler) countResponse(r *http.Request, statusCode int) {
	metrics.HttpResponses.With(prometheus.Labels{
		"action":     h.action,
		"method":     r.Method,
		"statusCode": strconv.Itoa(statusCode),
	}).Inc()
}

func statusCodeFor(res *api.ErrorResponse) int {
	switch res.InternalCode {
	case common.ErrCodeNotFound:
		return http.StatusNotFound
	case common.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case common.ErrCodeBadRequest:
		return http.StatusBadRequest
	case common.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case common.ErrCodeForbidden:
		return http.StatusForbidden
	case common.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case common.ErrCodeExportInProgress:
		return http.StatusConflict
	case common.ErrCodeUpstream:
		return http.StatusBadGateway
	default: // Treat as unknown (a generic server error)
		return http.StatusInternalServerError
	}
}

func contentDisposition(disposition string, fname string) string {
	if is.ASCII(fname) {
		return disposition + `; filename="` + strings.ReplaceAll(fname, `"`, `\"`) + `"`
	}
	return disposition + "; filename*=utf-8''" + url.PathEscape(fname)
}
