package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/didip/tollbooth"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/api"
	"github.com/t2bot/image-backup-proxy/api/custom"
	"github.com/t2bot/image-backup-proxy/common/config"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
)

type route struct {
	path    string
	method  string
	handler handler
}

var srv *http.Server
var waitGroup = &sync.WaitGroup{}

func buildRoutes(conf *config.MainConfig, handlers *custom.Handlers) http.Handler {
	rtr := mux.NewRouter()
	counter := &requestCounter{}
	origins := newOriginPolicy(conf.Cors.AllowedOrigins)
	newHandler := func(fn func(r *http.Request, ctx rcontext.RequestContext) interface{}, action string) handler {
		return handler{fn, action, counter, conf, origins}
	}

	optionsHandler := newHandler(api.EmptyResponseHandler, "options_request")
	helloHandler := newHandler(custom.GetHello, "hello")
	healthzHandler := newHandler(custom.GetHealthz, "healthz")
	versionHandler := newHandler(custom.GetVersion, "version")
	listHandler := newHandler(handlers.ListImages, "list_images")
	uploadHandler := newHandler(handlers.UploadImage, "upload_image")
	pairedHandler := newHandler(handlers.ListPairedImages, "list_paired_images")
	exportHandler := newHandler(handlers.ExportImages, "export_images")

	routes := []route{
		{"/", "GET", helloHandler},
		{"/healthz", "GET", healthzHandler},
		{"/version", "GET", versionHandler},
		{"/export", "GET", exportHandler},
		{"/images", "GET", listHandler},
		{"/images", "POST", uploadHandler},
		{"/images/paired", "GET", pairedHandler},

		// older frontends use the singular path
		{"/image", "GET", listHandler},
		{"/image", "POST", uploadHandler},
	}

	optionsPaths := make(map[string]bool)
	for _, r := range routes {
		logrus.Info("Registering route: " + r.method + " " + r.path)
		rtr.Handle(r.path, r.handler).Methods(r.method)

		// This is a hack to a ensure that trailing slashes also match the routes correctly
		if r.path != "/" {
			rtr.Handle(r.path+"/", r.handler).Methods(r.method)
		}

		if !optionsPaths[r.path] {
			optionsPaths[r.path] = true
			rtr.Handle(r.path, optionsHandler).Methods("OPTIONS")
			if r.path != "/" {
				rtr.Handle(r.path+"/", optionsHandler).Methods("OPTIONS")
			}
		}
	}

	rtr.NotFoundHandler = newHandler(api.NotFoundHandler, "not_found")
	rtr.MethodNotAllowedHandler = newHandler(api.MethodNotAllowedHandler, "method_not_allowed")

	var handler http.Handler = rtr
	if conf.RateLimit.Enabled {
		logrus.Info("Enabling rate limit")
		limiter := tollbooth.NewLimiter(0, nil)
		limiter.SetIPLookups([]string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"})
		limiter.SetTokenBucketExpirationTTL(time.Hour)
		limiter.SetBurst(conf.RateLimit.BurstCount)
		limiter.SetMax(conf.RateLimit.RequestsPerSecond)

		b, _ := json.Marshal(api.RateLimitReached())
		limiter.SetMessage(string(b))
		limiter.SetMessageContentType("application/json")

		handler = tollbooth.LimitHandler(limiter, rtr)
	}
	return handler
}

func Init(conf *config.MainConfig, handlers *custom.Handlers) *sync.WaitGroup {
	address := net.JoinHostPort(conf.General.BindAddress, strconv.Itoa(conf.General.Port))
	handler := buildRoutes(conf, handlers)

	// Note: we bind Sentry here to ensure we capture *everything*
	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	srv = &http.Server{Addr: address, Handler: sentryHandler.Handle(handler)}

	waitGroup.Add(1)
	go func() {
		//goland:noinspection HttpUrlsUsage
		logrus.WithField("address", address).Info("Started up. Listening at http://" + address)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			logrus.Fatal(err)
		}
		srv = nil
		waitGroup.Done()
	}()

	return waitGroup
}

// Stop waits briefly for in-flight requests. Running exports are cut off.
func Stop() {
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logrus.Warn("Error shutting down web server: ", err)
			_ = srv.Close()
		}
	}
}
