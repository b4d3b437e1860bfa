package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var HttpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "imageproxy_http_requests_total",
}, []string{"action", "method"})
var HttpResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "imageproxy_http_responses_total",
}, []string{"action", "method", "statusCode"})
var HttpResponseTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "imageproxy_http_response_time_seconds",
}, []string{"action", "method"})
var ExportRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "imageproxy_export_runs_total",
}, []string{"mode", "result"})
var ExportAssets = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "imageproxy_export_assets_total",
}, []string{"result"})
var RemoteApiCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "imageproxy_remote_api_calls_total",
}, []string{"operation", "result"})
var ListingCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "imageproxy_listing_cache_total",
}, []string{"result"})

func init() {
	prometheus.MustRegister(HttpRequests)
	prometheus.MustRegister(HttpResponses)
	prometheus.MustRegister(HttpResponseTime)
	prometheus.MustRegister(ExportRuns)
	prometheus.MustRegister(ExportAssets)
	prometheus.MustRegister(RemoteApiCalls)
	prometheus.MustRegister(ListingCacheHits)
}

func CallResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
