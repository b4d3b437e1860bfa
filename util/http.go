package util

import (
	"net/http"
	"net/url"
)

var redactedQueryParams = []string{"api_key", "api_secret", "signature", "access_token"}

func GetLogSafeQueryString(r *http.Request) string {
	return LogSafeQuery(r.URL.Query())
}

func LogSafeQuery(qs url.Values) string {
	for _, k := range redactedQueryParams {
		if qs.Get(k) != "" {
			qs.Set(k, "redacted")
		}
	}
	return qs.Encode()
}
