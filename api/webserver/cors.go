package webserver

import (
	"net/http"

	"github.com/ryanuber/go-glob"
)

// originPolicy decides which browser origins may call the service. Requests
// without an Origin header (curl, server-to-server) are always allowed.
type originPolicy struct {
	allowed []string
}

func newOriginPolicy(allowed []string) *originPolicy {
	patterns := make([]string, 0, len(allowed))
	for _, o := range allowed {
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	return &originPolicy{allowed: patterns}
}

func (p *originPolicy) IsAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, pattern := range p.allowed {
		if glob.Glob(pattern, origin) {
			return true
		}
	}
	return false
}

func (p *originPolicy) writeHeaders(w http.ResponseWriter, origin string) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "SAMEORIGIN")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
	}
}
