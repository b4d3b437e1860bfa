package custom

import (
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/t2bot/image-backup-proxy/cloudinary"
	"github.com/t2bot/image-backup-proxy/common/config"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/export"
	"github.com/t2bot/image-backup-proxy/metrics"
	"github.com/t2bot/image-backup-proxy/types"
)

// Remote is the image host as seen by the HTTP handlers.
type Remote interface {
	export.Source
	Upload(ctx rcontext.RequestContext, upload cloudinary.UploadRequest) (*cloudinary.UploadResult, error)
}

const listingCacheKey = "all"

type Handlers struct {
	conf     *config.MainConfig
	remote   Remote
	listings *cache.Cache
	guard    *export.RunGuard
}

func NewHandlers(conf *config.MainConfig, remote Remote) *Handlers {
	ttl := conf.ListingCacheTtl()
	return &Handlers{
		conf:     conf,
		remote:   remote,
		listings: cache.New(ttl, ttl*2),
		guard:    &export.RunGuard{},
	}
}

// listing returns every record, served from the short-lived cache when possible.
func (h *Handlers) listing(rctx rcontext.RequestContext) ([]*types.ResourceRecord, error) {
	if h.conf.Listing.CacheSeconds > 0 {
		if cached, found := h.listings.Get(listingCacheKey); found {
			metrics.ListingCacheHits.With(prometheus.Labels{"result": "hit"}).Inc()
			return cached.([]*types.ResourceRecord), nil
		}
		metrics.ListingCacheHits.With(prometheus.Labels{"result": "miss"}).Inc()
	}

	records, err := export.ListAll(rctx, h.remote, nil, export.ListParams{
		PageSize:       h.conf.Cloudinary.PageSize,
		IncludeContext: h.conf.Listing.IncludeContext,
	})
	if err != nil {
		return nil, err
	}
	if h.conf.Listing.SortByCreation {
		records = export.SortByCreation(records)
	}

	if h.conf.Listing.CacheSeconds > 0 {
		h.listings.Set(listingCacheKey, records, cache.DefaultExpiration)
	}
	return records, nil
}

func (h *Handlers) forgetListing() {
	h.listings.Delete(listingCacheKey)
}
