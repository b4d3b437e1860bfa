package custom

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/api"
	"github.com/t2bot/image-backup-proxy/cloudinary"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/export"
)

type UploadImageRequest struct {
	File     string      `json:"file"`
	PublicId string      `json:"public_id"`
	Tags     interface{} `json:"tags"`
}

type UploadImageResponse struct {
	Url string `json:"url"`
}

func (h *Handlers) ListImages(r *http.Request, rctx rcontext.RequestContext) interface{} {
	records, err := h.listing(rctx)
	if err != nil {
		rctx.Log.Error("Error listing images: ", err)
		return api.UpstreamError("error listing images")
	}
	return &api.DoNotCacheResponse{Payload: export.SecureUrls(records)}
}

func (h *Handlers) ListPairedImages(r *http.Request, rctx rcontext.RequestContext) interface{} {
	limit := h.conf.Listing.Pairing.Limit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return api.BadRequest("limit must be a non-negative integer")
		}
		limit = n
	}

	records, err := h.listing(rctx)
	if err != nil {
		rctx.Log.Error("Error listing images: ", err)
		return api.UpstreamError("error listing images")
	}
	paired := export.PairByPrefix(records, export.PairingRule{
		PrimarySuffix:   h.conf.Listing.Pairing.PrimarySuffix,
		CompanionSuffix: h.conf.Listing.Pairing.CompanionSuffix,
	})
	return &api.DoNotCacheResponse{Payload: export.Limit(paired, limit)}
}

func (h *Handlers) UploadImage(r *http.Request, rctx rcontext.RequestContext) interface{} {
	body := &UploadImageRequest{}
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, h.conf.Uploads.MaxSizeBytes))
	if err := decoder.Decode(body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return api.RequestTooLarge()
		}
		rctx.Log.Warn("Invalid upload body: ", err)
		return api.BadRequest("invalid JSON body")
	}
	if body.File == "" {
		return api.BadRequest("file is required")
	}

	tags, ok := flattenTags(body.Tags)
	if !ok {
		return api.BadRequest("tags must be a string or an array of strings")
	}

	rctx = rctx.LogWithFields(logrus.Fields{"publicId": body.PublicId})
	result, err := h.remote.Upload(rctx, cloudinary.UploadRequest{
		File:     body.File,
		PublicId: body.PublicId,
		Tags:     tags,
	})
	if err != nil {
		rctx.Log.Error("Error uploading image: ", err)
		return api.UpstreamError("error uploading image")
	}
	h.forgetListing()
	rctx.Log.Info("Uploaded image ", result.AssetId)
	return &UploadImageResponse{Url: result.Url}
}

func flattenTags(tags interface{}) (string, bool) {
	switch t := tags.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, v := range t {
			s, ok := v.(string)
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), true
	default:
		return "", false
	}
}
