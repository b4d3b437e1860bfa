package cloudinary

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
)

type UploadRequest struct {
	File     string `json:"file"`
	PublicId string `json:"public_id,omitempty"`
	Tags     string `json:"tags,omitempty"`
}

type UploadResult struct {
	AssetId   string `json:"asset_id"`
	PublicId  string `json:"public_id"`
	Url       string `json:"url"`
	SecureUrl string `json:"secure_url"`
}

type unsignedUpload struct {
	UploadRequest
	UploadPreset string `json:"upload_preset"`
}

// Upload forwards an image (data URI, remote URL, or base64 payload) using the
// configured unsigned upload preset.
func (c *Client) Upload(ctx rcontext.RequestContext, upload UploadRequest) (*UploadResult, error) {
	if c.conf.UploadPreset == "" {
		return nil, errors.New("no upload preset configured")
	}
	body := unsignedUpload{
		UploadRequest: upload,
		UploadPreset:  c.conf.UploadPreset,
	}
	result := &UploadResult{}
	if err := c.doRequest(ctx, "upload", http.MethodPost, c.apiUrl("image/upload", nil), body, false, result); err != nil {
		return nil, err
	}
	return result, nil
}
