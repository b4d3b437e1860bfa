package types

import (
	"encoding/json"
	"time"
)

type ResourceContext struct {
	Custom map[string]string `json:"custom,omitempty"`
}

// ResourceRecord is one entry of the remote listing. The raw JSON it was decoded
// from is retained so manifests reproduce the listing exactly.
type ResourceRecord struct {
	AssetId      string           `json:"asset_id"`
	PublicId     string           `json:"public_id"`
	Format       string           `json:"format,omitempty"`
	Version      int64            `json:"version,omitempty"`
	ResourceType string           `json:"resource_type,omitempty"`
	Type         string           `json:"type,omitempty"`
	CreatedAt    string           `json:"created_at,omitempty"`
	Bytes        int64            `json:"bytes,omitempty"`
	Width        int              `json:"width,omitempty"`
	Height       int              `json:"height,omitempty"`
	Url          string           `json:"url,omitempty"`
	SecureUrl    string           `json:"secure_url,omitempty"`
	Context      *ResourceContext `json:"context,omitempty"`

	raw json.RawMessage
}

type resourceRecordFields ResourceRecord

func (r *ResourceRecord) UnmarshalJSON(b []byte) error {
	fields := resourceRecordFields{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*r = ResourceRecord(fields)
	r.raw = append(json.RawMessage(nil), b...)
	return nil
}

func (r ResourceRecord) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(resourceRecordFields(r))
}

// ContentUrl prefers the https delivery URL.
func (r *ResourceRecord) ContentUrl() string {
	if r.SecureUrl != "" {
		return r.SecureUrl
	}
	return r.Url
}

// CreationTime returns the zero time when created_at is missing or malformed.
func (r *ResourceRecord) CreationTime() time.Time {
	t, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *ResourceRecord) Description() string {
	if r.Context == nil || r.Context.Custom == nil {
		return ""
	}
	if caption := r.Context.Custom["caption"]; caption != "" {
		return caption
	}
	return r.Context.Custom["alt"]
}

type ResourcePage struct {
	Resources  []*ResourceRecord `json:"resources"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type PairedResource struct {
	Url          string `json:"url"`
	CompanionUrl string `json:"companion_url,omitempty"`
	Description  string `json:"description"`
}
