package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/t2bot/image-backup-proxy/cloudinary"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/types"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) install(t *Throttle) {
	t.now = c.Now
	t.sleep = c.Sleep
}

type sourceCall struct {
	Kind string
	Key  string
	At   time.Time
}

// fakeSource serves pages keyed by cursor and advances the clock by one
// second per call.
type fakeSource struct {
	clock      *fakeClock
	pages      map[string]*types.ResourcePage
	listErr    error
	contentErr map[string]error
	detailErr  map[string]error
	calls      []sourceCall

	// called before each content download; a non-nil error fails it
	onContent func(ctx context.Context, contentUrl string) error
}

func newFakeSource(clock *fakeClock, pages ...[]*types.ResourceRecord) *fakeSource {
	s := &fakeSource{
		clock:      clock,
		pages:      make(map[string]*types.ResourcePage),
		contentErr: make(map[string]error),
		detailErr:  make(map[string]error),
	}
	cursor := ""
	for i, p := range pages {
		next := ""
		if i < len(pages)-1 {
			next = fmt.Sprintf("cursor-%d", i+1)
		}
		s.pages[cursor] = &types.ResourcePage{Resources: p, NextCursor: next}
		cursor = next
	}
	return s
}

func (s *fakeSource) record(kind string, key string) {
	s.calls = append(s.calls, sourceCall{Kind: kind, Key: key, At: s.clock.now})
	s.clock.now = s.clock.now.Add(time.Second)
}

func (s *fakeSource) callsOf(kind string) []sourceCall {
	out := make([]sourceCall, 0)
	for _, c := range s.calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeSource) ListResources(ctx rcontext.RequestContext, opts cloudinary.ListOptions) (*types.ResourcePage, error) {
	s.record("list", opts.NextCursor)
	if s.listErr != nil {
		return nil, s.listErr
	}
	page, ok := s.pages[opts.NextCursor]
	if !ok {
		return nil, errors.New("unknown cursor")
	}
	return page, nil
}

func (s *fakeSource) DownloadContent(ctx rcontext.RequestContext, contentUrl string, maxBytes int64) ([]byte, error) {
	s.record("content", contentUrl)
	if s.onContent != nil {
		if err := s.onContent(ctx, contentUrl); err != nil {
			return nil, err
		}
	}
	if err, ok := s.contentErr[contentUrl]; ok {
		return nil, err
	}
	return []byte("content of " + contentUrl), nil
}

func (s *fakeSource) GetResourceDetails(ctx rcontext.RequestContext, assetId string) (json.RawMessage, error) {
	s.record("detail", assetId)
	if err, ok := s.detailErr[assetId]; ok {
		return nil, err
	}
	return json.RawMessage(fmt.Sprintf(`{"asset_id":%q}`, assetId)), nil
}

func testRecord(id string, created string) *types.ResourceRecord {
	return &types.ResourceRecord{
		AssetId:   id,
		PublicId:  "img_" + id,
		Format:    "jpg",
		CreatedAt: created,
		SecureUrl: "https://res.example.org/image/upload/v1/img_" + id + ".jpg",
	}
}
