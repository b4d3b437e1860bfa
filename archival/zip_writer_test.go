package archival

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/types"
)

func mustRecord(t *testing.T, raw string) *types.ResourceRecord {
	rec := &types.ResourceRecord{}
	require.NoError(t, json.Unmarshal([]byte(raw), rec))
	return rec
}

func readZip(t *testing.T, b []byte) map[string][]byte {
	r, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	files := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		files[f.Name] = data
	}
	return files
}

func TestArchiveWriterLayout(t *testing.T) {
	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	a := mustRecord(t, `{"asset_id":"a1","public_id":"one","format":"jpg","secure_url":"https://res.example.org/image/upload/v1/one.jpg","created_at":"2024-01-02T03:04:05Z"}`)
	b := mustRecord(t, `{"asset_id":"b2","public_id":"two","format":"png","secure_url":"https://res.example.org/image/upload/v1/two.png"}`)
	c := mustRecord(t, `{"asset_id":"c3","public_id":"three","format":"gif"}`)

	buf := &bytes.Buffer{}
	w := NewWriter(rcontext.Initial(), buf, "backups", created)
	require.NoError(t, w.AddManifest([]*types.ResourceRecord{a, b, c}))

	name, err := w.AddAsset(a, []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, "one.jpg", name)
	require.NoError(t, w.AddAssetDetail(name, json.RawMessage(`{"asset_id":"a1","tags":[]}`)))

	name, err = w.AddAsset(b, []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, "two.png", name)

	require.NoError(t, w.AddSkippedLog([]string{"c3"}))
	size, err := w.Finish()
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), size)

	files := readZip(t, buf.Bytes())
	assert.Len(t, files, 5)
	assert.Equal(t, []byte("first"), files["backups/one.jpg"])
	assert.Equal(t, []byte("second"), files["backups/two.png"])
	assert.Contains(t, files, "backups/one.jpg.json")
	assert.NotContains(t, files, "backups/two.png.json")

	manifest := make([]map[string]interface{}, 0)
	require.NoError(t, json.Unmarshal(files["backups/imageList.json"], &manifest))
	require.Len(t, manifest, 3)
	assert.Equal(t, "a1", manifest[0]["asset_id"])
	assert.Equal(t, "c3", manifest[2]["asset_id"])

	skipped := make([]string, 0)
	require.NoError(t, json.Unmarshal(files["backups/skippedAssets.json"], &skipped))
	assert.Equal(t, []string{"c3"}, skipped)
}

func TestArchiveWriterEmptySkippedLog(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(rcontext.Initial(), buf, "backups", time.Now())
	require.NoError(t, w.AddManifest(nil))
	require.NoError(t, w.AddSkippedLog(nil))
	_, err := w.Finish()
	require.NoError(t, err)

	files := readZip(t, buf.Bytes())
	assert.Equal(t, "[]", string(files["backups/skippedAssets.json"]))
	assert.Equal(t, "[]", string(files["backups/imageList.json"]))
}

func TestArchiveWriterDuplicateNames(t *testing.T) {
	a := mustRecord(t, `{"asset_id":"a1","public_id":"folder1/cat","format":"jpg"}`)
	b := mustRecord(t, `{"asset_id":"b2","public_id":"folder2/cat","format":"jpg"}`)

	buf := &bytes.Buffer{}
	w := NewWriter(rcontext.Initial(), buf, "backups", time.Now())
	require.NoError(t, w.AddManifest([]*types.ResourceRecord{a, b}))
	first, err := w.AddAsset(a, []byte("a"))
	require.NoError(t, err)
	second, err := w.AddAsset(b, []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, "cat.jpg", first)
	assert.Equal(t, "b2_cat.jpg", second)
	require.NoError(t, w.AddSkippedLog(nil))
	_, err = w.Finish()
	require.NoError(t, err)

	files := readZip(t, buf.Bytes())
	assert.Equal(t, []byte("a"), files["backups/cat.jpg"])
	assert.Equal(t, []byte("b"), files["backups/b2_cat.jpg"])
}

func TestArchiveWriterPrefixedNameAvoidsDetailEntries(t *testing.T) {
	d := mustRecord(t, `{"asset_id":"d4","public_id":"x/b2_cat.jpg.json"}`)
	a := mustRecord(t, `{"asset_id":"a1","public_id":"folder1/cat","format":"jpg"}`)
	b := mustRecord(t, `{"asset_id":"b2","public_id":"folder2/cat","format":"jpg"}`)

	buf := &bytes.Buffer{}
	w := NewWriter(rcontext.Initial(), buf, "backups", time.Now())
	require.NoError(t, w.AddManifest([]*types.ResourceRecord{d, a, b}))
	name, err := w.AddAsset(d, []byte("d"))
	require.NoError(t, err)
	assert.Equal(t, "b2_cat.jpg.json", name)
	_, err = w.AddAsset(a, []byte("a"))
	require.NoError(t, err)

	name, err = w.AddAsset(b, []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, "b2_2_cat.jpg", name)
	require.NoError(t, w.AddAssetDetail(name, json.RawMessage(`{"asset_id":"b2"}`)))
	require.NoError(t, w.AddSkippedLog(nil))
	_, err = w.Finish()
	require.NoError(t, err)

	files := readZip(t, buf.Bytes())
	assert.Equal(t, []byte("d"), files["backups/b2_cat.jpg.json"])
	assert.Equal(t, []byte("b"), files["backups/b2_2_cat.jpg"])
	assert.Contains(t, files, "backups/b2_2_cat.jpg.json")
}

func TestArchiveWriterOrdering(t *testing.T) {
	rec := mustRecord(t, `{"asset_id":"a1","public_id":"one","format":"jpg"}`)
	w := NewWriter(rcontext.Initial(), &bytes.Buffer{}, "backups", time.Now())

	_, err := w.AddAsset(rec, []byte("x"))
	assert.ErrorIs(t, err, errManifestNotWritten)
	assert.ErrorIs(t, w.AddSkippedLog(nil), errManifestNotWritten)
	_, err = w.Finish()
	assert.Error(t, err)

	require.NoError(t, w.AddManifest(nil))
	assert.ErrorIs(t, w.AddManifest(nil), errManifestWritten)
	assert.Error(t, w.AddAssetDetail("missing.jpg", json.RawMessage(`{}`)))

	require.NoError(t, w.AddSkippedLog(nil))
	assert.ErrorIs(t, w.AddSkippedLog(nil), errSkippedLogWritten)
	_, err = w.AddAsset(rec, []byte("x"))
	assert.ErrorIs(t, err, errSkippedLogWritten)

	_, err = w.Finish()
	require.NoError(t, err)
	_, err = w.Finish()
	assert.ErrorIs(t, err, errArchiveFinished)
}
