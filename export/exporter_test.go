package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/image-backup-proxy/archival"
	"github.com/t2bot/image-backup-proxy/common"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/types"
)

func testOptions() Options {
	return Options{
		Mode:           ModeOffline,
		Delay:          8 * time.Second,
		PageSize:       2,
		IncludeDetails: true,
		FolderName:     "backups",
	}
}

func newTestExporter(source *fakeSource, opts Options) *Exporter {
	e := NewExporter(rcontext.Initial(), source, opts)
	source.clock.install(e.throttle)
	return e
}

func threeRecordSource() *fakeSource {
	return newFakeSource(newFakeClock(),
		[]*types.ResourceRecord{testRecord("id1", ""), testRecord("id2", "")},
		[]*types.ResourceRecord{testRecord("id3", "")},
	)
}

func unzip(t *testing.T, b []byte) map[string][]byte {
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

func manifestCount(t *testing.T, files map[string][]byte) int {
	manifest := make([]map[string]interface{}, 0)
	require.NoError(t, json.Unmarshal(files["backups/"+archival.ManifestFile], &manifest))
	return len(manifest)
}

func skippedIds(t *testing.T, files map[string][]byte) []string {
	skipped := make([]string, 0)
	require.NoError(t, json.Unmarshal(files["backups/"+archival.SkippedLogFile], &skipped))
	return skipped
}

func TestExportAllSucceed(t *testing.T) {
	source := threeRecordSource()
	e := newTestExporter(source, testOptions())

	buf := &bytes.Buffer{}
	result, err := e.WriteArchive(buf)
	require.NoError(t, err)
	assert.Equal(t, StateDone, e.State())
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 3, result.ArchivedCount)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, int64(buf.Len()), result.SizeBytes)

	files := unzip(t, buf.Bytes())
	assert.Equal(t, 3, manifestCount(t, files))
	assert.Empty(t, skippedIds(t, files))
	for _, id := range []string{"id1", "id2", "id3"} {
		assert.Contains(t, files, "backups/img_"+id+".jpg")
		assert.Contains(t, files, "backups/img_"+id+".jpg.json")
	}
	assert.Len(t, files, 8)
}

func TestExportSkipsFailedContent(t *testing.T) {
	source := threeRecordSource()
	source.contentErr[testRecord("id2", "").SecureUrl] = errors.New("404 not found")
	e := newTestExporter(source, testOptions())

	buf := &bytes.Buffer{}
	result, err := e.WriteArchive(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"id2"}, result.Skipped)
	assert.Equal(t, 2, result.ArchivedCount)

	files := unzip(t, buf.Bytes())
	assert.Equal(t, 3, manifestCount(t, files))
	assert.Equal(t, []string{"id2"}, skippedIds(t, files))
	assert.Contains(t, files, "backups/img_id1.jpg")
	assert.NotContains(t, files, "backups/img_id2.jpg")
	assert.NotContains(t, files, "backups/img_id2.jpg.json")
	assert.Contains(t, files, "backups/img_id3.jpg")

	// no detail call for a record whose content already failed
	for _, c := range source.callsOf("detail") {
		assert.NotEqual(t, "id2", c.Key)
	}
}

func TestExportSkipsFailedDetail(t *testing.T) {
	source := threeRecordSource()
	source.detailErr["id3"] = errors.New("rate limited")
	e := newTestExporter(source, testOptions())

	buf := &bytes.Buffer{}
	result, err := e.WriteArchive(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"id3"}, result.Skipped)

	files := unzip(t, buf.Bytes())
	assert.NotContains(t, files, "backups/img_id3.jpg")
	assert.NotContains(t, files, "backups/img_id3.jpg.json")
}

func TestExportWithoutDetails(t *testing.T) {
	source := threeRecordSource()
	opts := testOptions()
	opts.IncludeDetails = false
	e := newTestExporter(source, opts)

	buf := &bytes.Buffer{}
	_, err := e.WriteArchive(buf)
	require.NoError(t, err)
	assert.Empty(t, source.callsOf("detail"))

	files := unzip(t, buf.Bytes())
	assert.Len(t, files, 5)
}

func TestExportListingFailure(t *testing.T) {
	source := threeRecordSource()
	source.listErr = errors.New("401 unauthorized")
	e := newTestExporter(source, testOptions())

	err := e.List()
	assert.Error(t, err)
	assert.Equal(t, StateFailed, e.State())
	assert.Empty(t, source.callsOf("content"))
	assert.Empty(t, source.callsOf("detail"))

	_, err = e.WriteArchive(&bytes.Buffer{})
	assert.ErrorIs(t, err, common.ErrExportAlreadyRun)
}

type recordingSink struct {
	began     bool
	committed bool
	aborted   bool
	fileName  string
	buf       bytes.Buffer
}

func (s *recordingSink) Begin(ctx rcontext.RequestContext, fileName string) (io.Writer, error) {
	s.began = true
	s.fileName = fileName
	return &s.buf, nil
}

func (s *recordingSink) Commit(ctx rcontext.RequestContext) (string, error) {
	s.committed = true
	return "memory://" + s.fileName, nil
}

func (s *recordingSink) Abort(ctx rcontext.RequestContext) {
	s.aborted = true
}

func TestRunListingFailureOpensNoSink(t *testing.T) {
	source := threeRecordSource()
	source.listErr = errors.New("connection refused")
	e := newTestExporter(source, testOptions())
	sink := &recordingSink{}

	result, err := e.Run(sink)
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.False(t, sink.began)
	assert.False(t, sink.committed)
	assert.Empty(t, source.callsOf("content"))
}

func TestRunCommitsToSink(t *testing.T) {
	source := threeRecordSource()
	e := newTestExporter(source, testOptions())
	sink := &recordingSink{}

	result, err := e.Run(sink)
	require.NoError(t, err)
	assert.True(t, sink.committed)
	assert.False(t, sink.aborted)
	assert.Equal(t, ArchiveFileName(e.CreatedAt()), sink.fileName)
	assert.Equal(t, "memory://"+sink.fileName, result.Location)
	assert.Equal(t, sink.fileName, result.FileName)

	files := unzip(t, sink.buf.Bytes())
	assert.Equal(t, 3, manifestCount(t, files))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

type failingSink struct {
	recordingSink
}

func (s *failingSink) Begin(ctx rcontext.RequestContext, fileName string) (io.Writer, error) {
	s.began = true
	return failingWriter{}, nil
}

func TestRunAbortsSinkOnWriteFailure(t *testing.T) {
	source := threeRecordSource()
	e := newTestExporter(source, testOptions())
	sink := &failingSink{}

	_, err := e.Run(sink)
	assert.Error(t, err)
	assert.True(t, sink.aborted)
	assert.False(t, sink.committed)
}

func TestRunCancelledMidDownloadAbortsSink(t *testing.T) {
	source := threeRecordSource()
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source.onContent = func(ctx context.Context, contentUrl string) error {
		if contentUrl == testRecord("id2", "").SecureUrl {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	e := NewExporter(rcontext.Wrap(runCtx, rcontext.Initial().Log), source, testOptions())
	source.clock.install(e.throttle)
	sink := &recordingSink{}

	result, err := e.Run(sink)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, sink.began)
	assert.True(t, sink.aborted)
	assert.False(t, sink.committed)

	contents := source.callsOf("content")
	require.Len(t, contents, 2)
	assert.Equal(t, testRecord("id2", "").SecureUrl, contents[1].Key)
	for _, c := range source.callsOf("detail") {
		assert.NotEqual(t, "id2", c.Key)
	}
	assert.Equal(t, StateDownloading, e.State())
	assert.ErrorIs(t, e.List(), common.ErrExportAlreadyRun)
}

func TestRunCancelledDuringThrottleWait(t *testing.T) {
	source := threeRecordSource()
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source.onContent = func(ctx context.Context, contentUrl string) error {
		// the download succeeds; the run is stopped before the next record starts
		if contentUrl == testRecord("id2", "").SecureUrl {
			cancel()
		}
		return nil
	}
	e := NewExporter(rcontext.Wrap(runCtx, rcontext.Initial().Log), source, testOptions())
	source.clock.install(e.throttle)
	sink := &recordingSink{}

	_, err := e.Run(sink)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, sink.aborted)
	assert.False(t, sink.committed)
	assert.Len(t, source.callsOf("content"), 2)
}

type beginFailingSink struct {
	recordingSink
}

func (s *beginFailingSink) Begin(ctx rcontext.RequestContext, fileName string) (io.Writer, error) {
	return nil, errors.New("permission denied")
}

func TestRunBeginFailureIsTerminal(t *testing.T) {
	source := threeRecordSource()
	e := newTestExporter(source, testOptions())

	_, err := e.Run(&beginFailingSink{})
	assert.Error(t, err)
	assert.Equal(t, StateFailed, e.State())
	assert.Empty(t, source.callsOf("content"))
	assert.ErrorIs(t, e.List(), common.ErrExportAlreadyRun)
}

func TestSkippedRecordWithoutAssetIdUsesPublicId(t *testing.T) {
	noId := testRecord("", "")
	noId.PublicId = "orphan"
	noId.SecureUrl = "https://res.example.org/image/upload/v1/orphan.jpg"
	source := newFakeSource(newFakeClock(), []*types.ResourceRecord{testRecord("id1", ""), noId})
	source.contentErr[noId.SecureUrl] = errors.New("404 not found")
	e := newTestExporter(source, testOptions())

	buf := &bytes.Buffer{}
	result, err := e.WriteArchive(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan"}, result.Skipped)
	assert.Equal(t, []string{"orphan"}, skippedIds(t, unzip(t, buf.Bytes())))
}

func TestExporterIsNotReusable(t *testing.T) {
	source := threeRecordSource()
	e := newTestExporter(source, testOptions())

	_, err := e.WriteArchive(&bytes.Buffer{})
	require.NoError(t, err)

	_, err = e.WriteArchive(&bytes.Buffer{})
	assert.ErrorIs(t, err, common.ErrExportAlreadyRun)
	assert.ErrorIs(t, e.List(), common.ErrExportAlreadyRun)
	_, err = e.Run(&recordingSink{})
	assert.ErrorIs(t, err, common.ErrExportAlreadyRun)
}

func TestListTwiceIsInvalid(t *testing.T) {
	e := newTestExporter(threeRecordSource(), testOptions())
	require.NoError(t, e.List())
	assert.ErrorIs(t, e.List(), common.ErrInvalidState)
	assert.Len(t, e.Records(), 3)
}

func TestExportThrottlesBetweenRecords(t *testing.T) {
	source := threeRecordSource()
	source.contentErr[testRecord("id2", "").SecureUrl] = errors.New("timeout")
	e := newTestExporter(source, testOptions())

	_, err := e.WriteArchive(&bytes.Buffer{})
	require.NoError(t, err)

	// every call after the first must start at least 8s after the previous
	// record attempt completed, failed or not
	var lastEnd time.Time
	for _, c := range source.calls {
		key := c.Kind
		if c.Kind == "content" || c.Kind == "detail" {
			key = "asset"
		}
		if !lastEnd.IsZero() && (key != "asset" || c.Kind == "content") {
			assert.GreaterOrEqual(t, c.At.Sub(lastEnd), 8*time.Second, "call %s %s started too early", c.Kind, c.Key)
		}
		lastEnd = c.At.Add(time.Second)
	}

	contents := source.callsOf("content")
	require.Len(t, contents, 3)
	assert.Equal(t, 8*time.Second, contents[2].At.Sub(contents[1].At.Add(time.Second)))
}

func TestExportSortsWhenAsked(t *testing.T) {
	source := newFakeSource(newFakeClock(), []*types.ResourceRecord{
		testRecord("new", "2024-02-01T00:00:00Z"),
		testRecord("old", "2023-02-01T00:00:00Z"),
	})
	opts := testOptions()
	opts.SortByCreation = true
	e := newTestExporter(source, opts)

	require.NoError(t, e.List())
	assert.Equal(t, []string{"old", "new"}, idsOf(e.Records()))
}

func TestArchiveFileName(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 123000000, time.UTC)
	assert.Equal(t, "backup-2024-05-06T07-08-09-123Z.zip", ArchiveFileName(ts))
}
