package archival

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t2bot/image-backup-proxy/common/config"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
)

func TestDirectorySinkCommit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	ctx := rcontext.Initial()
	sink := NewDirectorySink(dir)

	w, err := sink.Begin(ctx, "backup.zip")
	require.NoError(t, err)
	_, err = w.Write([]byte("zip bytes"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "backup.zip"))
	assert.True(t, os.IsNotExist(err), "archive visible before commit")

	location, err := sink.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(location))
	assert.Equal(t, "backup.zip", filepath.Base(location))

	b, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "zip bytes", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDirectorySinkAbort(t *testing.T) {
	dir := t.TempDir()
	ctx := rcontext.Initial()
	sink := NewDirectorySink(dir)

	w, err := sink.Begin(ctx, "backup.zip")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	sink.Abort(ctx)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = sink.Commit(ctx)
	assert.Error(t, err)
}

func TestNewSink(t *testing.T) {
	sink, err := NewSink(config.BackupConfig{Destination: config.BackupDestinationFile, Directory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &DirectorySink{}, sink)

	sink, err = NewSink(config.BackupConfig{
		Destination: config.BackupDestinationS3,
		S3: config.BackupS3Config{
			Endpoint:   "localhost:9000",
			BucketName: "backups",
			Prefix:     "/images/",
		},
	})
	require.NoError(t, err)
	s3sink, ok := sink.(*S3Sink)
	require.True(t, ok)
	assert.Equal(t, "images/backup.zip", s3sink.objectKey("backup.zip"))

	_, err = NewSink(config.BackupConfig{Destination: "ftp"})
	assert.Error(t, err)
}
