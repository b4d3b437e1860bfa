package archival

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/t2bot/image-backup-proxy/common/config"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
)

// ArchiveSink receives a complete archive. Nothing is visible at the final
// location until Commit succeeds; Abort discards whatever was written.
type ArchiveSink interface {
	Begin(ctx rcontext.RequestContext, fileName string) (io.Writer, error)
	Commit(ctx rcontext.RequestContext) (string, error)
	Abort(ctx rcontext.RequestContext)
}

func NewSink(conf config.BackupConfig) (ArchiveSink, error) {
	switch conf.Destination {
	case config.BackupDestinationFile, "":
		return NewDirectorySink(conf.Directory), nil
	case config.BackupDestinationS3:
		return NewS3Sink(conf.S3)
	default:
		return nil, errors.Errorf("unknown backup destination: %s", conf.Destination)
	}
}

// DirectorySink writes to a temporary file next to the target and renames it
// into place on commit.
type DirectorySink struct {
	directory string
	target    string
	file      *os.File
}

func NewDirectorySink(directory string) *DirectorySink {
	if directory == "" {
		directory = "."
	}
	return &DirectorySink{directory: directory}
}

func (s *DirectorySink) Begin(ctx rcontext.RequestContext, fileName string) (io.Writer, error) {
	if s.file != nil {
		return nil, errors.New("sink already has an archive in progress")
	}
	if err := os.MkdirAll(s.directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating %s", s.directory)
	}
	f, err := os.CreateTemp(s.directory, "."+fileName+".*.partial")
	if err != nil {
		return nil, errors.Wrap(err, "error creating temporary archive file")
	}
	s.file = f
	s.target = filepath.Join(s.directory, fileName)
	ctx.Log.Debug("Writing archive to temporary file ", f.Name())
	return f, nil
}

func (s *DirectorySink) Commit(ctx rcontext.RequestContext) (string, error) {
	if s.file == nil {
		return "", errors.New("sink has no archive in progress")
	}
	f := s.file
	s.file = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "error flushing archive")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "error closing archive")
	}
	if err := os.Rename(f.Name(), s.target); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrapf(err, "error moving archive to %s", s.target)
	}
	location, err := filepath.Abs(s.target)
	if err != nil {
		location = s.target
	}
	return location, nil
}

func (s *DirectorySink) Abort(ctx rcontext.RequestContext) {
	if s.file == nil {
		return
	}
	f := s.file
	s.file = nil
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil {
		ctx.Log.Warn("Error removing temporary archive: ", err)
	}
}

// S3Sink spools the archive to a temporary file and uploads it on commit.
type S3Sink struct {
	client *minio.Client
	bucket string
	prefix string

	key   string
	spool *os.File
}

func NewS3Sink(conf config.BackupS3Config) (*S3Sink, error) {
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Region: conf.Region,
		Secure: conf.UseSsl,
		Creds:  credentials.NewStaticV4(conf.AccessKeyId, conf.AccessSecret, ""),
	})
	if err != nil {
		return nil, errors.Wrap(err, "error creating s3 client")
	}
	return &S3Sink{
		client: client,
		bucket: conf.BucketName,
		prefix: strings.Trim(conf.Prefix, "/"),
	}, nil
}

func (s *S3Sink) objectKey(fileName string) string {
	if s.prefix == "" {
		return fileName
	}
	return path.Join(s.prefix, fileName)
}

func (s *S3Sink) Begin(ctx rcontext.RequestContext, fileName string) (io.Writer, error) {
	if s.spool != nil {
		return nil, errors.New("sink already has an archive in progress")
	}
	f, err := os.CreateTemp(os.TempDir(), "image-proxy-backup")
	if err != nil {
		return nil, errors.Wrap(err, "error creating spool file")
	}
	s.spool = f
	s.key = s.objectKey(fileName)
	return f, nil
}

func (s *S3Sink) Commit(ctx rcontext.RequestContext) (string, error) {
	if s.spool == nil {
		return "", errors.New("sink has no archive in progress")
	}
	f := s.spool
	s.spool = nil
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	size, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", errors.Wrap(err, "error measuring spool file")
	}
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "error rewinding spool file")
	}

	ctx.Log.Infof("Uploading %s to bucket %s", humanize.Bytes(uint64(size)), s.bucket)
	_, err = s.client.PutObject(ctx.Context, s.bucket, s.key, f, size, minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return "", errors.Wrapf(err, "error uploading %s", s.key)
	}
	return "s3://" + s.bucket + "/" + s.key, nil
}

func (s *S3Sink) Abort(ctx rcontext.RequestContext) {
	if s.spool == nil {
		return
	}
	f := s.spool
	s.spool = nil
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil {
		ctx.Log.Warn("Error removing spool file: ", err)
	}
}
