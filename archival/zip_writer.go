package archival

import (
	"archive/zip"
	"encoding/json"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/types"
)

var errManifestNotWritten = errors.New("manifest must be written before assets")
var errManifestWritten = errors.New("manifest has already been written")
var errSkippedLogWritten = errors.New("skipped asset log has already been written")
var errArchiveFinished = errors.New("archive has already been finished")

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ArchiveWriter builds the backup zip: a single top-level folder holding the
// manifest, one entry per asset (plus optional detail documents), and the
// skipped asset log. Entries are written straight through to the underlying
// writer in the order they are added.
type ArchiveWriter struct {
	ctx rcontext.RequestContext

	folder    string
	createdAt time.Time
	out       *countingWriter
	zip       *zip.Writer
	names     map[string]bool

	// state machine variables
	wroteManifest bool
	wroteSkipped  bool
	finished      bool
	assetCount    int
}

func NewWriter(ctx rcontext.RequestContext, w io.Writer, folder string, createdAt time.Time) *ArchiveWriter {
	folder = sanitizeName(folder)
	if folder == "" {
		folder = "backups"
	}
	ctx = ctx.LogWithFields(logrus.Fields{
		"archiveFolder": folder,
	})
	out := &countingWriter{w: w}
	return &ArchiveWriter{
		ctx:       ctx,
		folder:    folder,
		createdAt: createdAt.UTC(),
		out:       out,
		zip:       zip.NewWriter(out),
		names:     make(map[string]bool),
	}
}

func (w *ArchiveWriter) entryName(name string) string {
	return path.Join(w.folder, name)
}

func (w *ArchiveWriter) writeEntry(name string, modified time.Time, data []byte) error {
	if w.finished {
		return errArchiveFinished
	}
	if modified.IsZero() || modified.Year() < 1980 {
		modified = w.createdAt
	}
	f, err := w.zip.CreateHeader(&zip.FileHeader{
		Name:     w.entryName(name),
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return errors.Wrapf(err, "error creating archive entry %s", name)
	}
	if _, err = f.Write(data); err != nil {
		return errors.Wrapf(err, "error writing archive entry %s", name)
	}
	return nil
}

func (w *ArchiveWriter) AddManifest(records []*types.ResourceRecord) error {
	if w.wroteManifest {
		return errManifestWritten
	}
	if records == nil {
		records = make([]*types.ResourceRecord, 0)
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error encoding manifest")
	}
	if err = w.writeEntry(ManifestFile, w.createdAt, b); err != nil {
		return err
	}
	w.wroteManifest = true
	w.ctx.Log.Debugf("Wrote manifest with %d records", len(records))
	return nil
}

// AddAsset stores the content under the record's derived file name and returns
// the name used. A name already present in this archive is prefixed with the
// asset id.
func (w *ArchiveWriter) AddAsset(record *types.ResourceRecord, data []byte) (string, error) {
	if !w.wroteManifest {
		return "", errManifestNotWritten
	}
	if w.wroteSkipped {
		return "", errSkippedLogWritten
	}

	name := AssetFileName(record, data)
	if w.names[name] || w.names[DetailFileName(name)] || name == ManifestFile || name == SkippedLogFile {
		prefix := sanitizeName(record.AssetId)
		if prefix == "" {
			prefix = "asset"
		}
		base := name
		name = prefix + "_" + base
		for i := 2; w.names[name] || w.names[DetailFileName(name)]; i++ {
			name = prefix + "_" + strconv.Itoa(i) + "_" + base
		}
	}

	if err := w.writeEntry(name, record.CreationTime(), data); err != nil {
		return "", err
	}
	w.names[name] = true
	w.assetCount++
	w.ctx.Log.Debugf("Archived %s (%s)", name, humanize.Bytes(uint64(len(data))))
	return name, nil
}

func (w *ArchiveWriter) AddAssetDetail(archivedName string, detail json.RawMessage) error {
	if !w.names[archivedName] {
		return errors.Errorf("no archived asset named %s", archivedName)
	}
	b, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "error encoding detail for %s", archivedName)
	}
	name := DetailFileName(archivedName)
	if err = w.writeEntry(name, w.createdAt, b); err != nil {
		return err
	}
	w.names[name] = true
	return nil
}

func (w *ArchiveWriter) AddSkippedLog(assetIds []string) error {
	if !w.wroteManifest {
		return errManifestNotWritten
	}
	if w.wroteSkipped {
		return errSkippedLogWritten
	}
	if assetIds == nil {
		assetIds = make([]string, 0)
	}
	b, err := json.MarshalIndent(assetIds, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error encoding skipped asset log")
	}
	if err = w.writeEntry(SkippedLogFile, w.createdAt, b); err != nil {
		return err
	}
	w.wroteSkipped = true
	return nil
}

// Finish closes the zip container and returns the number of bytes written to
// the underlying writer.
func (w *ArchiveWriter) Finish() (int64, error) {
	if w.finished {
		return w.out.n, errArchiveFinished
	}
	if !w.wroteManifest || !w.wroteSkipped {
		return w.out.n, errors.New("manifest and skipped asset log are required before finishing")
	}
	if err := w.zip.Close(); err != nil {
		return w.out.n, errors.Wrap(err, "error closing archive")
	}
	w.finished = true
	w.ctx.Log.Infof("Archive finished with %d assets (%s)", w.assetCount, humanize.Bytes(uint64(w.out.n)))
	return w.out.n, nil
}
