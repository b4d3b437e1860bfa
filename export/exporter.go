package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/archival"
	"github.com/t2bot/image-backup-proxy/common"
	"github.com/t2bot/image-backup-proxy/common/config"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/metrics"
	"github.com/t2bot/image-backup-proxy/types"
	"github.com/t2bot/image-backup-proxy/util"
)

const ModeHttp = "http"
const ModeOffline = "offline"

// State is where a run is. StateFailed is only entered from StateListing; a
// run that stops later keeps the state it stopped in and cannot be reused.
type State int

const (
	StateListing State = iota
	StateDownloading
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateListing:
		return "listing"
	case StateDownloading:
		return "downloading"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

type Options struct {
	Mode           string
	Delay          time.Duration
	PageSize       int
	IncludeContext bool
	IncludeDetails bool
	SortByCreation bool
	FolderName     string
	MaxAssetBytes  int64
}

func OptionsFromConfig(conf *config.MainConfig, mode string) Options {
	return Options{
		Mode:           mode,
		Delay:          conf.ExportDelay(),
		PageSize:       conf.Cloudinary.PageSize,
		IncludeContext: conf.Listing.IncludeContext,
		IncludeDetails: conf.Export.IncludeDetails,
		SortByCreation: conf.Export.SortByCreation,
		FolderName:     conf.Export.FolderName,
		MaxAssetBytes:  conf.Export.MaxAssetBytes,
	}
}

// Exporter performs exactly one export run: list every record, fetch each
// one under the throttle, and write the archive. A fresh Exporter is needed
// for every run.
type Exporter struct {
	ctx      rcontext.RequestContext
	source   Source
	opts     Options
	throttle *Throttle

	exportId  string
	createdAt time.Time
	state     State
	listed    bool
	consumed  bool
	records   []*types.ResourceRecord
}

func NewExporter(ctx rcontext.RequestContext, source Source, opts Options) *Exporter {
	exportId := uuid.NewString()
	if opts.Mode == "" {
		opts.Mode = ModeOffline
	}
	return &Exporter{
		ctx: ctx.LogWithFields(logrus.Fields{
			"exportId":   exportId,
			"exportMode": opts.Mode,
		}),
		source:    source,
		opts:      opts,
		throttle:  NewThrottle(opts.Delay),
		exportId:  exportId,
		createdAt: time.Now().UTC(),
		state:     StateListing,
	}
}

func (e *Exporter) Id() string {
	return e.exportId
}

func (e *Exporter) State() State {
	return e.state
}

func (e *Exporter) CreatedAt() time.Time {
	return e.createdAt
}

func (e *Exporter) Records() []*types.ResourceRecord {
	return e.records
}

func (e *Exporter) finishRun(result string) {
	metrics.ExportRuns.With(prometheus.Labels{"mode": e.opts.Mode, "result": result}).Inc()
}

// List performs the listing phase. A failure here is fatal: the exporter
// moves to StateFailed and cannot be used again.
func (e *Exporter) List() error {
	if e.consumed || e.state != StateListing {
		return common.ErrExportAlreadyRun
	}
	if e.listed {
		return common.ErrInvalidState
	}

	e.ctx.Log.Info("Listing resources...")
	records, err := ListAll(e.ctx, e.source, e.throttle, ListParams{
		PageSize:       e.opts.PageSize,
		IncludeContext: e.opts.IncludeContext,
	})
	if err != nil {
		e.state = StateFailed
		e.consumed = true
		e.finishRun("failed")
		e.ctx.Log.Error("Error listing resources: ", err)
		sentry.CaptureException(err)
		return err
	}
	if e.opts.SortByCreation {
		records = SortByCreation(records)
	}
	e.records = records
	e.listed = true
	return nil
}

// WriteArchive runs the download and finalize phases, writing the archive to
// w as it is built. List is called first if it has not been already.
func (e *Exporter) WriteArchive(w io.Writer) (*types.ExportResult, error) {
	if !e.listed {
		if err := e.List(); err != nil {
			return nil, err
		}
	}
	if e.consumed || e.state != StateListing {
		return nil, common.ErrExportAlreadyRun
	}
	e.consumed = true

	result, err := e.writeArchive(w)
	if err != nil {
		e.finishRun("aborted")
		e.ctx.Log.Error("Error writing archive: ", err)
		sentry.CaptureException(err)
		return nil, err
	}
	e.finishRun("ok")
	return result, nil
}

func (e *Exporter) writeArchive(w io.Writer) (*types.ExportResult, error) {
	archiver := archival.NewWriter(e.ctx, w, e.opts.FolderName, e.createdAt)
	if err := archiver.AddManifest(e.records); err != nil {
		return nil, err
	}

	e.state = StateDownloading
	total := len(e.records)
	skipped := make([]string, 0)
	archived := 0
	for i, record := range e.records {
		log := e.ctx.Log.WithFields(logrus.Fields{"assetId": record.AssetId})

		var content []byte
		var detail json.RawMessage
		err := e.throttle.Do(e.ctx, func() error {
			var err error
			content, detail, err = e.fetchAsset(record)
			return err
		})
		if err != nil {
			// a cancelled context is the only way the throttle itself fails
			if e.ctx.Err() != nil {
				return nil, errors.Wrap(e.ctx.Err(), "export cancelled")
			}
			log.Warn("Skipping asset: ", err)
			skipped = append(skipped, skippedKey(record))
			metrics.ExportAssets.With(prometheus.Labels{"result": "skipped"}).Inc()
			continue
		}

		name, err := archiver.AddAsset(record, content)
		if err != nil {
			return nil, errors.Wrapf(err, "error archiving asset %s", record.AssetId)
		}
		if detail != nil {
			if err = archiver.AddAssetDetail(name, detail); err != nil {
				return nil, errors.Wrapf(err, "error archiving details for asset %s", record.AssetId)
			}
		}
		archived++
		metrics.ExportAssets.With(prometheus.Labels{"result": "archived"}).Inc()
		log.Infof("Processed %d of %d images...", i+1, total)
	}

	e.state = StateFinalizing
	if err := archiver.AddSkippedLog(skipped); err != nil {
		return nil, err
	}
	size, err := archiver.Finish()
	if err != nil {
		return nil, err
	}

	e.state = StateDone
	e.ctx.Log.Infof("Export finished: %d of %d assets archived, %d skipped, %s", archived, total, len(skipped), humanize.Bytes(uint64(size)))
	return &types.ExportResult{
		ExportId:      e.exportId,
		TotalRecords:  total,
		ArchivedCount: archived,
		Skipped:       skipped,
		SizeBytes:     size,
	}, nil
}

// fetchAsset downloads the content and, when enabled, the details of one
// record. Either failing fails the whole asset.
func (e *Exporter) fetchAsset(record *types.ResourceRecord) ([]byte, json.RawMessage, error) {
	content, err := e.source.DownloadContent(e.ctx, record.ContentUrl(), e.opts.MaxAssetBytes)
	if err != nil {
		return nil, nil, err
	}
	if !e.opts.IncludeDetails {
		return content, nil, nil
	}
	detail, err := e.source.GetResourceDetails(e.ctx, record.AssetId)
	if err != nil {
		return nil, nil, err
	}
	if len(detail) == 0 {
		detail = json.RawMessage("{}")
	}
	return content, detail, nil
}

// skippedKey names a record in the skipped log. Records without an asset id
// are named by their public id.
func skippedKey(record *types.ResourceRecord) string {
	if record.AssetId != "" {
		return record.AssetId
	}
	return record.PublicId
}

// ArchiveFileName is the offline job's archive name for a run started at t.
func ArchiveFileName(t time.Time) string {
	return "backup-" + util.ArchiveTimestamp(t) + ".zip"
}

// Run performs a whole export into the sink. The sink is only opened once
// listing has succeeded, and is aborted if anything after that fails.
func (e *Exporter) Run(sink archival.ArchiveSink) (*types.ExportResult, error) {
	if err := e.List(); err != nil {
		return nil, err
	}

	fileName := ArchiveFileName(e.createdAt)
	w, err := sink.Begin(e.ctx, fileName)
	if err != nil {
		e.state = StateFailed
		e.consumed = true
		e.finishRun("failed")
		return nil, errors.Wrap(err, "error opening archive destination")
	}

	result, err := e.WriteArchive(w)
	if err != nil {
		sink.Abort(e.ctx)
		return nil, err
	}

	location, err := sink.Commit(e.ctx)
	if err != nil {
		e.ctx.Log.Error("Error saving archive: ", err)
		sentry.CaptureException(err)
		return nil, errors.Wrap(err, "error saving archive")
	}
	result.FileName = fileName
	result.Location = location
	return result, nil
}
