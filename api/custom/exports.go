package custom

import (
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/api"
	"github.com/t2bot/image-backup-proxy/common"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/export"
)

// ExportImages streams a full backup archive. Listing happens before anything
// is written so a listing failure still gets a proper error response.
func (h *Handlers) ExportImages(r *http.Request, rctx rcontext.RequestContext) interface{} {
	release, ok := h.guard.TryBegin()
	if !ok {
		rctx.Log.Warn("Rejecting export: ", common.ErrExportInProgress)
		return api.ExportInProgress()
	}

	exporter := export.NewExporter(rctx, h.remote, export.OptionsFromConfig(h.conf, export.ModeHttp))
	rctx = rctx.LogWithFields(logrus.Fields{"exportId": exporter.Id()})
	if err := exporter.List(); err != nil {
		release()
		return api.UpstreamError("error listing images")
	}
	rctx.Log.Infof("Streaming export of %d images", len(exporter.Records()))

	return &api.StreamResponse{
		ContentType: "application/zip",
		Filename:    h.conf.Export.AttachmentName,
		WriteTo: func(w io.Writer) error {
			defer release()
			result, err := exporter.WriteArchive(w)
			if err != nil {
				return err
			}
			rctx.Log.Infof("Export streamed: %d archived, %d skipped, %s", result.ArchivedCount, len(result.Skipped), humanize.Bytes(uint64(result.SizeBytes)))
			return nil
		},
	}
}
