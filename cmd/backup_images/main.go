package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/archival"
	"github.com/t2bot/image-backup-proxy/cloudinary"
	"github.com/t2bot/image-backup-proxy/common/config"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/common/runtime"
	"github.com/t2bot/image-backup-proxy/export"
)

func main() {
	configPath := runtime.ConfigFlag()
	destination := flag.String("destination", "", "Overrides backup.destination (file or s3)")
	directory := flag.String("directory", "", "Overrides backup.directory for file backups")
	noDetails := flag.Bool("skipDetails", false, "Do not fetch per-image details")
	flag.Parse()

	conf, err := runtime.RunStartupSequence(runtime.ConfigPath(*configPath))
	if err != nil {
		logrus.Fatal(err)
	}
	defer sentry.Flush(2 * time.Second)

	// flags only narrow a copy; the loaded config stays as it was
	backup := conf.Backup
	if *destination != "" {
		backup.Destination = *destination
	}
	if *directory != "" {
		backup.Directory = *directory
	}
	opts := export.OptionsFromConfig(conf, export.ModeOffline)
	if *noDetails {
		opts.IncludeDetails = false
	}

	sink, err := archival.NewSink(backup)
	if err != nil {
		logrus.Fatal(err)
	}

	ctx := rcontext.Initial()
	cancelCtx, cancel := signalContext(ctx)
	defer cancel()
	ctx = rcontext.Wrap(cancelCtx, ctx.Log.WithField("destination", backup.Destination))

	if backup.Destination == config.BackupDestinationS3 {
		logrus.Infof("Backing up to bucket %s", backup.S3.BucketName)
	}
	logrus.Infof("Starting backup with a %s delay between requests...", opts.Delay)

	exporter := export.NewExporter(ctx, cloudinary.NewClient(conf.Cloudinary), opts)
	result, err := exporter.Run(sink)
	if err != nil {
		sentry.Flush(2 * time.Second)
		logrus.Fatal("Error during backup process: ", err)
	}

	logrus.Infof("Archived %d of %d images (%d skipped), %s", result.ArchivedCount, result.TotalRecords, len(result.Skipped), humanize.Bytes(uint64(result.SizeBytes)))
	logrus.Info("Backup completed: ", result.Location)
}

// signalContext is cancelled on SIGINT/SIGTERM so an interrupted run leaves no
// archive behind.
func signalContext(parent rcontext.RequestContext) (rcontext.RequestContext, func()) {
	ctx, stop := signal.NotifyContext(parent.Context, os.Interrupt, syscall.SIGTERM)
	return rcontext.Wrap(ctx, parent.Log), stop
}
