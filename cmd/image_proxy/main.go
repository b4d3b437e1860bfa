package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/api/custom"
	"github.com/t2bot/image-backup-proxy/api/webserver"
	"github.com/t2bot/image-backup-proxy/cloudinary"
	"github.com/t2bot/image-backup-proxy/common/runtime"
	"github.com/t2bot/image-backup-proxy/common/version"
	"github.com/t2bot/image-backup-proxy/metrics"
)

func main() {
	configPath := runtime.ConfigFlag()
	versionFlag := flag.Bool("version", false, "Prints the version and exits")
	flag.Parse()

	if *versionFlag {
		version.Print(false)
		return // exit 0
	}

	conf, err := runtime.RunStartupSequence(runtime.ConfigPath(*configPath))
	if err != nil {
		logrus.Fatal(err)
	}
	defer sentry.Flush(2 * time.Second)
	defer sentry.Recover()

	logrus.Info("Starting image proxy...")
	metrics.Init(conf.Metrics)
	handlers := custom.NewHandlers(conf, cloudinary.NewClient(conf.Cloudinary))
	web := webserver.Init(conf, handlers)

	stopAllButWeb := func() {
		logrus.Info("Stopping metrics...")
		metrics.Stop()
	}

	// Set up a listener for SIGINT
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	selfStop := false
	go func() {
		defer close(stop)
		<-stop
		selfStop = true

		logrus.Warn("Stop signal received")
		stopAllButWeb()

		logrus.Info("Stopping web server...")
		webserver.Stop()
	}()

	// Wait for the web server to exit nicely
	web.Wait()

	// Stop everything else if we have to
	if !selfStop {
		stopAllButWeb()
	}

	logrus.Info("Goodbye!")
}
