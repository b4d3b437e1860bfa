package runtime

import (
	"flag"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/common/config"
	"github.com/t2bot/image-backup-proxy/common/logging"
	"github.com/t2bot/image-backup-proxy/common/version"
)

// ConfigPath resolves the configuration path from the -config flag value,
// letting REPO_CONFIG override it for container deployments.
func ConfigPath(flagValue string) string {
	if configEnv := os.Getenv("REPO_CONFIG"); configEnv != "" {
		return configEnv
	}
	return flagValue
}

func ConfigFlag() *string {
	return flag.String("config", config.DefaultPath, "The path to the configuration")
}

// RunStartupSequence loads and validates the configuration, then sets up
// logging and error reporting. The returned config is never modified.
func RunStartupSequence(configPath string) (*config.MainConfig, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "error loading configuration")
	}

	err = logging.Setup(
		conf.General.LogDirectory,
		conf.General.LogColors,
		conf.General.JsonLogs,
		conf.General.LogLevel,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error setting up logging")
	}
	version.Print(true)

	if err = conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	if conf.Sentry.Enabled {
		logrus.Info("Setting up Sentry for debugging...")
		err = sentry.Init(sentry.ClientOptions{
			Dsn:         conf.Sentry.Dsn,
			Environment: conf.Sentry.Environment,
			Debug:       conf.Sentry.Debug,
			Release:     version.Release(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "error setting up sentry")
		}
	}

	return conf, nil
}
