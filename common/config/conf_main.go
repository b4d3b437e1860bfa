package config

import (
	"time"
)

const BackupDestinationFile = "file"
const BackupDestinationS3 = "s3"

type MainConfig struct {
	General    GeneralConfig    `yaml:"repo"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
	Export     ExportConfig     `yaml:"export"`
	Backup     BackupConfig     `yaml:"backup"`
	Listing    ListingConfig    `yaml:"listing"`
	Cors       CorsConfig       `yaml:"cors"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	RateLimit  RateLimitConfig  `yaml:"rateLimit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Sentry     SentryConfig     `yaml:"sentry"`
}

func NewDefaultMainConfig() MainConfig {
	return MainConfig{
		General: GeneralConfig{
			BindAddress:     "127.0.0.1",
			Port:            3000,
			LogDirectory:    "logs",
			LogColors:       false,
			JsonLogs:        false,
			LogLevel:        "info",
			TrustAnyForward: false,
		},
		Cloudinary: CloudinaryConfig{
			ApiBaseUrl:     "https://api.cloudinary.com/v1_1",
			PageSize:       500,
			TimeoutSeconds: 60,
			BackoffAt:      10,
		},
		Export: ExportConfig{
			DelayMillis:    8000,
			IncludeDetails: true,
			FolderName:     "backups",
			AttachmentName: "images.zip",
			SortByCreation: false,
			MaxAssetBytes:  104857600, // 100mb
		},
		Backup: BackupConfig{
			Destination: BackupDestinationFile,
			Directory:   ".",
			S3: BackupS3Config{
				UseSsl: true,
			},
		},
		Listing: ListingConfig{
			SortByCreation: true,
			CacheSeconds:   60,
			IncludeContext: true,
			Pairing: PairingConfig{
				PrimarySuffix:   "",
				CompanionSuffix: "_thumb",
				Limit:           0,
			},
		},
		Cors: CorsConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Uploads: UploadsConfig{
			MaxSizeBytes: 52428800, // 50mb
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			BurstCount:        10,
		},
		Metrics: MetricsConfig{
			Enabled:     false,
			BindAddress: "localhost",
			Port:        9000,
		},
		Sentry: SentryConfig{
			Enabled:     false,
			Dsn:         "not supplied",
			Environment: "",
			Debug:       false,
		},
	}
}

func (c *MainConfig) ExportDelay() time.Duration {
	return time.Duration(c.Export.DelayMillis) * time.Millisecond
}

func (c *MainConfig) ListingCacheTtl() time.Duration {
	return time.Duration(c.Listing.CacheSeconds) * time.Second
}
