package config

type GeneralConfig struct {
	BindAddress     string `yaml:"bindAddress"`
	Port            int    `yaml:"port"`
	LogDirectory    string `yaml:"logDirectory"`
	LogColors       bool   `yaml:"logColors"`
	JsonLogs        bool   `yaml:"jsonLogs"`
	LogLevel        string `yaml:"logLevel"`
	TrustAnyForward bool   `yaml:"trustAnyForwardedAddress"`
}

type CloudinaryConfig struct {
	CloudName      string `yaml:"cloudName"`
	ApiKey         string `yaml:"apiKey"`
	ApiSecret      string `yaml:"apiSecret"`
	UploadPreset   string `yaml:"uploadPreset"`
	ApiBaseUrl     string `yaml:"apiBaseUrl"`
	PageSize       int    `yaml:"pageSize"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	BackoffAt      int    `yaml:"backoffAt"`
}

type ExportConfig struct {
	DelayMillis    int64  `yaml:"delayMs"`
	IncludeDetails bool   `yaml:"includeDetails"`
	FolderName     string `yaml:"folderName"`
	AttachmentName string `yaml:"attachmentName"`
	SortByCreation bool   `yaml:"sortByCreation"`
	MaxAssetBytes  int64  `yaml:"maxAssetBytes"`
}

type BackupConfig struct {
	Destination string         `yaml:"destination"`
	Directory   string         `yaml:"directory"`
	S3          BackupS3Config `yaml:"s3"`
}

type BackupS3Config struct {
	Endpoint     string `yaml:"endpoint"`
	BucketName   string `yaml:"bucketName"`
	AccessKeyId  string `yaml:"accessKeyId"`
	AccessSecret string `yaml:"accessSecret"`
	Region       string `yaml:"region"`
	UseSsl       bool   `yaml:"ssl"`
	Prefix       string `yaml:"prefix"`
}

type ListingConfig struct {
	SortByCreation bool          `yaml:"sortByCreation"`
	CacheSeconds   int           `yaml:"cacheSeconds"`
	IncludeContext bool          `yaml:"includeContext"`
	Pairing        PairingConfig `yaml:"pairing"`
}

type PairingConfig struct {
	PrimarySuffix   string `yaml:"primarySuffix"`
	CompanionSuffix string `yaml:"companionSuffix"`
	Limit           int    `yaml:"limit"`
}

type CorsConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins,flow"`
}

type UploadsConfig struct {
	MaxSizeBytes int64 `yaml:"maxBytes"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	BurstCount        int     `yaml:"burst"`
}

type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bindAddress"`
	Port        int    `yaml:"port"`
}

type SentryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dsn         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`
}
