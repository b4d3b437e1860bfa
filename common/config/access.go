package config

import (
	"os"
	"path"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const DefaultPath = "image-proxy.yaml"

// Load reads the configuration at the given path once. A missing file is
// created with defaults. If the path is a directory, every file inside is
// applied over the previous one in name order.
func Load(configPath string) (*MainConfig, error) {
	c := NewDefaultMainConfig()

	info, err := os.Stat(configPath)
	exists := err == nil || !os.IsNotExist(err)
	if !exists {
		logrus.Info("Generating new configuration at ", configPath)
		configBytes, err := yaml.Marshal(c)
		if err != nil {
			return nil, err
		}
		if err = os.WriteFile(configPath, configBytes, 0600); err != nil {
			return nil, errors.Wrap(err, "error writing default config")
		}
	}

	info, err = os.Stat(configPath)
	if err != nil {
		return nil, err
	}

	pathsOrdered := make([]string, 0)
	if info.IsDir() {
		logrus.Info("Config is a directory - loading all files over top of each other")

		files, err := os.ReadDir(configPath)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			pathsOrdered = append(pathsOrdered, path.Join(configPath, f.Name()))
		}
		sort.Strings(pathsOrdered)
	} else {
		pathsOrdered = append(pathsOrdered, configPath)
	}

	for _, p := range pathsOrdered {
		logrus.Info("Loading config file: ", p)
		buffer, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(buffer, &c); err != nil {
			return nil, errors.Wrapf(err, "error parsing %s", p)
		}
	}

	applyEnvironment(&c, os.LookupEnv)
	return &c, nil
}

// applyEnvironment lets deployments keep credentials out of the YAML file.
func applyEnvironment(c *MainConfig, lookup func(string) (string, bool)) {
	if v, ok := lookup("CLOUDINARY_CLOUD_NAME"); ok && v != "" {
		c.Cloudinary.CloudName = v
	}
	if v, ok := lookup("CLOUDINARY_API_KEY"); ok && v != "" {
		c.Cloudinary.ApiKey = v
	}
	if v, ok := lookup("CLOUDINARY_API_SECRET"); ok && v != "" {
		c.Cloudinary.ApiSecret = v
	}
	if v, ok := lookup("CLOUDINARY_UPLOAD_PRESET"); ok && v != "" {
		c.Cloudinary.UploadPreset = v
	}
	if v, ok := lookup("APP_URL"); ok && v != "" {
		c.Cors.AllowedOrigins = append(c.Cors.AllowedOrigins, v)
	}
}

func (c *MainConfig) Validate() error {
	if c.Cloudinary.CloudName == "" || c.Cloudinary.ApiKey == "" || c.Cloudinary.ApiSecret == "" {
		return errors.New("cloudinary.cloudName, cloudinary.apiKey and cloudinary.apiSecret are required")
	}
	if c.Cloudinary.ApiBaseUrl == "" {
		return errors.New("cloudinary.apiBaseUrl is required")
	}
	if c.Cloudinary.TimeoutSeconds <= 0 {
		return errors.Errorf("cloudinary.timeoutSeconds must be positive, got %d", c.Cloudinary.TimeoutSeconds)
	}
	if c.Cloudinary.PageSize <= 0 {
		return errors.Errorf("cloudinary.pageSize must be positive, got %d", c.Cloudinary.PageSize)
	}
	if c.Export.DelayMillis < 0 {
		return errors.Errorf("export.delayMs cannot be negative, got %d", c.Export.DelayMillis)
	}
	if c.Export.FolderName == "" {
		return errors.New("export.folderName is required")
	}
	if c.Export.AttachmentName == "" {
		return errors.New("export.attachmentName is required")
	}
	switch c.Backup.Destination {
	case BackupDestinationFile:
	case BackupDestinationS3:
		if c.Backup.S3.Endpoint == "" || c.Backup.S3.BucketName == "" {
			return errors.New("backup.s3.endpoint and backup.s3.bucketName are required for s3 backups")
		}
	default:
		return errors.Errorf("unknown backup.destination %q", c.Backup.Destination)
	}
	return nil
}
