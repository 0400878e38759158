// Package config handles loading and parsing of PageKeep configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for PageKeep.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Uploads UploadsConfig `yaml:"uploads"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ShutdownTimeout is the graceful shutdown timeout in seconds.
	ShutdownTimeout int `yaml:"shutdown_timeout"`
	// MaxUploadSize caps the request body of the small-file upload path, in
	// bytes. Large files bypass the server via the reservation protocol.
	MaxUploadSize int64 `yaml:"max_upload_size"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the slog level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: text, json.
	Format string `yaml:"format"`
}

// UploadsConfig holds direct-upload grant settings.
type UploadsConfig struct {
	// GrantTTL is the lifetime of a direct-upload grant in seconds.
	GrantTTL int `yaml:"grant_ttl"`
}

// StorageConfig holds blob storage backend settings.
type StorageConfig struct {
	// Backend is the storage backend type: "local", "s3", "gcs", or "azure".
	Backend string      `yaml:"backend"`
	Local   LocalConfig `yaml:"local"`
	S3      S3Config    `yaml:"s3"`
	GCS     GCSConfig   `yaml:"gcs"`
	Azure   AzureConfig `yaml:"azure"`
}

// LocalConfig holds local filesystem backend settings.
type LocalConfig struct {
	// DataDir is the base directory for the index file and book content
	// (library.json plus books/<id>.pdf and books/<id>.jpg underneath it).
	DataDir string `yaml:"data_dir"`
}

// S3Config holds Amazon S3 backend settings.
type S3Config struct {
	// Bucket is the S3 bucket name.
	Bucket string `yaml:"bucket"`
	// Region is the AWS region of the bucket.
	Region string `yaml:"region"`
	// Prefix is the optional key prefix for all objects in the bucket.
	Prefix string `yaml:"prefix"`
	// EndpointURL overrides the S3 endpoint (for MinIO and similar).
	EndpointURL string `yaml:"endpoint_url"`
	// UsePathStyle forces path-style bucket addressing.
	UsePathStyle bool `yaml:"use_path_style"`
	// AccessKeyID and SecretAccessKey override the default credential chain
	// when both are set.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// GCSConfig holds Google Cloud Storage backend settings.
type GCSConfig struct {
	// Bucket is the GCS bucket name.
	Bucket string `yaml:"bucket"`
	// Prefix is the optional object prefix for all objects in the bucket.
	Prefix string `yaml:"prefix"`
	// EndpointURL overrides the GCS endpoint (for fake-gcs-server and similar).
	EndpointURL string `yaml:"endpoint_url"`
	// SignerEmail and SignerKeyFile configure V4 signed-URL issuance when the
	// ambient credentials cannot sign (e.g. metadata-server credentials).
	SignerEmail   string `yaml:"signer_email"`
	SignerKeyFile string `yaml:"signer_key_file"`
}

// AzureConfig holds Azure Blob Storage backend settings.
type AzureConfig struct {
	// Container is the blob container name.
	Container string `yaml:"container"`
	// Account is the storage account name. Used to construct the account URL
	// https://{account}.blob.core.windows.net when AccountURL is empty.
	Account string `yaml:"account"`
	// AccountURL is the full storage account URL.
	AccountURL string `yaml:"account_url"`
	// AccountKey is the shared key. When set it is used both for data-plane
	// auth and for signing direct-upload SAS grants; otherwise the backend
	// authenticates via DefaultAzureCredential and cannot issue grants.
	AccountKey string `yaml:"account_key"`
	// Prefix is the optional blob name prefix for all blobs in the container.
	Prefix string `yaml:"prefix"`
}

// Load reads a YAML configuration file from the given path and returns a
// parsed Config with defaults applied for unset values. If the primary path
// fails, it falls back to pagekeep.example.yaml in the same or parent
// directory.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		fallbackPaths := []string{
			filepath.Join(filepath.Dir(path), "pagekeep.example.yaml"),
			filepath.Join(filepath.Dir(path), "..", "pagekeep.example.yaml"),
		}
		var fallbackErr error
		for _, fp := range fallbackPaths {
			data, fallbackErr = os.ReadFile(fp)
			if fallbackErr == nil {
				break
			}
		}
		if fallbackErr != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30,
			MaxUploadSize:   64 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Uploads: UploadsConfig{
			GrantTTL: 900,
		},
		Storage: StorageConfig{
			Backend: "local",
			Local: LocalConfig{
				DataDir: "./data",
			},
		},
	}
}

// applyDefaults fills in any fields that are still at their zero value after
// YAML unmarshaling.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30
	}
	if cfg.Server.MaxUploadSize == 0 {
		cfg.Server.MaxUploadSize = 64 << 20
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Uploads.GrantTTL == 0 {
		cfg.Uploads.GrantTTL = 900
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.Local.DataDir == "" {
		cfg.Storage.Local.DataDir = "./data"
	}
	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = "us-east-1"
	}
}
