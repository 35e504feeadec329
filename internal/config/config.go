// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML/JSON file -> environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	configloader "github.com/GabrielNunesIT/go-libs/config-loader"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "BLOB_INGESTOR_"

// CacheExpiryEnv overrides poller.cachettl, in whole minutes.
const CacheExpiryEnv = "CACHE_EXPIRY_MINUTES"

// Source types.
const (
	SourceAzureBlob = "azblob"
	SourceS3        = "s3"
	SourceGCS       = "gcs"
	SourceLocal     = "local"
)

// Sink kinds.
const (
	SinkKusto         = "kusto"
	SinkElasticsearch = "elasticsearch"
	SinkFile          = "file"
	SinkStdout        = "stdout"
)

// Config is the root configuration structure for the blob ingestor.
type Config struct {
	LogLevel string       `koanf:"loglevel" yaml:"log_level" json:"log_level"`
	Poller   PollerConfig `koanf:"poller"`
	Azure    AzureConfig  `koanf:"azure"`
	S3       S3Config     `koanf:"s3"`
	Sinks    SinkConfig   `koanf:"sinks"`
	Sets     []SetConfig  `koanf:"sets"`
}

// PollerConfig controls the poll loop.
type PollerConfig struct {
	PollInterval    time.Duration `koanf:"pollinterval" yaml:"poll_interval" json:"poll_interval"`
	RolloverDelay   time.Duration `koanf:"rolloverdelay" yaml:"rollover_delay" json:"rollover_delay"`
	MaxFilesPerRun  int           `koanf:"maxfilesperrun" yaml:"max_files_per_run" json:"max_files_per_run"`
	CacheTTL        time.Duration `koanf:"cachettl" yaml:"cache_ttl" json:"cache_ttl"`
	CacheMaxEntries int           `koanf:"cachemaxentries" yaml:"cache_max_entries" json:"cache_max_entries"`
	ListTimeout     time.Duration `koanf:"listtimeout" yaml:"list_timeout" json:"list_timeout"`
	FileTimeout     time.Duration `koanf:"filetimeout" yaml:"file_timeout" json:"file_timeout"`
	Concurrency     int           `koanf:"concurrency"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// AzureConfig holds the Azure identity settings shared by blob sources and the Kusto sink.
type AzureConfig struct {
	// ManagedIdentityClientID selects a user-assigned managed identity.
	// Empty falls back to the default credential chain.
	ManagedIdentityClientID string `koanf:"managedidentityclientid" yaml:"managed_identity_client_id" json:"managed_identity_client_id"`
}

// S3Config holds settings for S3 and S3-compatible sources.
type S3Config struct {
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"accesskey" yaml:"access_key" json:"access_key"`
	SecretKey string `koanf:"secretkey" yaml:"secret_key" json:"secret_key"`
}

// SinkConfig holds configuration for all sinks.
type SinkConfig struct {
	Kusto         KustoSinkConfig         `koanf:"kusto"`
	Elasticsearch ElasticsearchSinkConfig `koanf:"elasticsearch"`
	File          FileSinkConfig          `koanf:"file"`
}

// KustoSinkConfig configures the Azure Data Explorer sink.
type KustoSinkConfig struct {
	// IngestEndpoint is the default cluster ingestion URI,
	// e.g. https://ingest-mycluster.westeurope.kusto.windows.net.
	IngestEndpoint string `koanf:"ingestendpoint" yaml:"ingest_endpoint" json:"ingest_endpoint"`
}

// ElasticsearchSinkConfig configures the Elasticsearch sink.
type ElasticsearchSinkConfig struct {
	Addresses     []string      `koanf:"addresses"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	NumWorkers    int           `koanf:"numworkers" yaml:"num_workers" json:"num_workers"`
	FlushInterval time.Duration `koanf:"flushinterval" yaml:"flush_interval" json:"flush_interval"`
}

// FileSinkConfig configures the rotating file sink.
type FileSinkConfig struct {
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"maxsizemb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// SetConfig describes one ingestion set: a source directory and a destination.
type SetConfig struct {
	Name        string            `koanf:"name"`
	Source      SourceConfig      `koanf:"source"`
	Destination DestinationConfig `koanf:"destination"`
}

// SourceConfig locates the source directory of an ingestion set.
type SourceConfig struct {
	Type      string   `koanf:"type"`
	Account   string   `koanf:"account"`   // storage account (azblob only)
	Container string   `koanf:"container"` // container, bucket, or local root
	Directory string   `koanf:"directory"`
	Exclude   []string `koanf:"exclude"` // glob patterns matched against the object name
}

// DestinationConfig locates the destination table of an ingestion set.
type DestinationConfig struct {
	Sink     string `koanf:"sink"`
	Endpoint string `koanf:"endpoint"`
	Database string `koanf:"database"`
	Table    string `koanf:"table"`
	Mapping  string `koanf:"mapping"`
	Format   string `koanf:"format"`
}

// defaults returns the default configuration values.
func defaults() Config {
	return Config{
		LogLevel: "info",
		Poller: PollerConfig{
			PollInterval:    500 * time.Millisecond,
			RolloverDelay:   61 * time.Second,
			MaxFilesPerRun:  1000,
			CacheTTL:        3 * time.Minute,
			CacheMaxEntries: 100000,
			ListTimeout:     10 * time.Minute,
			FileTimeout:     5 * time.Minute,
			Concurrency:     1,
			ShutdownTimeout: 30 * time.Second,
		},
		Sinks: SinkConfig{
			Elasticsearch: ElasticsearchSinkConfig{
				NumWorkers:    2,
				FlushInterval: 5 * time.Second,
			},
			File: FileSinkConfig{
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 7,
				Compress:   true,
			},
		},
	}
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables -> CACHE_EXPIRY_MINUTES.
func Load(configPath string) (*Config, error) {
	opts := []configloader.Option[Config]{
		configloader.WithDefaults[Config](defaults()),
	}

	if configPath != "" {
		opts = append(opts, configloader.WithFile[Config](configPath))
	} else {
		for _, path := range []string{"./config.yaml", "/etc/blob-ingestor/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				opts = append(opts, configloader.WithFile[Config](path))
				break
			}
		}
	}

	opts = append(opts, configloader.WithEnv[Config](EnvPrefix))

	loader := configloader.NewConfigLoader[Config](opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if ttl, ok := cacheExpiryFromEnv(); ok {
		cfg.Poller.CacheTTL = ttl
	}

	return &cfg, nil
}

// cacheExpiryFromEnv reads the legacy CACHE_EXPIRY_MINUTES override.
// Unparseable or non-positive values are ignored.
func cacheExpiryFromEnv() (time.Duration, bool) {
	v, ok := os.LookupEnv(CacheExpiryEnv)
	if !ok {
		return 0, false
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || minutes <= 0 {
		return 0, false
	}
	return time.Duration(minutes) * time.Minute, true
}

// Validate checks the global tunables. Ingestion sets are validated one by one
// when they are constructed, so a bad set never blocks the others.
func (c *Config) Validate() error {
	var errs []error

	p := c.Poller
	if p.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poller.pollinterval must be positive, got %v", p.PollInterval))
	}
	if p.RolloverDelay < 0 {
		errs = append(errs, fmt.Errorf("poller.rolloverdelay must not be negative, got %v", p.RolloverDelay))
	}
	if p.MaxFilesPerRun <= 0 {
		errs = append(errs, fmt.Errorf("poller.maxfilesperrun must be positive, got %d", p.MaxFilesPerRun))
	}
	if p.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("poller.cachettl must be positive, got %v", p.CacheTTL))
	}
	if p.CacheMaxEntries < 0 {
		errs = append(errs, fmt.Errorf("poller.cachemaxentries must not be negative, got %d", p.CacheMaxEntries))
	}
	if p.ListTimeout < 0 || p.FileTimeout < 0 {
		errs = append(errs, errors.New("poller timeouts must not be negative"))
	}
	if p.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("poller.concurrency must not be negative, got %d", p.Concurrency))
	}
	if len(c.Sets) == 0 {
		errs = append(errs, errors.New("no ingestion sets configured"))
	}

	return errors.Join(errs...)
}

// Validate checks a single ingestion set description.
func (s SetConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}

	switch s.Source.Type {
	case SourceAzureBlob:
		if s.Source.Account == "" {
			errs = append(errs, errors.New("source.account is required for azblob"))
		}
	case SourceS3, SourceGCS, SourceLocal:
	case "":
		errs = append(errs, errors.New("source.type is required"))
	default:
		errs = append(errs, fmt.Errorf("unknown source.type %q", s.Source.Type))
	}
	if s.Source.Container == "" {
		errs = append(errs, errors.New("source.container is required"))
	}

	switch s.Destination.Sink {
	case SinkKusto:
		if s.Destination.Database == "" || s.Destination.Table == "" {
			errs = append(errs, errors.New("destination.database and destination.table are required for kusto"))
		}
	case SinkElasticsearch:
		if s.Destination.Table == "" {
			errs = append(errs, errors.New("destination.table (index) is required for elasticsearch"))
		}
	case SinkFile, SinkStdout:
	case "":
		errs = append(errs, errors.New("destination.sink is required"))
	default:
		errs = append(errs, fmt.Errorf("unknown destination.sink %q", s.Destination.Sink))
	}

	return errors.Join(errs...)
}
