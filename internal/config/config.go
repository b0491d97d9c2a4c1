// Package config provides configuration management for the ingestion service.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerAddress      = ":8070"
	defaultReadTimeoutSec     = 30
	defaultWriteTimeoutSec    = 600
	defaultIdleTimeoutSec     = 60
	defaultMaxConcurrency     = 8
	defaultRequestTimeoutSec  = 30
	defaultMaxFetchAttempts   = 5
	defaultBackoffInitialMs   = 500
	defaultTokenLifetimeSec   = 3600
	defaultTokenMarginSec     = 300
	defaultGraphBaseURL       = "https://graph.microsoft.com/v1.0"
	defaultAuthorityBaseURL   = "https://login.microsoftonline.com"
	defaultGraphScope         = "https://graph.microsoft.com/.default"
	defaultPagesListTitle     = "Site Pages"
	defaultPagesBlobFolder    = "scraped_pages"
	defaultDBHost             = "localhost"
	defaultDBPort             = 5432
	defaultDBUser             = "postgres"
	defaultDBName             = "ingestor"
	defaultDBSSLMode          = "disable"
	defaultMinIOEndpoint      = "localhost:9000"
	defaultMinIOBucket        = "sharepoint-content"
	defaultLogLevel           = "info"
	defaultLogEncoding        = "json"
)

// defaultExcludedExtensions are file extensions that are never ingested.
var defaultExcludedExtensions = []string{
	".mp4", ".mov", ".avi", ".mp3", ".wav", ".flac", ".mkv", ".png",
	".jpg", ".msg", ".m4v", ".eps", ".jpeg", ".jfif", ".heic",
}

// defaultAvoidKeywords are substrings that exclude a file or folder when
// matched case-insensitively.
var defaultAvoidKeywords = []string{
	"confidential", "offer letter", "compensation", "termination",
}

// Config is the top-level service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Graph    GraphConfig    `yaml:"graph"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Database DatabaseConfig `yaml:"database"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	BaseURL      string `yaml:"base_url"`
	AuthorityURL string `yaml:"authority_url"`
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Scope        string `yaml:"scope"`
}

// IngestConfig holds ingestion pipeline configuration.
type IngestConfig struct {
	// Sites maps a site label to its SharePoint site identifier. The
	// label becomes the first path segment of ingested blob names.
	Sites map[string]string `yaml:"sites"`
	// PagesSiteID is the site whose page collection is scraped.
	PagesSiteID string `yaml:"pages_site_id"`
	// PagesListTitle is the SharePoint list holding site pages.
	PagesListTitle string `yaml:"pages_list_title"`
	// PagesBlobFolder is the object-store prefix for scraped pages.
	PagesBlobFolder string `yaml:"pages_blob_folder"`
	// ExcludeURLs lists page web URLs that are never scraped.
	ExcludeURLs []string `yaml:"exclude_urls"`
	// ExcludedExtensions and AvoidKeywords feed the exclusion filter.
	ExcludedExtensions []string `yaml:"excluded_extensions"`
	AvoidKeywords      []string `yaml:"avoid_keywords"`
	// MaxConcurrency bounds parallel fetch-and-store workers.
	MaxConcurrency int `yaml:"max_concurrency"`
	// RequestTimeout bounds each content fetch.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MaxFetchAttempts is the retry budget for transient fetch errors.
	MaxFetchAttempts int `yaml:"max_fetch_attempts"`
	// Schedule is an optional cron spec for periodic full runs.
	Schedule string `yaml:"schedule"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// MinIOConfig holds object storage configuration.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Encoding    string `yaml:"encoding"`
	Development bool   `yaml:"development"`
}

// SetDefaults registers default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", defaultServerAddress)
	v.SetDefault("server.read_timeout", defaultReadTimeoutSec)
	v.SetDefault("server.write_timeout", defaultWriteTimeoutSec)
	v.SetDefault("server.idle_timeout", defaultIdleTimeoutSec)
	v.SetDefault("graph.base_url", defaultGraphBaseURL)
	v.SetDefault("graph.authority_url", defaultAuthorityBaseURL)
	v.SetDefault("graph.scope", defaultGraphScope)
	v.SetDefault("ingest.pages_list_title", defaultPagesListTitle)
	v.SetDefault("ingest.pages_blob_folder", defaultPagesBlobFolder)
	v.SetDefault("ingest.excluded_extensions", defaultExcludedExtensions)
	v.SetDefault("ingest.avoid_keywords", defaultAvoidKeywords)
	v.SetDefault("ingest.max_concurrency", defaultMaxConcurrency)
	v.SetDefault("ingest.request_timeout", defaultRequestTimeoutSec)
	v.SetDefault("ingest.max_fetch_attempts", defaultMaxFetchAttempts)
	v.SetDefault("database.host", defaultDBHost)
	v.SetDefault("database.port", defaultDBPort)
	v.SetDefault("database.user", defaultDBUser)
	v.SetDefault("database.dbname", defaultDBName)
	v.SetDefault("database.sslmode", defaultDBSSLMode)
	v.SetDefault("minio.endpoint", defaultMinIOEndpoint)
	v.SetDefault("minio.bucket", defaultMinIOBucket)
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.encoding", defaultLogEncoding)
}

// Load reads configuration from the given viper instance into a Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address:      v.GetString("server.address"),
			ReadTimeout:  time.Duration(v.GetInt("server.read_timeout")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("server.write_timeout")) * time.Second,
			IdleTimeout:  time.Duration(v.GetInt("server.idle_timeout")) * time.Second,
		},
		Graph: GraphConfig{
			BaseURL:      v.GetString("graph.base_url"),
			AuthorityURL: v.GetString("graph.authority_url"),
			TenantID:     v.GetString("graph.tenant_id"),
			ClientID:     v.GetString("graph.client_id"),
			ClientSecret: v.GetString("graph.client_secret"),
			Scope:        v.GetString("graph.scope"),
		},
		Ingest: IngestConfig{
			Sites:              v.GetStringMapString("ingest.sites"),
			PagesSiteID:        v.GetString("ingest.pages_site_id"),
			PagesListTitle:     v.GetString("ingest.pages_list_title"),
			PagesBlobFolder:    v.GetString("ingest.pages_blob_folder"),
			ExcludeURLs:        v.GetStringSlice("ingest.exclude_urls"),
			ExcludedExtensions: v.GetStringSlice("ingest.excluded_extensions"),
			AvoidKeywords:      v.GetStringSlice("ingest.avoid_keywords"),
			MaxConcurrency:     v.GetInt("ingest.max_concurrency"),
			RequestTimeout:     time.Duration(v.GetInt("ingest.request_timeout")) * time.Second,
			MaxFetchAttempts:   v.GetInt("ingest.max_fetch_attempts"),
			Schedule:           v.GetString("ingest.schedule"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("minio.endpoint"),
			AccessKey: v.GetString("minio.access_key"),
			SecretKey: v.GetString("minio.secret_key"),
			Bucket:    v.GetString("minio.bucket"),
			UseSSL:    v.GetBool("minio.use_ssl"),
		},
		Logging: LoggingConfig{
			Level:       v.GetString("logging.level"),
			Encoding:    v.GetString("logging.encoding"),
			Development: v.GetBool("logging.development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and bounds.
func (c *Config) Validate() error {
	if c.Graph.TenantID == "" {
		return errors.New("graph.tenant_id is required")
	}
	if c.Graph.ClientID == "" {
		return errors.New("graph.client_id is required")
	}
	if c.Graph.ClientSecret == "" {
		return errors.New("graph.client_secret is required")
	}
	if c.Ingest.MaxConcurrency <= 0 {
		return fmt.Errorf("ingest.max_concurrency must be positive, got %d", c.Ingest.MaxConcurrency)
	}
	if c.Ingest.MaxFetchAttempts <= 0 {
		return fmt.Errorf("ingest.max_fetch_attempts must be positive, got %d", c.Ingest.MaxFetchAttempts)
	}
	return nil
}

// TokenLifetime is the conservative credential lifetime assumed when the
// identity provider does not declare one.
func TokenLifetime() time.Duration {
	return defaultTokenLifetimeSec * time.Second
}

// TokenMargin is the safety margin before expiry within which a credential
// is never used.
func TokenMargin() time.Duration {
	return defaultTokenMarginSec * time.Second
}

// BackoffInitial is the initial delay for fetch retry backoff.
func BackoffInitial() time.Duration {
	return defaultBackoffInitialMs * time.Millisecond
}
