package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Storage      StorageConfig      `yaml:"storage"`
	Photos       PhotosConfig       `yaml:"photos"`
	Trails       TrailsConfig       `yaml:"trails"`
	Cache        CacheConfig        `yaml:"cache"`
	Export       ExportConfig       `yaml:"export"`
	Encyclopedia EncyclopediaConfig `yaml:"encyclopedia"`
	Cursor       CursorConfig       `yaml:"cursor"`
	CORS         CORSConfig         `yaml:"cors"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Migrate  bool   `yaml:"migrate"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Backend    string `yaml:"backend"` // s3 or minio
	Region     string `yaml:"region"`
	Bucket     string `yaml:"bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Endpoint   string `yaml:"endpoint"`
	DisableSSL bool   `yaml:"disable_ssl"`
}

// PhotosConfig holds photo review configuration
type PhotosConfig struct {
	PageSize         int    `yaml:"page_size"`
	NeighborStrategy string `yaml:"neighbor_strategy"` // range or scan
}

// TrailsConfig holds trail statistics configuration
type TrailsConfig struct {
	Timezone    string `yaml:"timezone"`
	DeleteLimit int    `yaml:"delete_limit"`
}

// CacheConfig holds query cache configuration
type CacheConfig struct {
	Fresh     time.Duration `yaml:"fresh"`
	Retention time.Duration `yaml:"retention"`
}

// ExportConfig holds spreadsheet export configuration
type ExportConfig struct {
	Dir       string `yaml:"dir"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute per client
}

// EncyclopediaConfig holds Wikipedia lookup configuration
type EncyclopediaConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CursorConfig holds pagination cursor signing configuration
type CursorConfig struct {
	Secret string `yaml:"secret"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file, fills defaults and applies
// environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used for keys missing from the file
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "ecopark",
			DBName:  "ecopark",
			SSLMode: "disable",
			Migrate: true,
		},
		Storage: StorageConfig{Backend: "s3", Region: "ap-northeast-2"},
		Photos:  PhotosConfig{PageSize: 20, NeighborStrategy: "range"},
		Trails:  TrailsConfig{Timezone: "Asia/Seoul", DeleteLimit: 8},
		Cache:   CacheConfig{Fresh: 5 * time.Minute, Retention: 30 * time.Minute},
		Export:  ExportConfig{Dir: "exports", RateLimit: 10},
		Encyclopedia: EncyclopediaConfig{
			Endpoint: "https://ko.wikipedia.org/w/api.php",
			Timeout:  5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks values that would otherwise fail at first use
func (c *Config) Validate() error {
	if c.Cursor.Secret == "" {
		return fmt.Errorf("cursor.secret is required")
	}
	if c.Photos.PageSize <= 0 {
		return fmt.Errorf("photos.page_size must be positive")
	}
	switch c.Photos.NeighborStrategy {
	case "range", "scan":
	default:
		return fmt.Errorf("unknown photos.neighbor_strategy %q", c.Photos.NeighborStrategy)
	}
	switch c.Storage.Backend {
	case "s3", "minio":
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if c.Cache.Retention < c.Cache.Fresh {
		return fmt.Errorf("cache.retention must not be shorter than cache.fresh")
	}
	if _, err := time.LoadLocation(c.Trails.Timezone); err != nil {
		return fmt.Errorf("invalid trails.timezone: %w", err)
	}
	return nil
}

// Location returns the time zone used for trail date buckets
func (c *TrailsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN returns the PostgreSQL connection URL used by the pool
func (c *DatabaseConfig) DSN() string {
	return c.connURL("postgres")
}

// URL returns the PostgreSQL connection URL used by the migrator
func (c *DatabaseConfig) URL() string {
	return c.connURL("pgx5")
}

func (c *DatabaseConfig) connURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.Host, "ECOPARK_DB_HOST")
	setInt(&cfg.Database.Port, "ECOPARK_DB_PORT")
	setString(&cfg.Database.User, "ECOPARK_DB_USER")
	setString(&cfg.Database.Password, "ECOPARK_DB_PASSWORD")
	setString(&cfg.Database.DBName, "ECOPARK_DB_NAME")
	setString(&cfg.Storage.Endpoint, "ECOPARK_S3_ENDPOINT")
	setString(&cfg.Storage.Bucket, "ECOPARK_S3_BUCKET")
	setString(&cfg.Storage.AccessKey, "ECOPARK_S3_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "ECOPARK_S3_SECRET_KEY")
	setString(&cfg.Cursor.Secret, "ECOPARK_CURSOR_SECRET")
	setString(&cfg.Log.Level, "ECOPARK_LOG_LEVEL")
	setInt(&cfg.Server.Port, "ECOPARK_PORT")
}

func setString(dst *string, key string) {
	if val, exists := os.LookupEnv(key); exists {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}
