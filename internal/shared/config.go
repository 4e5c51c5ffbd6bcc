package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// ConfigEnv names the environment variable that overrides the config file path.
const ConfigEnv = "MDX_CONFIG"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
	Auth      AuthConfig      `toml:"auth"`
	Session   SessionConfig   `toml:"session"`
	Storage   StorageConfig   `toml:"storage"`
	Extractor ExtractorConfig `toml:"extractor"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	MaxUploadMB    int64    `toml:"max_upload_mb"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// AuthConfig contains credential hashing settings.
type AuthConfig struct {
	BcryptCost int `toml:"bcrypt_cost"`
}

// SessionConfig selects and configures the session backend.
type SessionConfig struct {
	Backend    string      `toml:"backend"` // "cookie" or "redis"
	Secret     string      `toml:"secret"`
	CookieName string      `toml:"cookie_name"`
	TTL        Duration    `toml:"ttl"`
	Secure     bool        `toml:"secure"`
	Redis      RedisConfig `toml:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// StorageConfig selects and configures the blob store used for uploads.
type StorageConfig struct {
	Backend string      `toml:"backend"` // "local" or "minio"
	Dir     string      `toml:"dir"`
	Minio   MinioConfig `toml:"minio"`
}

// MinioConfig contains MinIO (S3-compatible) credentials.
type MinioConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// ExtractorConfig contains media extraction provider settings.
type ExtractorConfig struct {
	Timeout Duration     `toml:"timeout"`
	YTDLP   YTDLPConfig  `toml:"ytdlp"`
	TikTok  TikTokConfig `toml:"tiktok"`
}

// YTDLPConfig configures the yt-dlp executable.
type YTDLPConfig struct {
	Executable string `toml:"executable"`
}

// TikTokConfig configures the tikwm API client.
type TikTokConfig struct {
	APIURL    string  `toml:"api_url"`
	RateLimit float64 `toml:"rate_limit"` // requests per second
}

// Duration is a [time.Duration] that decodes from TOML strings such as "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ResolveConfig loads the config at path (or $MDX_CONFIG when set), falling back to defaults when the file is absent.
func ResolveConfig(path string) (*Config, error) {
	if env := os.Getenv(ConfigEnv); env != "" {
		path = env
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case "cookie", "redis":
	default:
		return fmt.Errorf("%w: unknown session backend %q", ErrInvalidConfig, c.Session.Backend)
	}

	switch c.Storage.Backend {
	case "local", "minio":
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
