package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/hasface/hasface"
)

// Config is the process configuration shared by the avatar service and the CLI.
type Config struct {
	HasFace  hasface.Config `yaml:"hasface"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Uploads  UploadConfig   `yaml:"uploads"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig configures the gorm connection.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxIdleConns int    `yaml:"max_idle_conns" validate:"gte=0"`
	MaxOpenConns int    `yaml:"max_open_conns" validate:"gte=0"`
}

// AuthConfig configures JWT verification. Without a secret every authenticated
// route answers 401.
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	JWTAudience string `yaml:"jwt_audience"`
}

// UploadConfig configures where uploaded avatars are written.
type UploadConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

// RedisConfig configures the upload rate limiter. An empty Addr disables it.
type RedisConfig struct {
	Addr        string        `yaml:"addr" validate:"omitempty,hostname_port"`
	UploadLimit int64         `yaml:"upload_limit" validate:"gte=1"`
	Window      time.Duration `yaml:"window" validate:"gt=0"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	hf := hasface.DefaultConfig()
	return &Config{
		HasFace: *hf,
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:          "host=postgres user=postgres password=postgres dbname=hasface port=5432 sslmode=disable",
			MaxIdleConns: 5,
			MaxOpenConns: 10,
		},
		Uploads: UploadConfig{Dir: "uploads"},
		Redis:   RedisConfig{UploadLimit: 10, Window: time.Minute},
		Log:     LogConfig{Level: "info"},
	}
}

// Loader reads configuration from a .env file, an optional YAML file and the environment,
// in that order of increasing precedence.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader returns a loader reading the YAML file at path. An empty path skips the file.
func NewLoader(path string) *Loader {
	return &Loader{
		useDotEnv: true,
		path:      path,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithLookup overrides environment lookups.
func (l *Loader) WithLookup(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Load builds and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if l.useDotEnv {
		// a missing .env file is not an error
		_ = godotenv.Load()
	}

	cfg := Default()
	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", l.path, err)
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

func (l *Loader) applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"HASFACE_API_KEY":    &cfg.HasFace.APIKey,
		"HASFACE_API_SECRET": &cfg.HasFace.APISecret,
		"HASFACE_DETECT_URL": &cfg.HasFace.DetectURL,
		"HASFACE_HOSTNAME":   &cfg.HasFace.Hostname,
		"HTTP_ADDR":          &cfg.Server.Addr,
		"DATABASE_DSN":       &cfg.Database.DSN,
		"JWT_SECRET":         &cfg.Auth.JWTSecret,
		"JWT_AUDIENCE":       &cfg.Auth.JWTAudience,
		"UPLOAD_DIR":         &cfg.Uploads.Dir,
		"LOG_LEVEL":          &cfg.Log.Level,
		"REDIS_ADDR":         &cfg.Redis.Addr,
	}
	for key, dst := range strs {
		if value, ok := l.lookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}

	if value, ok := l.lookupEnv("HASFACE_ENABLE_VALIDATION"); ok && value != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("HASFACE_ENABLE_VALIDATION: %w", err)
		}
		cfg.HasFace.EnableValidation = enabled
	}
	if value, ok := l.lookupEnv("SHUTDOWN_TIMEOUT"); ok && value != "" {
		timeout, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.Server.ShutdownTimeout = timeout
	}
	return nil
}

var validate = validator.New()

// Validate checks the struct tags of cfg and returns a readable error.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
}
