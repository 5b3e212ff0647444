package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/imageprocessing"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/retention"
)

const envPrefix = "AGROGUARD_"

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type Model struct {
	Path              string        `yaml:"path"`
	SharedLibraryPath string        `yaml:"sharedLibraryPath"`
	InputName         string        `yaml:"inputName"`
	OutputName        string        `yaml:"outputName"`
	InferenceTimeout  time.Duration `yaml:"inferenceTimeout"`
}

type Staging struct {
	Directory      string `yaml:"directory"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
	// MaxImagePixels caps width*height of a decoded upload.
	MaxImagePixels int64 `yaml:"maxImagePixels"`
}

type Retention struct {
	MaxAge         time.Duration `yaml:"maxAge"`
	SweepOnRequest *bool         `yaml:"sweepOnRequest"`
	// Schedule is an optional 5-field cron expression for a background sweep.
	Schedule string `yaml:"schedule"`
}

type Feedback struct {
	Directory         string   `yaml:"directory"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
	LegacyLogFile     string   `yaml:"legacyLogFile"`
}

type Auth struct {
	AdminUsername string `yaml:"adminUsername"`
	// AdminPassword is never read from YAML, only from AGROGUARD_ADMIN_PASSWORD.
	AdminPassword string `yaml:"-"`
}

type ServiceConfig struct {
	Port      int       `yaml:"port"`
	LogLevel  string    `yaml:"logLevel"`
	Database  Database  `yaml:"database"`
	Model     Model     `yaml:"model"`
	Staging   Staging   `yaml:"staging"`
	Retention Retention `yaml:"retention"`
	Feedback  Feedback  `yaml:"feedback"`
	Auth      Auth      `yaml:"auth"`
}

// LoadConfig loads configuration from the specified YAML file, applies
// AGROGUARD_* environment overrides and fills in defaults.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config ServiceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// SweepOnRequest reports whether each prediction should trigger a sweep.
// It defaults to true when unset.
func (c *ServiceConfig) SweepOnRequest() bool {
	return c.Retention.SweepOnRequest == nil || *c.Retention.SweepOnRequest
}

func (c *ServiceConfig) applyEnv() error {
	envOverride(&c.LogLevel, "LOG_LEVEL")
	envOverride(&c.Database.Type, "DATABASE_TYPE")
	envOverride(&c.Database.ConnectionString, "DATABASE_CONNECTION_STRING")
	envOverride(&c.Model.Path, "MODEL_PATH")
	envOverride(&c.Model.SharedLibraryPath, "MODEL_SHARED_LIBRARY_PATH")
	envOverride(&c.Staging.Directory, "STAGING_DIRECTORY")
	envOverride(&c.Retention.Schedule, "RETENTION_SCHEDULE")
	envOverride(&c.Feedback.Directory, "FEEDBACK_DIRECTORY")
	envOverride(&c.Auth.AdminUsername, "ADMIN_USERNAME")
	envOverride(&c.Auth.AdminPassword, "ADMIN_PASSWORD")

	if err := envOverrideInt(&c.Port, "PORT"); err != nil {
		return err
	}
	if err := envOverrideDuration(&c.Model.InferenceTimeout, "MODEL_INFERENCE_TIMEOUT"); err != nil {
		return err
	}
	if err := envOverrideDuration(&c.Retention.MaxAge, "RETENTION_MAX_AGE"); err != nil {
		return err
	}
	if val := os.Getenv(envPrefix + "RETENTION_SWEEP_ON_REQUEST"); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %sRETENTION_SWEEP_ON_REQUEST '%s': %w", envPrefix, val, err)
		}
		c.Retention.SweepOnRequest = &parsed
	}
	return nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.ConnectionString == "" && c.Database.Type == "sqlite" {
		c.Database.ConnectionString = "file:agroguard.db"
	}
	if c.Model.Path == "" {
		c.Model.Path = "models/model.onnx"
	}
	if c.Model.InputName == "" {
		c.Model.InputName = "input"
	}
	if c.Model.OutputName == "" {
		c.Model.OutputName = "output"
	}
	if c.Model.InferenceTimeout == 0 {
		c.Model.InferenceTimeout = 10 * time.Second
	}
	if c.Staging.Directory == "" {
		c.Staging.Directory = "uploads"
	}
	if c.Staging.MaxUploadBytes == 0 {
		c.Staging.MaxUploadBytes = 10 << 20
	}
	if c.Staging.MaxImagePixels == 0 {
		c.Staging.MaxImagePixels = imageprocessing.DefaultMaxPixels
	}
	if c.Retention.MaxAge == 0 {
		c.Retention.MaxAge = retention.DefaultMaxAge
	}
	if c.Feedback.Directory == "" {
		c.Feedback.Directory = "feedback"
	}
	if len(c.Feedback.AllowedExtensions) == 0 {
		c.Feedback.AllowedExtensions = []string{"png", "jpg", "jpeg"}
	}
	if c.Feedback.LegacyLogFile == "" {
		c.Feedback.LegacyLogFile = "feedback.txt"
	}
	if c.Auth.AdminUsername == "" {
		c.Auth.AdminUsername = "admin"
	}
}

func (c *ServiceConfig) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	switch c.Database.Type {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.ConnectionString == "" {
		return fmt.Errorf("database connection string is empty")
	}
	if c.Model.InferenceTimeout < 0 {
		return fmt.Errorf("model inference timeout must be positive, got %s", c.Model.InferenceTimeout)
	}
	if strings.TrimSpace(c.Staging.Directory) == "" {
		return fmt.Errorf("staging directory is empty")
	}
	if c.Staging.MaxUploadBytes < 0 {
		return fmt.Errorf("staging max upload bytes must be positive, got %d", c.Staging.MaxUploadBytes)
	}
	if c.Staging.MaxImagePixels < 0 {
		return fmt.Errorf("staging max image pixels must be positive, got %d", c.Staging.MaxImagePixels)
	}
	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("retention max age must be positive, got %s", c.Retention.MaxAge)
	}
	if c.Retention.Schedule != "" {
		if _, err := retention.ParseSchedule(c.Retention.Schedule); err != nil {
			return err
		}
	}
	for i, ext := range c.Feedback.AllowedExtensions {
		trimmed := strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if trimmed == "" || strings.ContainsAny(trimmed, `./\`) {
			return fmt.Errorf("allowed extension at index %d is invalid: %q", i, ext)
		}
	}
	return nil
}

func envOverride(field *string, key string) {
	if val := os.Getenv(envPrefix + key); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, key string) error {
	if val := os.Getenv(envPrefix + key); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s%s '%s': %w", envPrefix, key, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideDuration(field *time.Duration, key string) error {
	if val := os.Getenv(envPrefix + key); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s%s '%s': %w", envPrefix, key, val, err)
		}
		*field = parsed
	}
	return nil
}
