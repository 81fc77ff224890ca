package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Paths        PathsConfig        `yaml:"paths"`
	Database     DatabaseConfig     `yaml:"database"`
	Geocoding    GeocodingConfig    `yaml:"geocoding"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	Notification NotificationConfig `yaml:"notification"`
	Artifacts    ArtifactsConfig    `yaml:"artifacts"`
	Upstream     UpstreamConfig     `yaml:"upstream"`
	Logging      LoggingConfig      `yaml:"logging"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// PathsConfig contains file system roots
type PathsConfig struct {
	UploadsDir string `yaml:"uploads_dir" envconfig:"PATHS_UPLOADS_DIR" validate:"required"`
}

// DatabaseConfig contains the Postgres connection and schema names
type DatabaseConfig struct {
	Host              string        `yaml:"host" envconfig:"DB_HOST" validate:"required"`
	Port              int           `yaml:"port" envconfig:"DB_PORT" validate:"gt=0,lte=65535"`
	Name              string        `yaml:"name" envconfig:"DB_NAME" validate:"required"`
	User              string        `yaml:"user" envconfig:"DB_USER" validate:"required"`
	Password          string        `yaml:"password" envconfig:"DB_PASSWORD" validate:"required"`
	SSLMode           string        `yaml:"sslmode" envconfig:"DB_SSLMODE" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" envconfig:"DB_CONNECT_TIMEOUT"`
	SubscriberSchema  string        `yaml:"subscriber_schema" envconfig:"DB_SUBSCRIBER_SCHEMA" validate:"required"`
	CensusSchema      string        `yaml:"census_schema" envconfig:"DB_CENSUS_SCHEMA" validate:"required"`
	AppSchema         string        `yaml:"app_schema" envconfig:"DB_APP_SCHEMA" validate:"required"`
	PreserveNonActive bool          `yaml:"preserve_non_active" envconfig:"DB_PRESERVE_NON_ACTIVE"`
}

// GeocodingConfig contains the Google Maps settings
type GeocodingConfig struct {
	APIKey            string        `yaml:"api_key" envconfig:"GOOGLE_MAPS_API_KEY" validate:"required"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"GOOGLE_MAPS_RPS" validate:"gt=0"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"GOOGLE_MAPS_TIMEOUT"`
}

// SMTPConfig contains the outbound mail relay settings
type SMTPConfig struct {
	Host     string        `yaml:"host" envconfig:"SMTP_HOST" validate:"required"`
	Port     int           `yaml:"port" envconfig:"SMTP_PORT" validate:"gt=0,lte=65535"`
	User     string        `yaml:"user" envconfig:"SMTP_USER"`
	Password string        `yaml:"password" envconfig:"SMTP_PASSWORD"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"SMTP_TIMEOUT"`
}

// NotificationConfig contains addressing and wording for outgoing email
type NotificationConfig struct {
	SettingsFile    string   `yaml:"settings_file" envconfig:"NOTIFY_SETTINGS_FILE"`
	FromAddress     string   `yaml:"from_address" envconfig:"NOTIFY_FROM_ADDRESS" validate:"omitempty,email"`
	AdminEmail      string   `yaml:"admin_email" envconfig:"NOTIFY_ADMIN_EMAIL" validate:"omitempty,email"`
	BCC             []string `yaml:"bcc" envconfig:"NOTIFY_BCC" validate:"omitempty,dive,email"`
	FallbackName    string   `yaml:"fallback_name" envconfig:"NOTIFY_FALLBACK_NAME" validate:"required"`
	InstructionsURL string   `yaml:"instructions_url" envconfig:"NOTIFY_INSTRUCTIONS_URL" validate:"omitempty,url"`
	SupportPhone    string   `yaml:"support_phone" envconfig:"NOTIFY_SUPPORT_PHONE"`
	Signature       string   `yaml:"signature" envconfig:"NOTIFY_SIGNATURE"`
}

// ArtifactsConfig points at the versioned file-name contract
type ArtifactsConfig struct {
	ContractFile string `yaml:"contract_file" envconfig:"ARTIFACTS_CONTRACT_FILE"`
}

// UpstreamConfig configures the optional external pre-validator
type UpstreamConfig struct {
	Command    string        `yaml:"command" envconfig:"UPSTREAM_COMMAND"`
	WorkDir    string        `yaml:"work_dir" envconfig:"UPSTREAM_WORK_DIR"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"UPSTREAM_TIMEOUT"`
	ResultsDir string        `yaml:"results_dir" envconfig:"UPSTREAM_RESULTS_DIR"`
}

// Enabled reports whether an upstream command is configured.
func (u UpstreamConfig) Enabled() bool {
	return u.Command != ""
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LOGGING_LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"LOGGING_OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"LOGGING_FILE_PATH" validate:"required_unless=Output stdout"`
}

// TelemetryConfig controls span and metric export. Empty paths disable export.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" envconfig:"TELEMETRY_SERVICE_NAME" validate:"required"`
	TraceFile   string `yaml:"trace_file" envconfig:"TELEMETRY_TRACE_FILE"`
	MetricsFile string `yaml:"metrics_file" envconfig:"TELEMETRY_METRICS_FILE"`
}

// LoadOptions selects the optional configuration sources
type LoadOptions struct {
	ConfigFile string // YAML file; skipped when empty
	EnvFile    string // dotenv file; defaults to ".env" and may be absent
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional dotenv file and the process environment, in increasing precedence.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		if err := loadFromFile(opts.ConfigFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg; keys absent from the file keep their value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv overlays set environment variables. Each section is processed
// on its own with full key names so envconfig never falls back to bare names
// such as USER or PORT.
func (c *Config) loadFromEnv() error {
	sections := []interface{}{
		&c.Paths,
		&c.Database,
		&c.Geocoding,
		&c.SMTP,
		&c.Notification,
		&c.Artifacts,
		&c.Upstream,
		&c.Logging,
		&c.Telemetry,
	}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Default returns default configuration. Secrets have no defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			UploadsDir: "/var/www/broadband/uploads",
		},
		Database: DatabaseConfig{
			Host:              "localhost",
			Port:              5432,
			Name:              "broadband",
			User:              "broadband",
			SSLMode:           "prefer",
			ConnectTimeout:    10 * time.Second,
			SubscriberSchema:  "subscribers",
			CensusSchema:      "census_data",
			AppSchema:         "broadband",
			PreserveNonActive: true,
		},
		Geocoding: GeocodingConfig{
			RequestsPerSecond: 10,
			Timeout:           30 * time.Second,
		},
		SMTP: SMTPConfig{
			Host:    "smtp.gmail.com",
			Port:    465,
			Timeout: 30 * time.Second,
		},
		Notification: NotificationConfig{
			FallbackName: "Customer",
			Signature:    "The Regulatory Solutions Team",
		},
		Upstream: UpstreamConfig{
			Timeout: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/validate_subs.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "validate-subscription",
		},
	}
}
