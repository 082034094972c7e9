package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "eals.yaml"

type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	ResourcesDir string             `yaml:"resourcesDir"`
	Timezone     string             `yaml:"timezone"`
	Employees    EmployeesConfig    `yaml:"employees"`
	Mail         MailConfig         `yaml:"mail"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	SES          SESConfig          `yaml:"ses"`
	Slack        SlackConfig        `yaml:"slack"`
	Offsite      OffsiteConfig      `yaml:"offsite"`
	Web          WebConfig          `yaml:"web"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
}

type DatabaseConfig struct {
	Path     string `yaml:"path"`
	LogLevel string `yaml:"logLevel"`
}

type EmployeesConfig struct {
	IDPrefix string `yaml:"idPrefix"`
}

type MailConfig struct {
	// Transport is smtp, ses or memory.
	Transport string `yaml:"transport"`
	From      string `yaml:"from"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type SESConfig struct {
	Region string `yaml:"region"`
}

type SlackConfig struct {
	Token        string `yaml:"token"`
	InfoChannel  string `yaml:"infoChannel"`
	ErrorChannel string `yaml:"errorChannel"`
}

type OffsiteConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
	// SigningSecret is base64 encoded.
	SigningSecret string        `yaml:"signingSecret"`
	TokenTTL      time.Duration `yaml:"tokenTTL"`
	Debug         bool          `yaml:"debug"`
}

type ConnectivityConfig struct {
	ProbeHost string        `yaml:"probeHost"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Load reads .env, then the YAML file at path when it exists, then EALS_*
// overrides, then fills defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] no .env file, using system environment")
	}

	cfg := &Config{}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("[INFO] %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return finish(cfg)
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Parse decodes a YAML document into cfg.
func Parse(data []byte, cfg *Config) error {
	return yaml.Unmarshal(data, cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	str("EALS_DATABASE_PATH", &cfg.Database.Path)
	str("EALS_DATABASE_LOG_LEVEL", &cfg.Database.LogLevel)
	str("EALS_RESOURCES_DIR", &cfg.ResourcesDir)
	str("EALS_TIMEZONE", &cfg.Timezone)
	str("EALS_EMPLOYEE_ID_PREFIX", &cfg.Employees.IDPrefix)
	str("EALS_MAIL_TRANSPORT", &cfg.Mail.Transport)
	str("EALS_MAIL_FROM", &cfg.Mail.From)
	str("EALS_SMTP_HOST", &cfg.SMTP.Host)
	str("EALS_SMTP_USERNAME", &cfg.SMTP.Username)
	str("EALS_SMTP_PASSWORD", &cfg.SMTP.Password)
	str("EALS_SES_REGION", &cfg.SES.Region)
	str("SLACK_BOT_TOKEN", &cfg.Slack.Token)
	str("SLACK_INFO_CHANNEL", &cfg.Slack.InfoChannel)
	str("SLACK_ERROR_CHANNEL", &cfg.Slack.ErrorChannel)
	str("EALS_OFFSITE_BUCKET", &cfg.Offsite.Bucket)
	str("EALS_OFFSITE_PREFIX", &cfg.Offsite.Prefix)
	str("EALS_WEB_ADDR", &cfg.Web.Addr)
	str("EALS_WEB_SIGNING_SECRET", &cfg.Web.SigningSecret)

	if v, ok := os.LookupEnv("EALS_SMTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid EALS_SMTP_PORT %q: %w", v, err)
		}
		cfg.SMTP.Port = port
	}
	if v, ok := os.LookupEnv("EALS_WEB_DEBUG"); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid EALS_WEB_DEBUG %q: %w", v, err)
		}
		cfg.Web.Debug = debug
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ResourcesDir == "" {
		c.ResourcesDir = "resources"
	}
	if c.Database.Path == "" {
		c.Database.Path = "eals.db"
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}
	if c.Employees.IDPrefix == "" {
		c.Employees.IDPrefix = "EMP"
	}
	if c.Mail.Transport == "" {
		c.Mail.Transport = "smtp"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Web.Addr == "" {
		c.Web.Addr = "127.0.0.1:8765"
	}
	if c.Web.TokenTTL == 0 {
		c.Web.TokenTTL = 12 * time.Hour
	}
	if c.Connectivity.ProbeHost == "" {
		c.Connectivity.ProbeHost = "google.com"
	}
	if c.Connectivity.Timeout == 0 {
		c.Connectivity.Timeout = 3 * time.Second
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Mail.Transport {
	case "smtp":
		if c.SMTP.Host == "" {
			errs = append(errs, errors.New("smtp.host is required for the smtp transport"))
		}
	case "ses":
		if c.SES.Region == "" {
			errs = append(errs, errors.New("ses.region is required for the ses transport"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown mail transport %q", c.Mail.Transport))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone; empty means the machine's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) LogsDir() string {
	return filepath.Join(c.ResourcesDir, "logs")
}

func (c *Config) BackupsDir() string {
	return filepath.Join(c.ResourcesDir, "backups")
}

func (c *Config) PicturesDir() string {
	return filepath.Join(c.ResourcesDir, "profile_pictures")
}
