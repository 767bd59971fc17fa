package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL           = "https://api.openai.com/v1/organization"
	DefaultMattermostBaseURL = "https://chat.admin-intelligence.de/api/v4"
	DefaultUserMappingPath   = "config/user_mapping.json"
	DefaultLogFile           = "orgadmin.log"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	AdminKey          string
	BaseURL           string
	RequestTimeout    time.Duration
	MaxRetries        int
	RequestsPerSecond float64

	Debug   bool
	LogFile string

	UserMappingPath string

	Mattermost MattermostConfig
	Mail       MailConfig
	Metrics    MetricsConfig

	OTLPEndpoint string
	OtelEnabled  bool
}

type MattermostConfig struct {
	BaseURL  string
	BotToken string
	BotID    string
}

// Configured reports whether a bot token is available.
func (c MattermostConfig) Configured() bool {
	return strings.TrimSpace(c.BotToken) != ""
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Configured reports whether an SMTP host and sender are set.
func (c MailConfig) Configured() bool {
	return strings.TrimSpace(c.Host) != "" && strings.TrimSpace(c.From) != ""
}

type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// Overrides carries values given on the command line. Non-empty fields
// take precedence over the environment.
type Overrides struct {
	AdminKey        string
	BaseURL         string
	UserMappingPath string
	Debug           bool
}

// Load loads configuration from environment variables and .env file.
func Load(o Overrides) Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "orgadmin"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "production"),
		AdminKey:          strings.TrimSpace(getenv("OPENAI_ADMIN_KEY", "")),
		BaseURL:           strings.TrimRight(getenv("ORGADMIN_BASE_URL", DefaultBaseURL), "/"),
		RequestTimeout:    time.Duration(getenvInt("ORGADMIN_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries:        getenvInt("ORGADMIN_MAX_RETRIES", 0),
		RequestsPerSecond: getenvFloat("ORGADMIN_REQUESTS_PER_SECOND", 0),
		Debug:             getenvBool("DEBUG", false),
		LogFile:           getenv("ORGADMIN_LOG_FILE", DefaultLogFile),
		UserMappingPath:   getenv("ORGADMIN_USER_MAPPING", DefaultUserMappingPath),
		Mattermost: MattermostConfig{
			BaseURL:  strings.TrimRight(getenv("MATTERMOST_BASE_URL", DefaultMattermostBaseURL), "/"),
			BotToken: strings.TrimSpace(getenv("MATTERMOST_BOT_TOKEN", "")),
			BotID:    strings.TrimSpace(getenv("MATTERMOST_BOT_ID", "")),
		},
		Mail: MailConfig{
			Host:     strings.TrimSpace(getenv("MAIL_HOST", "")),
			Port:     getenvInt("MAIL_PORT", 587),
			Username: getenv("MAIL_USERNAME", ""),
			Password: getenv("MAIL_PASSWORD", ""),
			From:     strings.TrimSpace(getenv("MAIL_FROM_ADDRESS", "")),
			FromName: getenv("MAIL_FROM_NAME", "orgadmin"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: strings.TrimSpace(getenv("ORGADMIN_PUSHGATEWAY_URL", "")),
			Job:            getenv("ORGADMIN_PUSHGATEWAY_JOB", "orgadmin"),
		},
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OtelEnabled:  getenvBool("OTEL_ENABLED", false),
	}

	if v := strings.TrimSpace(o.AdminKey); v != "" {
		cfg.AdminKey = v
	}
	if v := strings.TrimSpace(o.BaseURL); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(o.UserMappingPath); v != "" {
		cfg.UserMappingPath = v
	}
	if o.Debug {
		cfg.Debug = true
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
