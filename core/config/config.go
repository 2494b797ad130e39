package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// LineConfig holds LINE Messaging API credentials.
type LineConfig struct {
	ChannelSecret string `yaml:"channel_secret" envconfig:"LINE_CHANNEL_SECRET"`
	AccessToken   string `yaml:"access_token" envconfig:"LINE_ACCESS_TOKEN"`
	APIBaseURL    string `yaml:"api_base_url" envconfig:"LINE_API_BASE_URL"`
	// SkipSignature disables X-Line-Signature verification (local testing only).
	SkipSignature bool `yaml:"skip_signature" envconfig:"LINE_SKIP_SIGNATURE"`
	// TimeoutSeconds bounds a single Messaging API call; 0 -> default
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"LINE_TIMEOUT_SECONDS"`
}

// TelegramConfig holds the optional Telegram channel settings.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"TELEGRAM_ENABLED"`
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies the Telegram webhook listener.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// HTTPConfig describes the HTTP server serving the LINE webhook and the REST API.
type HTTPConfig struct {
	Listen      string   `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port        int      `yaml:"port" envconfig:"PORT"`
	WebhookPath string   `yaml:"webhook_path" envconfig:"LINE_WEBHOOK_PATH"`
	CORSOrigins []string `yaml:"cors_origins" envconfig:"HTTP_CORS_ORIGINS"`
	// ShutdownSeconds bounds graceful shutdown; 0 -> default
	ShutdownSeconds int `yaml:"shutdown_seconds" envconfig:"HTTP_SHUTDOWN_SECONDS"`
}

// Addr returns the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Listen, h.Port)
}

// LoggingConfig selects log format, verbosity and optional file sinks.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// KeysOrder is a comma separated list of keys printed first.
	KeysOrder string `yaml:"keys_order"`
	// DebugSample is "keep/window" or "N" (1 in N) for high-volume debug lines.
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	File        string `yaml:"file"`
	// ErrorsFile receives a copy of ERROR lines.
	ErrorsFile string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// PendingConfig selects the store for multi-turn interactions.
type PendingConfig struct {
	Backend              string `yaml:"backend" envconfig:"PENDING_BACKEND"`
	TTLSeconds           int    `yaml:"ttl_seconds" envconfig:"PENDING_TTL_SECONDS"`
	SweepIntervalSeconds int    `yaml:"sweep_interval_seconds" envconfig:"PENDING_SWEEP_INTERVAL_SECONDS"`
	RedisURL             string `yaml:"redis_url" envconfig:"REDIS_URL"`
	KeyPrefix            string `yaml:"key_prefix" envconfig:"PENDING_KEY_PREFIX"`
}

// SenderConfig tunes the asynchronous reply queue.
type SenderConfig struct {
	Async     bool `yaml:"async" envconfig:"SENDER_ASYNC"`
	Workers   int  `yaml:"workers" envconfig:"SENDER_WORKERS"`
	QueueSize int  `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	// MaxRetries must stay 0; a reply token is single use.
	MaxRetries int `yaml:"max_retries" envconfig:"SENDER_MAX_RETRIES"`
}

// BrokerConfig points at the RabbitMQ exchange receiving lead events.
// An empty URL disables publishing.
type BrokerConfig struct {
	URL        string `yaml:"url" envconfig:"RABBITMQ_URL"`
	Exchange   string `yaml:"exchange" envconfig:"RABBITMQ_EXCHANGE"`
	RoutingKey string `yaml:"routing_key" envconfig:"RABBITMQ_ROUTING_KEY"`
}

// LeadsConfig holds lead-management defaults.
type LeadsConfig struct {
	DefaultOwnerID int64  `yaml:"default_owner_id" envconfig:"LEADS_DEFAULT_OWNER_ID"`
	SearchLimit    int    `yaml:"search_limit" envconfig:"LEADS_SEARCH_LIMIT"`
	PhoneRegion    string `yaml:"phone_region" envconfig:"LEADS_PHONE_REGION"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// PendingMemory keeps pending interactions in process memory.
	PendingMemory = "memory"
	// PendingRedis keeps pending interactions in Redis.
	PendingRedis = "redis"
)

const (
	// EventPostback identifies postback events for rate limit exclusions.
	EventPostback = "postback"
	// EventMessage identifies text message events for rate limit exclusions.
	EventMessage = "message"
	// EventJoin identifies join events for rate limit exclusions.
	EventJoin = "join"
)

// RateLimitConfig holds settings for per-user rate limiting.
// ExcludeEvents accepts event kinds to bypass limiting:
// - "postback": button presses
// - "message": text messages
// - "join": bot added to a group
type RateLimitConfig struct {
	IntervalMS    int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst         int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeEvents []string `yaml:"exclude_events" envconfig:"RATE_LIMIT_EXCLUDE_EVENTS"`
}

// Config aggregates the whole service configuration.
type Config struct {
	Line      LineConfig      `yaml:"line"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Pending   PendingConfig   `yaml:"pending"`
	Sender    SenderConfig    `yaml:"sender"`
	Broker    BrokerConfig    `yaml:"broker"`
	Leads     LeadsConfig     `yaml:"leads"`
}

// CoreConfig lets Config satisfy the runner's ConfigCarrier.
func (c *Config) CoreConfig() *Config { return c }

// Load reads .env (if present), the YAML file and environment variables, in that order.
// A missing YAML file is tolerated so the service can run from environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Line.AccessToken) == "" {
		return fmt.Errorf("line.access_token is required")
	}
	if strings.TrimSpace(cfg.Line.ChannelSecret) == "" && !cfg.Line.SkipSignature {
		return fmt.Errorf("line.channel_secret is required unless line.skip_signature is set")
	}
	if cfg.Line.APIBaseURL == "" {
		cfg.Line.APIBaseURL = "https://api.line.me"
	}
	cfg.Line.APIBaseURL = strings.TrimRight(cfg.Line.APIBaseURL, "/")
	if cfg.Line.TimeoutSeconds <= 0 {
		cfg.Line.TimeoutSeconds = 10
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 4003
	}
	if cfg.HTTP.Port < 0 {
		return fmt.Errorf("http.port must be > 0")
	}
	if cfg.HTTP.WebhookPath == "" {
		cfg.HTTP.WebhookPath = "/webhook"
	}
	if !strings.HasPrefix(cfg.HTTP.WebhookPath, "/") {
		cfg.HTTP.WebhookPath = "/" + cfg.HTTP.WebhookPath
	}
	if cfg.HTTP.ShutdownSeconds <= 0 {
		cfg.HTTP.ShutdownSeconds = 10
	}

	if err := normalizeTelegram(cfg); err != nil {
		return err
	}
	if err := normalizePending(&cfg.Pending); err != nil {
		return err
	}

	if cfg.Sender.Workers <= 0 {
		cfg.Sender.Workers = 2
	}
	if cfg.Sender.QueueSize <= 0 {
		cfg.Sender.QueueSize = 256
	}
	if cfg.Sender.MaxRetries != 0 {
		return fmt.Errorf("sender.max_retries must be 0: replies are never retried")
	}

	if cfg.Broker.URL != "" {
		if cfg.Broker.Exchange == "" {
			cfg.Broker.Exchange = "leads"
		}
		if cfg.Broker.RoutingKey == "" {
			cfg.Broker.RoutingKey = "lead.events"
		}
	}

	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 10
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationsDir == "" {
		cfg.Database.MigrationsDir = "migrations"
	}

	if cfg.Leads.DefaultOwnerID <= 0 {
		cfg.Leads.DefaultOwnerID = 1
	}
	if cfg.Leads.SearchLimit <= 0 {
		cfg.Leads.SearchLimit = 20
	}
	if cfg.Leads.PhoneRegion == "" {
		cfg.Leads.PhoneRegion = "TH"
	}

	allowed := map[string]struct{}{
		EventPostback: {},
		EventMessage:  {},
		EventJoin:     {},
	}
	for i, v := range cfg.RateLimit.ExcludeEvents {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_events value %q; allowed: postback, message, join", v)
		}
		cfg.RateLimit.ExcludeEvents[i] = key
	}
	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 3
	}
	return nil
}

func normalizeTelegram(cfg *Config) error {
	if !cfg.Telegram.Enabled {
		return nil
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required when telegram.enabled is set")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port == cfg.HTTP.Port {
			return fmt.Errorf("webhook.port must differ from http.port")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	return nil
}

func normalizePending(p *PendingConfig) error {
	backend := strings.ToLower(strings.TrimSpace(p.Backend))
	if backend == "" {
		backend = PendingMemory
	}
	switch backend {
	case PendingMemory:
	case PendingRedis:
		if strings.TrimSpace(p.RedisURL) == "" {
			return fmt.Errorf("pending.redis_url is required when pending.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid pending.backend %q; allowed: memory, redis", p.Backend)
	}
	p.Backend = backend

	if p.TTLSeconds < 0 {
		return fmt.Errorf("pending.ttl_seconds must be >= 0")
	}
	if p.TTLSeconds == 0 {
		p.TTLSeconds = 600
	}
	if p.SweepIntervalSeconds <= 0 {
		p.SweepIntervalSeconds = 60
	}
	if p.KeyPrefix == "" {
		p.KeyPrefix = "leadbot:pending:"
	}
	return nil
}
