package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS      bool          `mapstructure:"enable_cors"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	Database           string        `mapstructure:"database"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	MaxOpenConnections int           `mapstructure:"max_open_connections"`
	MaxIdleConnections int           `mapstructure:"max_idle_connections"`
	ConnMaxLife        time.Duration `mapstructure:"conn_max_life"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Password      string        `mapstructure:"password"`
	Database      int           `mapstructure:"database"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	ProfileTTL    time.Duration `mapstructure:"profile_ttl"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	OperationTTL  time.Duration `mapstructure:"operation_ttl"`
	SweepLockTTL  time.Duration `mapstructure:"sweep_lock_ttl"`
	WorkerLockTTL time.Duration `mapstructure:"worker_lock_ttl"`
}

type RabbitMQConfig struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	Queue            string `mapstructure:"queue"`
	PrefetchCount    int    `mapstructure:"prefetch_count"`
	MaxRetryAttempts int    `mapstructure:"max_retry_attempts"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	OutputFile string `mapstructure:"output_file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type GoogleConfig struct {
	ClientID              string        `mapstructure:"client_id"`
	ClientSecret          string        `mapstructure:"client_secret"`
	TokenURL              string        `mapstructure:"token_url"`
	BaseURL               string        `mapstructure:"base_url"`
	Timeout               time.Duration `mapstructure:"timeout"`
	RateLimit             float64       `mapstructure:"rate_limit"`
	BurstLimit            int           `mapstructure:"burst_limit"`
	BreakerMaxFailures    uint32        `mapstructure:"breaker_max_failures"`
	BreakerResetTimeout   time.Duration `mapstructure:"breaker_reset_timeout"`
	BreakerHalfOpenProbes uint32        `mapstructure:"breaker_half_open_probes"`
}

type FacebookConfig struct {
	AppID     string        `mapstructure:"app_id"`
	AppSecret string        `mapstructure:"app_secret"`
	GraphURL  string        `mapstructure:"graph_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type AutoReplyConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	DraftTimeout   time.Duration `mapstructure:"draft_timeout"`
	PostTimeout    time.Duration `mapstructure:"post_timeout"`
	FailedCooldown time.Duration `mapstructure:"failed_cooldown"`
}

type SyncConfig struct {
	MaxPages     int           `mapstructure:"max_pages"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

type TokenConfig struct {
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
}

// DomainConfig configures the review reply engine shared by the API and the
// worker.
type DomainConfig struct {
	Google    GoogleConfig    `mapstructure:"google"`
	Facebook  FacebookConfig  `mapstructure:"facebook"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	AutoReply AutoReplyConfig `mapstructure:"auto_reply"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Tokens    TokenConfig     `mapstructure:"tokens"`
}

type Validator interface {
	Validate() error
}

// Load reads ../.env and ../config.yaml, then decodes one top-level section
// into out and validates it.
func Load(section string, out Validator) error {
	if err := gotenv.Load("../.env"); err != nil {
		_ = gotenv.Load()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("..")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return decode(v, section, out)
}

func decode(v *viper.Viper, section string, out Validator) error {
	if err := v.UnmarshalKey(section, out); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	if expander, ok := out.(interface{ ExpandEnv() }); ok {
		expander.ExpandEnv()
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func (c *DatabaseConfig) ExpandEnv() {
	c.Host = os.ExpandEnv(c.Host)
	c.Username = os.ExpandEnv(c.Username)
	c.Password = os.ExpandEnv(c.Password)
	c.Database = os.ExpandEnv(c.Database)
	c.SSLMode = os.ExpandEnv(c.SSLMode)
}

func (c *RedisConfig) ExpandEnv() {
	c.Host = os.ExpandEnv(c.Host)
	c.Password = os.ExpandEnv(c.Password)
}

func (c *RabbitMQConfig) ExpandEnv() {
	c.Host = os.ExpandEnv(c.Host)
	c.User = os.ExpandEnv(c.User)
	c.Password = os.ExpandEnv(c.Password)
}

func (c *DomainConfig) ExpandEnv() {
	c.Google.ClientID = os.ExpandEnv(c.Google.ClientID)
	c.Google.ClientSecret = os.ExpandEnv(c.Google.ClientSecret)
	c.Facebook.AppID = os.ExpandEnv(c.Facebook.AppID)
	c.Facebook.AppSecret = os.ExpandEnv(c.Facebook.AppSecret)
	c.Gemini.APIKey = os.ExpandEnv(c.Gemini.APIKey)
}

func (c *DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, sslMode)
}

func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return errors.New("database host is required")
	}
	if c.Database == "" {
		return errors.New("database name is required")
	}
	return nil
}

func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Password, c.Host, c.Port)
}

func (c *RabbitMQConfig) Validate() error {
	if c.Host == "" {
		return errors.New("rabbitmq host is required")
	}
	if c.Queue == "" {
		return errors.New("rabbitmq queue is required")
	}
	return nil
}

func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Port)
	}
	return nil
}

func (c *DomainConfig) Validate() error {
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		return errors.New("google OAuth client id and secret are required")
	}
	if c.Google.BaseURL != "" && !strings.HasPrefix(c.Google.BaseURL, "http://") && !strings.HasPrefix(c.Google.BaseURL, "https://") {
		c.Google.BaseURL = "https://" + c.Google.BaseURL
	}
	if c.Google.RateLimit <= 0 {
		c.Google.RateLimit = 5
	}
	if c.Google.BurstLimit <= 0 {
		c.Google.BurstLimit = 1
	}
	if c.AutoReply.BatchSize < 0 {
		return fmt.Errorf("invalid auto reply batch size: %d", c.AutoReply.BatchSize)
	}
	if c.Sync.MaxPages < 0 {
		return fmt.Errorf("invalid sync max pages: %d", c.Sync.MaxPages)
	}
	return nil
}
