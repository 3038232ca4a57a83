package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Site      SiteSettings      `mapstructure:"site"`
	Register  RegisterSettings  `mapstructure:"register"`
	Session   SessionSettings   `mapstructure:"session"`
	Social    SocialSettings    `mapstructure:"social"`
	Captcha   CaptchaSettings   `mapstructure:"captcha"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SiteSettings describe the public face of the deployment; URL is the base
// for token links embedded in outbound email.
type SiteSettings struct {
	Name  string `mapstructure:"name"`
	URL   string `mapstructure:"url"`
	Email string `mapstructure:"email"`
}

// RegisterSettings control the registration flow.
type RegisterSettings struct {
	ConfirmEmail bool `mapstructure:"confirm_email"`
	HashCost     int  `mapstructure:"hash_cost"`
}

// SessionSettings configure the signed session cookie.
type SessionSettings struct {
	Secret     string        `mapstructure:"secret"`
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
	Secure     bool          `mapstructure:"secure"`
}

// ProviderSettings hold one OAuth2 provider's client credentials.
type ProviderSettings struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type SocialSettings struct {
	Facebook ProviderSettings `mapstructure:"facebook"`
	Google   ProviderSettings `mapstructure:"google"`
	LinkedIn ProviderSettings `mapstructure:"linkedin"`
}

// CaptchaSettings configure the external CAPTCHA verifier. When disabled the
// contact and registration flows skip verification entirely.
type CaptchaSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// RateLimitSettings configure the sliding-window endpoint limits.
type RateLimitSettings struct {
	WindowDuration      time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts    int           `mapstructure:"login_max_attempts"`
	RegisterMaxAttempts int           `mapstructure:"register_max_attempts"`
	ResetMaxAttempts    int           `mapstructure:"reset_max_attempts"`
	ContactMaxAttempts  int           `mapstructure:"contact_max_attempts"`
}

// Load reads configuration from config.yaml and the environment. Environment
// variables use the IRONODE prefix with underscores for nesting.
func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("IRONODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ironode")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("site.name", "ironode")
	v.SetDefault("site.url", "http://localhost:8080")

	v.SetDefault("register.confirm_email", true)
	v.SetDefault("register.hash_cost", 12)

	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.cookie_name", "ironode_session")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.ssl_mode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("rate_limit.window_duration", time.Minute)
	v.SetDefault("rate_limit.login_max_attempts", 20)
	v.SetDefault("rate_limit.register_max_attempts", 10)
	v.SetDefault("rate_limit.reset_max_attempts", 10)
	v.SetDefault("rate_limit.contact_max_attempts", 10)
}

func (c *AppConfig) validate() error {
	if c.Register.HashCost < 4 || c.Register.HashCost > 31 {
		return fmt.Errorf("register.hash_cost %d outside bcrypt range", c.Register.HashCost)
	}
	if c.Session.Secret == "" && c.App.Env == "production" {
		return fmt.Errorf("session.secret is required in production")
	}
	return nil
}
