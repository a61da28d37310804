package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "KAABE"
	defaultAPIURL = "http://127.0.0.1:8000"
)

type Config struct {
	Env   string
	Debug bool

	APIURL      string
	SessionPath string
	HTTPTimeout time.Duration

	DashboardPollInterval    time.Duration
	NotificationPollInterval time.Duration

	RedisURL     string
	RollbarToken string

	RevenuePerProUser int

	MockAddr      string
	MockJWTSecret string
}

func defaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("env", "dev")
	v.SetDefault("debug", false)
	v.SetDefault("api_url", defaultAPIURL)
	v.SetDefault("session_path", defaultSessionPath())
	v.SetDefault("http_timeout", time.Duration(0))
	v.SetDefault("dashboard_poll_interval", 15*time.Second)
	v.SetDefault("notification_poll_interval", 30*time.Second)
	v.SetDefault("redis_url", "")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("revenue_per_pro_user", 10000)
	v.SetDefault("mock_addr", ":8000")
	v.SetDefault("mock_jwt_secret", "kaabe-dev-secret-change-me")
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "kaabe-session.db"
	}
	return filepath.Join(home, ".kaabe", "session.db")
}

// Load reads defaults, an optional .env file, the optional config file and
// KAABE_* environment variables, in increasing order of precedence.
func Load(file string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config.ReadInConfig(%s)", file)
		}
	}

	return fromViper(v)
}

func loadDotEnv() error {
	path := os.Getenv(envPrefix + "_DOTENV")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "config.os.Stat(%s)", path)
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "config.godotenv(%s)", path)
	}
	return nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:                      strings.ToLower(strings.TrimSpace(v.GetString("env"))),
		Debug:                    v.GetBool("debug"),
		APIURL:                   strings.TrimRight(strings.TrimSpace(v.GetString("api_url")), "/"),
		SessionPath:              strings.TrimSpace(v.GetString("session_path")),
		HTTPTimeout:              v.GetDuration("http_timeout"),
		DashboardPollInterval:    v.GetDuration("dashboard_poll_interval"),
		NotificationPollInterval: v.GetDuration("notification_poll_interval"),
		RedisURL:                 strings.TrimSpace(v.GetString("redis_url")),
		RollbarToken:             strings.TrimSpace(v.GetString("rollbar_token")),
		RevenuePerProUser:        v.GetInt("revenue_per_pro_user"),
		MockAddr:                 v.GetString("mock_addr"),
		MockJWTSecret:            v.GetString("mock_jwt_secret"),
	}

	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	parsed, err := url.Parse(cfg.APIURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.Errorf("invalid api_url %q", cfg.APIURL)
	}
	if cfg.DashboardPollInterval <= 0 {
		return nil, errors.New("dashboard_poll_interval must be positive")
	}
	if cfg.NotificationPollInterval <= 0 {
		return nil, errors.New("notification_poll_interval must be positive")
	}
	if cfg.HTTPTimeout < 0 {
		cfg.HTTPTimeout = 0
	}
	return cfg, nil
}
