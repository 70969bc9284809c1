package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (CYCLEBEES_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CYCLEBEES_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Razorpay    RazorpayConfig
	Hold        HoldConfig
	Sweep       SweepConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// RazorpayConfig holds the payment gateway credentials and call parameters.
// KeySecret doubles as the signature verification secret.
type RazorpayConfig struct {
	KeyID     string        `usage:"Razorpay API key id" flag:"razorpay-key-id"`
	KeySecret string        `usage:"Razorpay API key secret" flag:"razorpay-key-secret"`
	Currency  string        `default:"INR" usage:"Gateway order currency"`
	Timeout   time.Duration `default:"10s" usage:"Gateway call timeout"`
}

// HoldConfig controls how long a request may sit unattended in pending or
// waiting_payment before it becomes expirable.
type HoldConfig struct {
	Window time.Duration `default:"30m" usage:"Hold window for pending requests" flag:"hold-window"`
}

// SweepConfig controls the expiry sweeper.
type SweepConfig struct {
	Interval time.Duration `default:"1m" usage:"Expiry sweep interval" flag:"sweep-interval"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CYCLEBEES",
		Files:     []string{"config.yaml", "/etc/cyclebees/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set CYCLEBEES_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Razorpay.KeySecret == "" {
		return nil, errors.New("Razorpay key secret is required: set CYCLEBEES_RAZORPAY_KEY_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the CYCLEBEES_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
