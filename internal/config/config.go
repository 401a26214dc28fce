package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	DatabaseURL         string   `env:"DATABASE_URL,required"`
	StripeSecretKey     string   `env:"STRIPE_SECRET_KEY,required"`
	StripeWebhookSecret string   `env:"STRIPE_WEBHOOK_SECRET,required"`
	GeminiAPIKey        string   `env:"GEMINI_API_KEY,required"`
	GoogleClientID      string   `env:"GOOGLE_CLIENT_ID,required"`
	GoogleAllowedDomain string   `env:"GOOGLE_ALLOWED_DOMAIN,required"`
	GoogleAllowedEmails []string `env:"GOOGLE_ALLOWED_EMAILS,required"`
	Port                int      `env:"PORT,default=8080"`
	FrontendURL         string   `env:"FRONTEND_URL,default=http://localhost:3000"`
	LogLevel            string   `env:"LOG_LEVEL,default=info"`
	CORSOrigins         []string `env:"CORS_ORIGINS"`

	// Per-IP rate limit on public endpoints
	RateLimitMax    int           `env:"RATE_LIMIT_MAX,default=100"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW,default=15m"`

	// HTTP server timeouts. Generation requests fan out to the LLM per
	// keyword, so the write timeout is generous.
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=300s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT,default=60s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.StripeSecretKey, "sk_") {
		return fmt.Errorf("STRIPE_SECRET_KEY must be a Stripe secret key (starts with 'sk_')")
	}
	if !strings.HasPrefix(c.StripeWebhookSecret, "whsec_") {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET must be a webhook signing secret (starts with 'whsec_')")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}

	if c.RateLimitMax < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", c.RateLimitMax)
	}

	return nil
}
