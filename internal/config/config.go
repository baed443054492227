package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/kainapp/backend-kain/internal/gateway"
	"github.com/kainapp/backend-kain/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	CurrencyCode  string
	CurrencyRates map[string]decimal.Decimal

	PricingGSTRateBps int
	ShippingFlat      pricing.Money

	CODEnabled          bool
	PartialCODEnabled   bool
	RazorpayEnabled     bool
	StripeEnabled       bool
	PartialCODAdvance   int
	CODCharge           pricing.Money
	APIGateways         []string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	RazorpayBaseURL       string
	StripeAPIKey          string
	StripeWebhookSecret   string

	CartTTL         time.Duration
	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	rates, err := parseRates(k.String("CURRENCY_RATES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CurrencyCode:  valueOrDefault(k.String("CURRENCY_CODE"), "INR"),
		CurrencyRates: rates,

		PricingGSTRateBps: parseInt(k.String("PRICING_GST_RATE_BPS"), 500),
		ShippingFlat:      pricing.Money(parseInt64(k.String("SHIPPING_FLAT"), 0)),

		CODEnabled:        parseBoolDefault(k.String("COD_ENABLED"), true),
		PartialCODEnabled: parseBoolDefault(k.String("PARTIAL_COD_ENABLED"), false),
		RazorpayEnabled:   parseBoolDefault(k.String("RAZORPAY_ENABLED"), false),
		StripeEnabled:     parseBoolDefault(k.String("STRIPE_ENABLED"), false),
		PartialCODAdvance: parseInt(k.String("PARTIAL_COD_ADVANCE_BPS"), 2500),
		CODCharge:         pricing.Money(parseInt64(k.String("COD_CHARGE"), 0)),
		APIGateways:       splitAndTrim(k.String("API_GATEWAYS")),

		RazorpayKeyID:         k.String("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     k.String("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: k.String("RAZORPAY_WEBHOOK_SECRET"),
		RazorpayBaseURL:       valueOrDefault(k.String("RAZORPAY_BASE_URL"), "https://api.razorpay.com"),
		StripeAPIKey:          k.String("STRIPE_API_KEY"),
		StripeWebhookSecret:   k.String("STRIPE_WEBHOOK_SECRET"),

		CartTTL:         parseDuration(k.String("CART_TTL"), "168h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
	}

	if cfg.PartialCODAdvance <= 0 || cfg.PartialCODAdvance > 10000 {
		return nil, errors.New("PARTIAL_COD_ADVANCE_BPS must be within (0, 10000]")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}

// GatewayConfig projects the loaded flags onto the resolver's configuration.
func (c *Config) GatewayConfig() gateway.Config {
	return gateway.Config{
		CODEnabled:           c.CODEnabled,
		PartialCODEnabled:    c.PartialCODEnabled,
		RazorpayEnabled:      c.RazorpayEnabled,
		StripeEnabled:        c.StripeEnabled,
		PartialCODAdvanceBps: c.PartialCODAdvance,
		CODCharge:            c.CODCharge,
	}
}

// APIGatewaySet returns the credentialed gateways as a lookup set. An empty
// API_GATEWAYS list means every enabled gateway is considered credentialed.
func (c *Config) APIGatewaySet() map[gateway.Gateway]bool {
	if len(c.APIGateways) == 0 {
		set := map[gateway.Gateway]bool{}
		if c.RazorpayEnabled {
			set[gateway.Razorpay] = true
		}
		if c.StripeEnabled {
			set[gateway.Stripe] = true
		}
		return set
	}
	set := make(map[gateway.Gateway]bool, len(c.APIGateways))
	for _, name := range c.APIGateways {
		set[gateway.Gateway(strings.ToUpper(strings.TrimSpace(name)))] = true
	}
	return set
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// parseRates parses "USD=0.012,EUR=0.011" pairs into decimal rates.
func parseRates(value string) (map[string]decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	out := map[string]decimal.Decimal{}
	for _, pair := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(pair)
		if trimmed == "" {
			continue
		}
		code, raw, ok := strings.Cut(trimmed, "=")
		if !ok {
			return nil, fmt.Errorf("CURRENCY_RATES: malformed pair %q", trimmed)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("CURRENCY_RATES: %s: %w", code, err)
		}
		out[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return out, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
