// Package config reads the service settings from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/phenrril/protoquote/internal/adapters/notify/mail"
	"github.com/phenrril/protoquote/internal/domain"
)

type Config struct {
	Env        string
	Port       string
	DSN        string
	StorageDir string
	BaseURL    string
	TrustProxy bool

	SessionKey  string
	AdminUser   string
	AdminPass   string
	AdminSecret string

	GoogleClientID     string
	GoogleClientSecret string

	Mail    mail.Config
	Pricing domain.Pricing
}

func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "dev"
}

func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from any lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	first := func(def string, keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				return v
			}
		}
		return def
	}

	c := Config{
		Env:                strings.ToLower(get("APP_ENV", "")),
		Port:               get("PORT", "8080"),
		StorageDir:         get("STORAGE_DIR", "uploads"),
		BaseURL:            get("BASE_URL", "http://localhost:8080"),
		TrustProxy:         strings.EqualFold(get("TRUST_PROXY", ""), "true"),
		SessionKey:         get("SESSION_KEY", ""),
		AdminUser:          get("ADMIN_USER", "admin"),
		AdminPass:          get("ADMIN_PASS", ""),
		AdminSecret:        first("", "JWT_ADMIN_SECRET", "SECRET_KEY"),
		GoogleClientID:     get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: get("GOOGLE_CLIENT_SECRET", ""),
	}

	if err := c.applySecretDefaults(); err != nil {
		return c, err
	}

	c.DSN = get("DB_DSN", "")
	if c.DSN == "" {
		c.DSN = "host=" + get("DB_HOST", "localhost") +
			" user=" + first("postgres", "DB_USER", "POSTGRES_USER") +
			" password=" + first("postgres", "DB_PASSWORD", "POSTGRES_PASSWORD") +
			" dbname=" + first("protodesign", "DB_NAME", "POSTGRES_DB") +
			" port=" + get("DB_PORT", "5432") +
			" sslmode=" + get("DB_SSLMODE", "disable")
	}

	smtpPort, err := strconv.Atoi(get("SMTP_PORT", "587"))
	if err != nil {
		return c, fmt.Errorf("SMTP_PORT: %w", err)
	}
	c.Mail = mail.Config{
		Host:     get("SMTP_HOST", ""),
		Port:     smtpPort,
		User:     first("", "SMTP_USER", "EMAIL_USER"),
		Pass:     first("", "SMTP_PASS", "EMAIL_PASS"),
		From:     get("SMTP_FROM", ""),
		NotifyTo: get("QUOTE_NOTIFY_EMAIL", ""),
	}
	if c.Mail.NotifyTo == "" {
		c.Mail.NotifyTo = c.Mail.User
	}

	p, err := pricingFromEnv(get)
	if err != nil {
		return c, err
	}
	c.Pricing = p
	return c, nil
}

// applySecretDefaults fills dev-only secrets. Outside dev every secret must
// be set explicitly.
func (c *Config) applySecretDefaults() error {
	secrets := []struct {
		key string
		dst *string
		dev string
	}{
		{"SESSION_KEY", &c.SessionKey, "dev-insecure"},
		{"ADMIN_PASS", &c.AdminPass, "admin123"},
		{"JWT_ADMIN_SECRET", &c.AdminSecret, "dev-admin-secret"},
	}
	var missing []string
	for _, s := range secrets {
		if *s.dst != "" {
			continue
		}
		if c.IsDev() {
			*s.dst = s.dev
			continue
		}
		missing = append(missing, s.key)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required when APP_ENV=%s", strings.Join(missing, ", "), c.Env)
	}
	return nil
}

func pricingFromEnv(get func(string, string) string) (domain.Pricing, error) {
	p := domain.DefaultPricing()
	if v := get("PRICING_BASE_RATE", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return p, fmt.Errorf("PRICING_BASE_RATE: invalid %q", v)
		}
		p.BaseRate = f
	}
	if v := get("PRICING_FIXED_SURCHARGE", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("PRICING_FIXED_SURCHARGE: invalid %q", v)
		}
		p.FixedSurcharge = n
	}
	if v := get("PRICING_QUALITIES", ""); v != "" {
		tiers, err := ParseQualities(v)
		if err != nil {
			return p, fmt.Errorf("PRICING_QUALITIES: %w", err)
		}
		p.Qualities = tiers
	}
	if v := get("PRICING_INFILLS", ""); v != "" {
		var infills []int
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 0 || n > 100 {
				return p, fmt.Errorf("PRICING_INFILLS: invalid %q", part)
			}
			infills = append(infills, n)
		}
		p.Infills = infills
	}
	return p, nil
}

// ParseQualities reads "id=Label:multiplier;id2=Label 2:multiplier".
func ParseQualities(s string) ([]domain.QualityTier, error) {
	var out []domain.QualityTier
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, rest, ok := strings.Cut(entry, "=")
		i := strings.LastIndex(rest, ":")
		if !ok || i < 0 || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("bad tier %q", entry)
		}
		mult, err := strconv.ParseFloat(strings.TrimSpace(rest[i+1:]), 64)
		if err != nil || mult <= 0 {
			return nil, fmt.Errorf("bad multiplier in %q", entry)
		}
		name := strings.TrimSpace(rest[:i])
		if name == "" {
			name = strings.TrimSpace(id)
		}
		out = append(out, domain.QualityTier{ID: strings.TrimSpace(id), Name: name, Multiplier: mult})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no tiers")
	}
	return out, nil
}
