package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	c, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.True(t, c.IsDev())
	assert.Contains(t, c.DSN, "dbname=protodesign")
	assert.Equal(t, 8.0, c.Pricing.BaseRate)
	assert.Equal(t, 150, c.Pricing.FixedSurcharge)
	assert.Len(t, c.Pricing.Qualities, 4)
	assert.False(t, c.Mail.Enabled())
}

func TestPricingOverrides(t *testing.T) {
	c, err := FromEnv(env(map[string]string{
		"PRICING_BASE_RATE":       "9.5",
		"PRICING_FIXED_SURCHARGE": "200",
		"PRICING_QUALITIES":       "draft=Draft 0.3mm:0.8; fine=Fine:2.5",
		"PRICING_INFILLS":         "10, 50,100",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9.5, c.Pricing.BaseRate)
	assert.Equal(t, 200, c.Pricing.FixedSurcharge)
	require.Len(t, c.Pricing.Qualities, 2)
	assert.Equal(t, "draft", c.Pricing.Qualities[0].ID)
	assert.Equal(t, "Draft 0.3mm", c.Pricing.Qualities[0].Name)
	assert.Equal(t, 2.5, c.Pricing.Qualities[1].Multiplier)
	assert.Equal(t, []int{10, 50, 100}, c.Pricing.Infills)
}

func TestInvalidValues(t *testing.T) {
	for k, v := range map[string]string{
		"PRICING_BASE_RATE":       "cheap",
		"PRICING_FIXED_SURCHARGE": "-1",
		"PRICING_QUALITIES":       "x=y",
		"PRICING_INFILLS":         "120",
		"SMTP_PORT":               "smtp",
	} {
		_, err := FromEnv(env(map[string]string{k: v}))
		assert.Error(t, err, k)
	}
}

func TestDSNAndMail(t *testing.T) {
	c, err := FromEnv(env(map[string]string{
		"DB_DSN":           "postgres://x",
		"APP_ENV":          "Production",
		"SMTP_HOST":        "smtp.example.com",
		"EMAIL_USER":       "shop@example.com",
		"EMAIL_PASS":       "secret",
		"SESSION_KEY":      "sk",
		"ADMIN_PASS":       "ap",
		"JWT_ADMIN_SECRET": "js",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", c.DSN)
	assert.False(t, c.IsDev())
	assert.True(t, c.Mail.Enabled())
	assert.Equal(t, "shop@example.com", c.Mail.NotifyTo)
}

func TestSecretsDefaultOnlyInDev(t *testing.T) {
	c, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, "dev-insecure", c.SessionKey)
	assert.Equal(t, "admin123", c.AdminPass)
	assert.Equal(t, "dev-admin-secret", c.AdminSecret)

	_, err = FromEnv(env(map[string]string{"APP_ENV": "production", "ADMIN_PASS": "ap"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_KEY")
	assert.Contains(t, err.Error(), "JWT_ADMIN_SECRET")
	assert.NotContains(t, err.Error(), "ADMIN_PASS")

	c, err = FromEnv(env(map[string]string{
		"APP_ENV":     "production",
		"SESSION_KEY": "sk",
		"ADMIN_PASS":  "ap",
		"SECRET_KEY":  "legacy",
		"TRUST_PROXY": "TRUE",
	}))
	require.NoError(t, err)
	assert.Equal(t, "legacy", c.AdminSecret)
	assert.True(t, c.TrustProxy)
}
