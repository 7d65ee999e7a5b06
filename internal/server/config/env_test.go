package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_OverlaysOnlySetVariables(t *testing.T) {
	t.Setenv("GOPHAUTH_ACCESS_TOKEN_TTL", "90s")
	t.Setenv("GOPHAUTH_BCRYPT_COST", "12")
	t.Setenv("GOPHAUTH_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("GOPHAUTH_NATS_URL", "nats://nats:4222")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, 90*time.Second, c.AccessTokenValidityDuration)
	assert.Equal(t, 12, c.BcryptCost)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, "nats://nats:4222", c.NATSURL)

	assert.Equal(t, "secretKey", c.SecretKey, "unset variables keep their value")
	assert.Equal(t, 24*time.Hour, c.RefreshTokenValidityDuration)
}

func TestParseEnv_BadValuePanics(t *testing.T) {
	t.Setenv("GOPHAUTH_STORE_TIMEOUT", "soon")

	var c Config
	require.Panics(t, func() { parseEnv(&c) })
}
