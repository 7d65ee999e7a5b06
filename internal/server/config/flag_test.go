package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-l", ":8081", "-a", "127.0.0.1:9090", "-d", "db", "-s", "secret",
			"-t", "1", "-r", "3", "-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
			"-n", "nats://n:4222", "-o", "http://otel:4318", "-v", "debug", "-k", "12", "-origins", "https://a,https://b",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP:             ":8081",
				EndpointAddrGRPC:             "127.0.0.1:9090",
				DatabaseDSN:                  "db",
				SecretKey:                    "secret",
				AccessTokenValidityDuration:  1 * time.Minute,
				RefreshTokenValidityDuration: 3 * time.Minute,
				S3RootUser:                   "user",
				S3RootPassword:               "password",
				S3Bucket:                     "bucket",
				S3Region:                     "us-west-1",
				S3BaseEndpoint:               "http://endpoint",
				NATSURL:                      "nats://n:4222",
				OTLPEndpoint:                 "http://otel:4318",
				LogLevel:                     "debug",
				BcryptCost:                   12,
				AllowedOrigins:               []string{"https://a", "https://b"},
			}},
		{name: "unrelated flags ignored, durations kept", args: []string{"cmd", "-x", "1", "-test.v"},
			expected: &Config{
				AccessTokenValidityDuration:  30 * time.Second,
				RefreshTokenValidityDuration: 90 * time.Second,
			}},
		{name: "bad int panics", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{
				AccessTokenValidityDuration:  30 * time.Second,
				RefreshTokenValidityDuration: 90 * time.Second,
			}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
