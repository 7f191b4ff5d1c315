package config

import (
	"strings"
	"testing"
)

func validConfig() *ServerConfig {
	cfg := Default()
	cfg.Security.SigningKey = "0123456789abcdef0123456789abcdef"
	return cfg
}

func TestVerifyDefaults(t *testing.T) {
	if err := Verify(validConfig()); err != nil {
		t.Errorf("Verify defaults = %v, want nil", err)
	}
}

func TestVerifyRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantSub string
	}{
		{
			"missing addr",
			func(c *ServerConfig) { c.Server.HTTP.Addr = "" },
			"server.http.addr",
		},
		{
			"lone tls cert",
			func(c *ServerConfig) { c.Server.HTTP.TLSCertFile = "/etc/tls/cert.pem" },
			"must be set together",
		},
		{
			"short signing key",
			func(c *ServerConfig) { c.Security.SigningKey = "too-short" },
			"signing_key",
		},
		{
			"zero sweep interval",
			func(c *ServerConfig) { c.Security.CacheSweepInterval = 0 },
			"cache_sweep_interval",
		},
		{
			"unknown backend",
			func(c *ServerConfig) { c.Storage.Backend = "sqlite" },
			"not supported",
		},
		{
			"postgres without dsn",
			func(c *ServerConfig) { c.Storage.Backend = "postgres" },
			"storage.dsn",
		},
		{
			"sendgrid without key",
			func(c *ServerConfig) { c.Mail.Provider = "sendgrid" },
			"api_key",
		},
		{
			"unknown mailer",
			func(c *ServerConfig) { c.Mail.Provider = "pigeon" },
			"not supported",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Verify(cfg)
			if err == nil {
				t.Fatal("Verify accepted an invalid config")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestSanitizeMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DSN = "postgres://user:hunter2@db:5432/sessguard"
	cfg.Redis.Password = "redispass"
	cfg.Mail.APIKey = "SG.abcdefghijklmnop"
	cfg.OAuth.Google.ClientSecret = "gocspx-secret"

	clean := Sanitize(cfg)

	for name, value := range map[string]string{
		"signing key":   clean.Security.SigningKey,
		"dsn":           clean.Storage.DSN,
		"redis":         clean.Redis.Password,
		"mail api key":  clean.Mail.APIKey,
		"client secret": clean.OAuth.Google.ClientSecret,
	} {
		if !strings.Contains(value, "*") {
			t.Errorf("%s not masked: %q", name, value)
		}
	}

	// The original is untouched.
	if strings.Contains(cfg.Storage.DSN, "*") {
		t.Error("Sanitize mutated the original config")
	}

	// Empty secrets stay empty instead of becoming mask noise.
	if got := Sanitize(Default()).Mail.APIKey; got != "" {
		t.Errorf("empty secret masked to %q", got)
	}
}
