package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for
// logging the effective configuration at startup.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	sanitized.Security.SigningKey = maskSecret(sanitized.Security.SigningKey)
	sanitized.Storage.DSN = maskSecret(sanitized.Storage.DSN)
	sanitized.Redis.Password = maskSecret(sanitized.Redis.Password)
	sanitized.Mail.APIKey = maskSecret(sanitized.Mail.APIKey)
	sanitized.OAuth.Google.ClientSecret = maskSecret(sanitized.OAuth.Google.ClientSecret)

	return &sanitized
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
