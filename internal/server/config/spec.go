package config

import "time"

// ServerConfig is the root configuration for sessguard-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Redis    RedisSection    `koanf:"redis"`
	Security SecuritySection `koanf:"security"`
	Mail     MailSection     `koanf:"mail"`
	OAuth    OAuthSection    `koanf:"oauth"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures the HTTP endpoint.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	TLSCertFile     string        `koanf:"tls_cert_file"`
	TLSKeyFile      string        `koanf:"tls_key_file"`

	// SecureCookies marks issued cookies Secure. Disable only for
	// plain-HTTP development setups.
	SecureCookies bool `koanf:"secure_cookies"`
}

// StorageSection configures the durable session and user store.
type StorageSection struct {
	// Backend selects the store implementation: postgres or memory.
	Backend string `koanf:"backend"`

	// DSN is the postgres connection string. Required for the
	// postgres backend.
	DSN string `koanf:"dsn"`
}

// RedisSection configures the redis instance backing one-time codes.
type RedisSection struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// SecuritySection configures signing and second-factor behavior.
type SecuritySection struct {
	// SigningKey is the HMAC key for session tokens, at least 32
	// bytes. Rotating it invalidates every outstanding session.
	SigningKey string `koanf:"signing_key"`

	// RequireCode turns on mailed one-time codes for password logins.
	RequireCode bool `koanf:"require_code"`

	// CacheSweepInterval is how often the active-session cache is
	// swept for idle entries.
	CacheSweepInterval time.Duration `koanf:"cache_sweep_interval"`
}

// MailSection configures outbound mail.
type MailSection struct {
	// Provider selects the mailer: sendgrid or none.
	Provider  string `koanf:"provider"`
	APIKey    string `koanf:"api_key"`
	FromName  string `koanf:"from_name"`
	FromEmail string `koanf:"from_email"`
}

// OAuthSection configures external identity providers.
type OAuthSection struct {
	Google GoogleOAuthConfig `koanf:"google"`
}

// GoogleOAuthConfig configures Google sign-in. Empty client id
// disables the provider.
type GoogleOAuthConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURL  string `koanf:"redirect_url"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
