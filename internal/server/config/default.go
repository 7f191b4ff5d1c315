package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:8420"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultStorageBackend = "memory"
	DefaultRedisAddr      = "127.0.0.1:6379"

	DefaultCacheSweepInterval = 10 * time.Minute

	DefaultMailProvider = "none"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
				SecureCookies:   true,
			},
		},
		Storage: StorageSection{
			Backend: DefaultStorageBackend,
		},
		Redis: RedisSection{
			Addr: DefaultRedisAddr,
		},
		Security: SecuritySection{
			CacheSweepInterval: DefaultCacheSweepInterval,
		},
		Mail: MailSection{
			Provider: DefaultMailProvider,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
