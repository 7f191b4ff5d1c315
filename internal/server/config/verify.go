package config

import (
	"errors"
	"fmt"

	"github.com/voralek/sessguard/pkg/signer"
)

// Verify validates the configuration before startup.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifySecurity(&cfg.Security); err != nil {
		return err
	}
	return verifyMail(&cfg.Mail)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http: tls_cert_file and tls_key_file must be set together")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case "memory":
		return nil
	case "postgres":
		if cfg.DSN == "" {
			return errors.New("storage.dsn is required for the postgres backend")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend %q is not supported (memory, postgres)", cfg.Backend)
	}
}

func verifySecurity(cfg *SecuritySection) error {
	if len(cfg.SigningKey) < signer.MinKeyLength {
		return fmt.Errorf("security.signing_key must be at least %d bytes", signer.MinKeyLength)
	}
	if cfg.CacheSweepInterval <= 0 {
		return errors.New("security.cache_sweep_interval must be positive")
	}
	return nil
}

func verifyMail(cfg *MailSection) error {
	switch cfg.Provider {
	case "", "none":
		return nil
	case "sendgrid":
		if cfg.APIKey == "" || cfg.FromEmail == "" {
			return errors.New("mail: api_key and from_email are required for sendgrid")
		}
		return nil
	default:
		return fmt.Errorf("mail.provider %q is not supported (none, sendgrid)", cfg.Provider)
	}
}
