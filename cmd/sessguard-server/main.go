// Package main provides the entry point for sessguard-server.
//
// sessguard-server is the cookie-session authentication service:
// signed session tokens, a durable session store, and an in-process
// active-session cache in front of it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/voralek/sessguard/internal/cache"
	"github.com/voralek/sessguard/internal/collab"
	"github.com/voralek/sessguard/internal/collab/google"
	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/internal/core/service"
	"github.com/voralek/sessguard/internal/infra/buildinfo"
	"github.com/voralek/sessguard/internal/infra/confloader"
	"github.com/voralek/sessguard/internal/infra/shutdown"
	"github.com/voralek/sessguard/internal/otp"
	"github.com/voralek/sessguard/internal/server/config"
	"github.com/voralek/sessguard/internal/server/httpserver"
	"github.com/voralek/sessguard/internal/server/httpserver/handler"
	"github.com/voralek/sessguard/internal/storage/memory"
	"github.com/voralek/sessguard/internal/storage/postgres"
	"github.com/voralek/sessguard/internal/telemetry/logger"
	"github.com/voralek/sessguard/internal/telemetry/metric"
	"github.com/voralek/sessguard/pkg/signer"
)

func main() {
	app := &cli.App{
		Name:    "sessguard-server",
		Usage:   "cookie-session authentication service",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				EnvVars: []string{"SESSGUARD_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "watch-config",
				Usage: "reload the log level when the config file changes",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.String("config"), c.Bool("watch-config"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, watchConfig bool) error {
	cfg, loader, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting sessguard-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile,
	)
	log.Debug("effective configuration", "config", fmt.Sprintf("%+v", config.Sanitize(cfg)))

	ctx := context.Background()

	codec, err := signer.New([]byte(cfg.Security.SigningKey))
	if err != nil {
		return fmt.Errorf("init signer: %w", err)
	}

	sessions, users, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	active := cache.New()
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	go active.Janitor(janitorCtx, cfg.Security.CacheSweepInterval, cache.DefaultIdleEviction)

	sessionSvc := service.NewSessionService(sessions, active, codec)
	authSvc := service.NewAuthService(sessions, users, active, codec)

	var codes *otp.Service
	if cfg.Security.RequireCode {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		codes = otp.NewService(rdb, otp.Config{})
		log.Info("one-time codes enabled", "redis", cfg.Redis.Addr)
	}

	mailer, err := initMailer(cfg, log)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	objects := collab.NewMemObjectStore()
	accountSvc := service.NewAccountService(users, sessionSvc, codes, mailer, nil, objects)

	var googleProvider collab.OAuthProvider
	if cfg.OAuth.Google.ClientID != "" {
		p, err := google.New(ctx, cfg.OAuth.Google.ClientID, cfg.OAuth.Google.ClientSecret, cfg.OAuth.Google.RedirectURL)
		if err != nil {
			return fmt.Errorf("init google oauth: %w", err)
		}
		googleProvider = p
		log.Info("google sign-in enabled")
	}

	metrics := metric.NewRegistry(active)

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		AccountService: accountSvc,
		SessionService: sessionSvc,
		AuthService:    authSvc,
		Google:         googleProvider,
		Objects:        objects,
		Metrics:        metrics,
		Cookies:        handler.CookiePolicy{Secure: cfg.Server.HTTP.SecureCookies},
		Logger:         log,
	})

	httpServer := httpserver.New(cfg.Server.HTTP, router)

	shutdownTimeout := cfg.Server.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownHandler := shutdown.NewHandler(shutdownTimeout)

	// Hooks run in reverse order of registration.
	shutdownHandler.OnShutdown(func(context.Context) error {
		stopJanitor()
		return closeStorage()
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	if watchConfig && configFile != "" {
		watcher, err := confloader.NewWatcher(configFile, log)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		watchCtx, stopWatch := context.WithCancel(ctx)
		defer stopWatch()
		go watcher.Run(watchCtx, func() {
			fresh := config.Default()
			if err := loader.Reload(fresh); err != nil {
				log.Warn("config reload failed", "error", err)
				return
			}
			logger.SetLevel(fresh.Log.Level)
			log.Info("log level reloaded", "level", fresh.Log.Level)
		})
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)

		var err error
		if cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil {
			log.Error("HTTP server error", "error", err)
		}
	}()

	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig builds the effective configuration from defaults, the
// optional file, and SESSGUARD_ environment variables.
func loadConfig(configFile string) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	var opts []confloader.Option
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

// openStorage opens the configured backend and returns the two
// repositories plus a close function.
func openStorage(ctx context.Context, cfg *config.ServerConfig, log logger.Logger) (service.SessionRepository, service.UserRepository, func() error, error) {
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := postgres.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		log.Info("storage backend ready", "backend", cfg.Storage.Backend)
		return postgres.NewSessionStore(pool), postgres.NewUserStore(pool), func() error {
			pool.Close()
			return nil
		}, nil

	case "memory":
		log.Warn("using in-memory storage, sessions will not survive a restart")
		return memory.NewSessionStore(), memory.NewUserStore(), func() error { return nil }, nil

	default:
		return nil, nil, nil, domain.ErrInvalidArgument.WithDetails("unknown storage backend: " + cfg.Storage.Backend)
	}
}

// initMailer builds the configured outbound mailer.
func initMailer(cfg *config.ServerConfig, log logger.Logger) (collab.Mailer, error) {
	switch cfg.Mail.Provider {
	case "sendgrid":
		m, err := collab.NewSendGridMailer(cfg.Mail.APIKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
		if err != nil {
			return nil, err
		}
		log.Info("sendgrid mailer enabled", "from", cfg.Mail.FromEmail)
		return m, nil
	default:
		log.Warn("outbound mail disabled, codes and welcomes are dropped")
		return collab.NopMailer{}, nil
	}
}
