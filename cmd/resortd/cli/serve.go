package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/palmcove/resortd/internal/config"
	"github.com/palmcove/resortd/internal/janitor"
	"github.com/palmcove/resortd/internal/server"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/session"
	"github.com/palmcove/resortd/internal/store"
)

const redisSessionPrefix = "resortd:session:"

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the resortd API server",
		Long:  "Start the HTTP server for the public catalog, customer accounts and the admin API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dev {
				cfg.Logging.Level = "debug"
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Logging)

	// 1. Database
	st, err := openStore(ctx, cfg.Database, cfg.Database.AutoMigrate)
	switch {
	case err == nil:
		logger.Info("database connected", "driver", cfg.Database.Driver, "migrated", cfg.Database.AutoMigrate)
	case cfg.Fallback.Enabled:
		// Catalog reads fall back to demo data until the database comes back.
		logger.Warn("database unreachable, starting in fallback mode", "error", err)
		st, err = store.Open(ctx, store.Options{
			Driver:          cfg.Database.Driver,
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: config.Duration(cfg.Database.ConnMaxLifetime, 0),
			Lazy:            true,
		})
		if err != nil {
			return err
		}
	default:
		return err
	}

	// 2. Session store
	var (
		sessStore session.Store
		purger    janitor.SessionPurger
	)
	switch cfg.Session.Store {
	case "redis":
		rs, err := session.NewRedisStore(ctx, cfg.Session.RedisURL, redisSessionPrefix)
		if err != nil {
			st.Close()
			return fmt.Errorf("session store: %w", err)
		}
		sessStore = rs
		logger.Info("session store initialized", "backend", "redis")
	default:
		ms := session.NewMemoryStore()
		sessStore, purger = ms, ms
		logger.Info("session store initialized", "backend", "memory")
	}

	secret := cfg.Session.Secret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			st.Close()
			return err
		}
		logger.Warn("session.secret is not set; using a random secret, sessions will not survive a restart")
	}
	sessions, err := session.NewManager(sessStore, session.Options{
		CookieName:  cfg.Session.CookieName,
		Secret:      secret,
		IdleTimeout: config.Duration(cfg.Session.IdleTimeout, session.DefaultIdleTimeout),
		MaxLifetime: config.Duration(cfg.Session.MaxLifetime, session.DefaultMaxLifetime),
		Secure:      cfg.Session.Secure,
		Logger:      logger,
	})
	if err != nil {
		st.Close()
		return fmt.Errorf("session manager: %w", err)
	}

	// 3. Auth services
	auth := service.NewAuthenticator(st, logger, cfg.Auth.MinPasswordLength)
	limiter := service.NewLoginLimiter(cfg.Auth.MaxLoginAttempts,
		config.Duration(cfg.Auth.LockoutDuration, 15*time.Minute))
	activity := service.NewActivityLogger(st, logger)

	var tokens *service.TokenService
	if cfg.Auth.JWTSecret != "" {
		tokens = service.NewTokenService(cfg.Auth.JWTSecret, config.Duration(cfg.Auth.TokenTTL, time.Hour))
	} else {
		logger.Info("auth.jwt_secret is not set; bearer tokens are disabled")
	}

	// 4. First-run check
	if n, err := st.CountAdministrators(ctx); err != nil {
		logger.Warn("failed to count administrators", "error", err)
	} else if n == 0 {
		logger.Warn("no administrator account found - run: resortd admin create --email <email>")
	}

	// 5. Background cleanup
	jan := janitor.New(janitor.Options{
		Interval:  config.Duration(cfg.Janitor.Interval, 10*time.Minute),
		Retention: config.Duration(cfg.Janitor.ActivityRetention, 0),
		Sessions:  purger,
		Activity:  st,
		Logger:    logger,
	})

	// 6. HTTP server
	srvCfg := serverConfig(cfg)
	srv := server.New(srvCfg, server.Services{
		Store:        st,
		Sessions:     sessions,
		SessionStore: sessStore,
		Auth:         auth,
		Limiter:      limiter,
		Activity:     activity,
		Tokens:       tokens,
		Bookings:     service.NewBookingService(st),
		Reports:      service.NewReportService(st),
		Janitor:      jan,
	}, logger)

	printEndpoints(cfg, tokens != nil)
	return srv.ListenAndServe()
}

// serverConfig maps the server section onto server.Config.
func serverConfig(cfg *config.Config) server.Config {
	sc := server.DefaultConfig()
	sc.Host = cfg.Server.Host
	sc.Port = cfg.Server.Port
	sc.ShutdownTimeout = config.Duration(cfg.Server.ShutdownTimeout, sc.ShutdownTimeout)
	if len(cfg.Server.CORS.Origins) > 0 {
		sc.CORSOrigins = cfg.Server.CORS.Origins
	}
	if cfg.Server.MaxBodySize > 0 {
		sc.MaxBodySize = cfg.Server.MaxBodySize
	}
	sc.AuthRequestsPerMinute = cfg.Server.RequestsPerMinute
	sc.Fallback = cfg.Fallback.Enabled
	sc.Version = appVersion
	return sc
}

func printEndpoints(cfg *config.Config, tokens bool) {
	base := "http://" + cfg.Server.Addr()
	fmt.Printf("→ resortd %s\n", appVersion)
	fmt.Printf("→ Listening on %s\n", base)
	fmt.Printf("→ API:        %s/api/v1\n", base)
	fmt.Printf("→ OpenAPI:    %s/openapi.json\n", base)
	fmt.Printf("→ Health:     %s/healthz\n", base)
	fmt.Printf("→ Sessions:   %s\n", cfg.Session.Store)
	if tokens {
		fmt.Printf("→ Tokens:     %s/api/v1/auth/token\n", base)
	}
	fmt.Println()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
