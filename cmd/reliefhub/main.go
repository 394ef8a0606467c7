package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/reliefops/reliefhub/internal/auth"
	"github.com/reliefops/reliefhub/internal/config"
	"github.com/reliefops/reliefhub/internal/database"
	"github.com/reliefops/reliefhub/internal/logging"
	"github.com/reliefops/reliefhub/internal/notification"
	"github.com/reliefops/reliefhub/internal/session"
	"github.com/reliefops/reliefhub/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	envFile   string
	port      int
	bind      string
	verbosity int

	// Timeout flags (advanced)
	readTimeout     time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
)

// cfg is loaded once before any command runs
var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "reliefhub",
		Short: "Reliefhub - Disaster relief coordination server",
		Long:  `Reliefhub tracks disasters, relief camps, donations and user accounts behind role-based sessions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(envFile)
			if err != nil {
				return err
			}
			setupLogging(cfg, verbosity)
			return nil
		},
		RunE: runServe,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	addServeFlags(rootCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE:  runServe,
	}
	addServeFlags(serveCmd)

	rootCmd.AddCommand(
		serveCmd,
		bootstrapCmd(),
		userAddCmd(),
		statusCmd(),
		maintenanceCmd(),
		alertTestCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			PersistentPreRun: func(cmd *cobra.Command, args []string) {},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("reliefhub %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port (overrides RELIEFHUB_SERVER_PORT)")
	cmd.Flags().StringVarP(&bind, "bind", "b", "", "IP address to bind to (overrides RELIEFHUB_SERVER_HOST)")

	// Advanced timeout flags
	defaults := config.DefaultTimeoutConfig()
	cmd.Flags().DurationVar(&readTimeout, "read-timeout", defaults.ServerRead, "Maximum duration for reading a request")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", defaults.ServerIdle, "Keep-alive timeout between requests")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", defaults.Shutdown, "Grace period for in-flight requests on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	if port != 0 {
		cfg.ServerPort = port
	}
	if bind != "" {
		cfg.ServerHost = bind
	}

	// Configure global timeouts
	config.SetGlobalTimeouts(&config.TimeoutConfig{
		ServerRead: readTimeout,
		ServerIdle: idleTimeout,
		Shutdown:   shutdownTimeout,
	})

	log.Info().
		Str("version", version).
		Str("addr", cfg.ServerAddr()).
		Str("driver", cfg.DBDriver).
		Str("env", cfg.Env).
		Str("session_store", cfg.SessionStore).
		Msg("Starting Reliefhub")

	db := openDatabase()
	defer db.Close()

	store, stop, err := sessionStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session store")
	}
	defer stop()

	sm := session.New(store, session.Options{
		CookieName: cfg.SessionCookie,
		Lifetime:   cfg.SessionLifetime,
		Secure:     !cfg.IsDevelopment(),
	})
	authService := auth.NewService(database.NewUsers(db), sm, cfg.BcryptCost)

	alerts, err := alertManager()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure alerts")
	}
	if alerts.Start() {
		defer alerts.Stop()
	} else {
		log.Debug().Msg("No alert providers configured")
	}

	server := web.NewServer(db, authService, sm, alerts, cfg.ServerAddr())

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("Reliefhub stopped")
	return nil
}

// openDatabase connects, provisioning the database on first run. Failure is fatal.
func openDatabase() *database.DB {
	db, err := database.Open(cfg.Database())
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Failed to connect to database")
	}
	return db
}

// sessionStore builds the configured scs backend and a function releasing it
func sessionStore(db *database.DB) (scs.Store, func(), error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		store, err := session.NewRedisStore(cfg.RedisURL, "")
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Debug().Err(err).Msg("Failed to close redis session store")
			}
		}, nil
	default:
		store := database.NewSessionStore(db)
		cleaner := session.NewCleaner(store, cfg.SessionCleanup)
		if err := cleaner.Start(); err != nil {
			return nil, nil, err
		}
		return store, cleaner.Stop, nil
	}
}

// alertManager registers a provider for every configured alert URL
func alertManager() (*notification.Manager, error) {
	m := notification.NewManager()
	if cfg.AlertWebhookURL != "" {
		webhook, err := notification.NewWebhookProvider(notification.WebhookConfig{
			URL:     cfg.AlertWebhookURL,
			Method:  cfg.AlertWebhookMethod,
			Body:    cfg.AlertWebhookBody,
			Headers: cfg.AlertWebhookHeaders,
		})
		if err != nil {
			return nil, err
		}
		m.RegisterProvider(webhook)
	}
	if cfg.AlertDiscordURL != "" {
		m.RegisterProvider(notification.NewDiscordProvider(notification.DiscordConfig{
			WebhookURL: cfg.AlertDiscordURL,
			Username:   cfg.AlertDiscordUsername,
		}))
	}
	return m, nil
}

func setupLogging(cfg *config.Config, verbosity int) {
	level := cfg.LogLevel
	switch {
	case verbosity == 1:
		level = "debug"
	case verbosity >= 2:
		level = "trace"
	}

	logging.Apply(level, logging.Options{
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
}
