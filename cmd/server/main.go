/*
main.go - Application entry point

PURPOSE:
  Starts the timesheet engine server and hosts the operator commands.
  Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  serve          Run the HTTP API
  week show      Print one stored week (days, tasks, activity log)
  week list      List the stored months of an employee
  token issue    Sign a development bearer token

STARTUP SEQUENCE (serve):
  1. Load config (flags > TIMESHEET_* env > --config file > defaults)
  2. Build the logrus logger
  3. Open the document store (sqlite, postgres or memory)
  4. Wire WeekStore, identity resolver, handler and router
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with file database
  TIMESHEET_AUTH_SECRET=... ./server serve --sqlite-path=./data/timesheets.db

  # Run against Postgres
  ./server serve --store=postgres --postgres-dsn=postgres://localhost/timesheets

  # Inspect a week
  ./server week show --employee=emp-1 --week=2025-03-10

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/warp/timesheet-engine/api"
	"github.com/warp/timesheet-engine/config"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/generic/store"
	"github.com/warp/timesheet-engine/identity"
	"github.com/warp/timesheet-engine/store/postgres"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

var (
	v          = config.New()
	configFile string
)

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Weekly timesheet validation and audit engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	addPersistentFlags()
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(weekCmd())
	rootCmd.AddCommand(tokenCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addPersistentFlags() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	pf.String("store", "sqlite", "document store: sqlite, postgres or memory")
	pf.String("sqlite-path", "timesheets.db", "SQLite database path (\":memory:\" for in-memory)")
	pf.String("postgres-dsn", "", "Postgres connection string")
	pf.String("auth-secret", "", "HS256 secret for bearer tokens")
	pf.String("auth-issuer", "", "expected token issuer")
	pf.String("log-level", "info", "log level")
	pf.String("log-format", "json", "log format: json or text")
}

// loadConfig binds the flags of cmd and loads the validated config.
func loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Log, nil)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// =============================================================================
// STORE
// =============================================================================

// documentStore is what the commands need from a backend.
type documentStore interface {
	generic.DocumentStore
	Close() error
}

// pathLister is implemented by the durable backends.
type pathLister interface {
	ListPaths(ctx context.Context, employeeID generic.EmployeeID) ([]generic.DocumentPath, error)
}

type memoryStore struct{ *store.Memory }

func (memoryStore) Close() error { return nil }

func openStore(ctx context.Context, cfg config.StoreConfig) (documentStore, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return memoryStore{store.NewMemory()}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// =============================================================================
// SERVE
// =============================================================================

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Duration("auth-cache-ttl", 5*time.Minute, "identity cache lifetime")
	cmd.Flags().StringSlice("allowed-origins", nil, "CORS allowed origins")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	docs, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer docs.Close()

	weeks := timesheet.NewWeekStore(docs, timesheet.WithLogger(logger))
	handler := api.NewHandler(weeks, logger)

	var resolver identity.Resolver = identity.NewJWTResolver(identity.Config{
		Secret: cfg.Auth.Secret,
		Issuer: cfg.Auth.Issuer,
	})
	if cfg.Auth.CacheTTL > 0 {
		resolver = identity.NewCachingResolver(resolver, cfg.Auth.CacheTTL)
	}

	router := api.NewRouter(handler, api.RouterOptions{
		Resolver:       resolver,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":  cfg.HTTP.Addr,
			"store": cfg.Store.Driver,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// =============================================================================
// TOKEN
// =============================================================================

func tokenCmd() *cobra.Command {
	token := &cobra.Command{Use: "token", Short: "Bearer token helpers"}

	var (
		employee string
		name     string
		admin    bool
		ttl      time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			signed, err := identity.IssueToken(identity.Config{
				Secret: cfg.Auth.Secret,
				Issuer: cfg.Auth.Issuer,
			}, identity.Identity{
				EmployeeID:  generic.EmployeeID(employee),
				IsAdmin:     admin,
				DisplayName: name,
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	issue.Flags().StringVar(&employee, "employee", "", "employee id (sub claim)")
	issue.Flags().StringVar(&name, "name", "", "display name")
	issue.Flags().BoolVar(&admin, "admin", false, "grant admin")
	issue.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = issue.MarkFlagRequired("employee")

	token.AddCommand(issue)
	return token
}
