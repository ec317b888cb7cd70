package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-catalog/config"
	"library-catalog/library"
	"library-catalog/logging"
	"library-catalog/metrics"
	"library-catalog/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Library catalog web application",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	store, err := openSessionStore(ctx, cfg.Session)
	if err != nil {
		return err
	}

	if sqliteStore, ok := store.(*library.SQLiteSessionStore); ok && cfg.Session.TTL > 0 {
		go purgeExpiredSessions(ctx, sqliteStore, logger)
	}

	m := metrics.New()
	manager := library.NewLibraryManager(library.Options{
		SessionStore: store,
		Recorder:     m,
		Logger:       logger,
	})
	defer manager.Close()

	if cfg.Seed != "" {
		books, err := library.LoadSeed(cfg.Seed)
		if err != nil {
			return err
		}
		logger.Info("seeded catalog", "path", cfg.Seed, "books", manager.Seed(books))
	}

	if cfg.Admin.Username != "" {
		if err := bootstrapAdmin(manager, cfg.Admin); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		logger.Info("registered bootstrap account", "username", strings.TrimSpace(cfg.Admin.Username))
	}

	server, err := web.New(web.Config{
		Manager:      manager,
		Logger:       logger,
		Metrics:      m.Handler(),
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
		CookieTTL:    cfg.Session.TTL,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "session_backend", cfg.Session.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openSessionStore(ctx context.Context, cfg config.SessionConfig) (library.SessionStore, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return library.NewSQLiteSessionStore(cfg.SQLitePath, cfg.TTL)
	case config.BackendRedis:
		store := library.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.TTL)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return library.NewMemorySessionStore(), nil
	}
}

// purgeExpiredSessions drops expired SQLite sessions until ctx is done.
func purgeExpiredSessions(ctx context.Context, store *library.SQLiteSessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				logging.LogWarn(ctx, logger, "purge expired sessions", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged expired sessions", "count", n)
			}
		}
	}
}

// bootstrapAdmin registers the configured account, prompting for the
// password on a terminal when none was configured.
func bootstrapAdmin(mgr *library.LibraryManager, admin config.AdminConfig) error {
	password := admin.Password
	if password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return errors.New("no password configured and stdin is not a terminal; set CATALOG_ADMIN_PASSWORD")
		}
		var err error
		password, err = readPassword(fmt.Sprintf("Enter password for %s: ", strings.TrimSpace(admin.Username)))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}
	_, err := mgr.Users.Register(admin.Username, password)
	return err
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}
