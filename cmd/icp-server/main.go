// Package main provides the HTTP server of the Ingestion Control Panel.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/auth"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/config"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/db"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/gateway"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/metrics"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/server"
)

var (
	configPath string
	staticDir  string

	tokenSubject string
	tokenEmail   string
	tokenTTL     time.Duration

	promoteEmail string
	promoteRole  string
)

var rootCmd = &cobra.Command{
	Use:           "icp-server",
	Short:         "Ingestion Control Panel server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an access token with the configured JWT secret (development)",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

var promoteCmd = &cobra.Command{
	Use:   "promote <profile-id>",
	Short: "Create or activate a profile and assign it a role",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromote,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./icp.yaml)")
	rootCmd.Flags().StringVar(&staticDir, "static", "", "directory of a built web UI to serve")

	tokenCmd.Flags().StringVar(&tokenSubject, "sub", "", "user id (subject)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "user email")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")

	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email for a new profile")
	promoteCmd.Flags().StringVar(&promoteRole, "role", string(auth.RoleAdmin), "role to assign")

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(promoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *slog.Logger, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, closeLog := config.SetupLogger(cfg.Log, cfg.LogLevel())
	slog.SetDefault(logger)
	return cfg, logger, closeLog, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("starting icp-server", "addr", cfg.Addr(), "gateway", cfg.Gateway.URL)

	opts := server.Options{
		Gateway: gateway.NewClient(gateway.Config{
			BaseURL:   cfg.Gateway.URL,
			APIKey:    cfg.Gateway.APIKey,
			Timeout:   cfg.Gateway.Timeout,
			RateLimit: cfg.Gateway.RateLimit,
			RateBurst: cfg.Gateway.RateBurst,
		}),
		Metrics:      metrics.NewCollector(),
		PollInterval: cfg.Monitoring.PollInterval,
		StaticDir:    staticDir,
		Logger:       logger,
	}
	if !opts.Gateway.HasAPIKey() {
		logger.Warn("gateway API key not set, proxy routes will answer with a configuration error")
	}
	if cfg.Typesense.URL != "" {
		opts.Typesense = gateway.NewClient(gateway.Config{
			BaseURL:   cfg.Typesense.URL,
			APIKey:    cfg.Typesense.APIKey,
			KeyHeader: gateway.HeaderTypesenseAPIKey,
			Timeout:   10 * time.Second,
		})
	}

	var store *db.Client
	if cfg.Supabase.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		store, err = openStore(ctx, cfg, logger)
		cancel()
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Admin = store
	} else {
		logger.Warn("no database configured, admin API disabled")
	}

	if cfg.Supabase.JWTSecret != "" {
		verifier := auth.NewVerifier(cfg.Supabase.JWTSecret, auth.DefaultAudience)
		var profiles auth.ProfileStore
		if store != nil {
			profiles = store
		}
		opts.Gate = auth.NewGate(verifier, profiles, logger)
	} else {
		logger.Warn("no JWT secret configured, authentication disabled")
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.New(opts).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("control panel available", "url", fmt.Sprintf("http://localhost:%d/", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*db.Client, error) {
	store, err := db.NewClient(ctx, db.Config{URL: cfg.Supabase.DatabaseURL}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, _, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Supabase.JWTSecret == "" {
		return errors.New("no JWT secret configured")
	}

	now := time.Now()
	claims := auth.Claims{Email: tokenEmail}
	claims.Subject = tokenSubject
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(tokenTTL))

	signed, err := auth.NewVerifier(cfg.Supabase.JWTSecret, auth.DefaultAudience).Sign(claims)
	if err != nil {
		return err
	}
	fmt.Println(signed)
	return nil
}

func runPromote(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Supabase.DatabaseURL == "" {
		return errors.New("no database configured")
	}
	role, ok := auth.ParseRole(promoteRole)
	if !ok {
		return fmt.Errorf("unknown role %q", promoteRole)
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if promoteEmail != "" {
		if _, err := store.UpsertProfile(ctx, models.Profile{ID: args[0], Email: promoteEmail}); err != nil {
			return err
		}
	}

	roles, err := store.ListRoles(ctx)
	if err != nil {
		return err
	}
	var roleID int64
	for _, r := range roles {
		if r.Name == string(role) {
			roleID = r.ID
		}
	}
	if roleID == 0 {
		return fmt.Errorf("role %q is not seeded", role)
	}

	active := true
	profile, err := store.UpdateProfile(ctx, args[0], models.ProfileUpdate{RoleID: &roleID, IsActive: &active})
	if err != nil {
		return fmt.Errorf("promote %s: %w", args[0], err)
	}
	fmt.Printf("%s is now an active %s\n", orEmail(profile), role)
	return nil
}

func orEmail(p *models.Profile) string {
	if p.Email != "" {
		return p.Email
	}
	return p.ID
}
