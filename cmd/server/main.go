package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rosterhq/roster/internal/api"
	"github.com/rosterhq/roster/internal/app"
	"github.com/rosterhq/roster/internal/app/maintenance"
	iauth "github.com/rosterhq/roster/internal/auth"
	"github.com/rosterhq/roster/internal/database"
	"github.com/rosterhq/roster/internal/handlers"
	"github.com/rosterhq/roster/internal/identity"
	"github.com/rosterhq/roster/internal/middleware"
	"github.com/rosterhq/roster/internal/services"
	"github.com/rosterhq/roster/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("roster-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	provider, authenticator, err := initialiseIdentity(cfg)
	if err != nil {
		return err
	}

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		SignInTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	auditService, err := services.NewAuditService(db)
	if err != nil {
		return fmt.Errorf("initialise audit service: %w", err)
	}

	joinService, err := services.NewJoinService(db, provider, auditService,
		services.WithJoinTimeout(cfg.Join.Timeout))
	if err != nil {
		return fmt.Errorf("initialise join service: %w", err)
	}

	tokenService, err := services.NewTokenService(db, auditService,
		services.WithTokenSize(cfg.Join.TokenLength))
	if err != nil {
		return fmt.Errorf("initialise token service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		sweeper := maintenance.NewSweeper(db, auditService,
			maintenance.WithTokenSchedule(cfg.Maintenance.TokenSweepSchedule),
			maintenance.WithAuditSchedule(cfg.Maintenance.AuditSweepSchedule),
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays))
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer func() {
			stopCtx := sweeper.Stop()
			if err := sweeper.RunOnce(stopCtx); err != nil {
				log.Warn("maintenance shutdown sweep failed", zap.Error(err))
			}
		}()
	}

	rateStore := middleware.NewMemoryRateStore()
	defer rateStore.Stop()

	router, err := api.NewRouter(api.Dependencies{
		DB:            db,
		Config:        cfg,
		JoinService:   joinService,
		TokenService:  tokenService,
		JWTService:    jwtService,
		Authenticator: authenticator,
		RateStore:     rateStore,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.StoreDatabaseConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

// initialiseIdentity builds the configured identity provider. The directory
// backend doubles as a password authenticator for the login endpoint; the
// remote backend does not expose one.
func initialiseIdentity(cfg *app.Config) (identity.Provider, handlers.Authenticator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Identity.Backend)) {
	case "", "directory":
		dirDB, err := database.Open(cfg.DirectoryDatabaseConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("open directory database: %w", err)
		}
		provider, err := identity.NewDirectoryProvider(dirDB, identity.DirectoryConfig{})
		if err != nil {
			return nil, nil, fmt.Errorf("initialise directory provider: %w", err)
		}
		return provider, provider, nil
	case "http":
		var client *http.Client
		if cfg.Identity.HTTP.Timeout > 0 {
			client = &http.Client{Timeout: cfg.Identity.HTTP.Timeout}
		}
		provider, err := identity.NewHTTPProvider(identity.HTTPConfig{
			BaseURL: cfg.Identity.HTTP.BaseURL,
			APIKey:  cfg.Identity.HTTP.APIKey,
			Client:  client,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("initialise http provider: %w", err)
		}
		return provider, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported identity backend %q", cfg.Identity.Backend)
	}
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database close skipped", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
