package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/identity-management/internal"
	"github.com/frahmantamala/identity-management/internal/auth"
	authPostgres "github.com/frahmantamala/identity-management/internal/auth/postgres"
	"github.com/frahmantamala/identity-management/internal/role"
	rolePostgres "github.com/frahmantamala/identity-management/internal/role/postgres"
	"github.com/frahmantamala/identity-management/internal/transport/rest"
	"github.com/frahmantamala/identity-management/internal/user"
	userPostgres "github.com/frahmantamala/identity-management/internal/user/postgres"
	"github.com/frahmantamala/identity-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Dependencies holds everything constructed once at process start. Services
// are wired here and passed by reference; there are no package-level
// singletons.
type Dependencies struct {
	Config      *internal.Config
	DB          *sqlx.DB
	GormDB      *gorm.DB
	Router      *chi.Mux
	AuthHandler *auth.Handler
	Resolver    *auth.Resolver
	UserHandler *user.Handler
	RoleHandler *role.Handler
	Logger      *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(
		deps.Router,
		deps.DB.DB,
		deps.AuthHandler,
		deps.Resolver,
		deps.UserHandler,
		deps.RoleHandler,
		deps.Logger,
	)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	lg := logger.L()

	if err := validateOpenAPISpec("api/openapi.yml", lg); err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	authRepo := authPostgres.NewRepository(gormDB)
	userRepo := userPostgres.NewRepository(gormDB)
	roleRepo := rolePostgres.NewRepository(gormDB)

	tokenGen := auth.NewJWTTokenGenerator(config.Security.JWTSecret, config.Security.SessionTTL)
	authService := auth.NewService(authRepo, tokenGen, config.Security.SessionTTL, lg)
	userService := user.NewService(userRepo, config.Security.BCryptCost, lg)
	roleService := role.NewService(roleRepo, lg)

	// Startup sweep; a failure here is not worth refusing to serve over.
	if _, err := authService.PruneExpiredSessions(); err != nil {
		lg.Warn("startup session sweep failed", "error", err)
	}

	resolver := auth.NewResolver(lg)

	return &Dependencies{
		Config:      config,
		Logger:      lg,
		DB:          db,
		GormDB:      gormDB,
		Router:      chi.NewRouter(),
		AuthHandler: auth.NewHandler(authService, config.Security.SecureCookie),
		Resolver:    resolver,
		UserHandler: user.NewHandler(userService),
		RoleHandler: role.NewHandler(roleService),
	}, nil
}

// validateOpenAPISpec fails startup early when the served API document is
// malformed, instead of surfacing a broken swagger UI later.
func validateOpenAPISpec(path string, lg *slog.Logger) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		lg.Warn("openapi spec not loadable, swagger UI will be unavailable", "path", path, "error", err)
		return nil
	}
	if err := doc.Validate(loader.Context); err != nil {
		return fmt.Errorf("invalid openapi spec %s: %w", path, err)
	}
	return nil
}

// initDB opens the pgx-backed connection pool used by both the ORM and the
// health checks.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
