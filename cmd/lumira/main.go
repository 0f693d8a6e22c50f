// Package main is the entry point for the LUMIRA catalog API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"lumira/internal/cache"
	"lumira/internal/config"
	"lumira/internal/database"
	"lumira/internal/handlers"
	"lumira/internal/middleware"
	"lumira/internal/router"
	"lumira/internal/session"
	"lumira/internal/storage"
	"lumira/internal/store"
)

func main() {
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON elsewhere.
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"upload_backend", cfg.UploadBackend,
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Connect to MongoDB.
	client, db, err := database.Connect(startCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	// Apply collection validators and indexes.
	if err := database.Migrate(startCtx, db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if categories already exist).
	if cfg.IsDev() {
		if err := database.Seed(startCtx, db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (catalog cache + session revocation list).
	valkeyClient, err := cache.ConnectValkey(startCtx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	sessions := session.NewManager(cfg.SessionSecret, session.NewValkeyRevoker(valkeyClient), cfg.IsProduction())

	passwordHash, err := adminPasswordHash(cfg)
	if err != nil {
		slog.Error("failed to prepare admin password", "error", err)
		os.Exit(1)
	}
	if cfg.AdminTOTPSecret == "" {
		slog.Warn("ADMIN_TOTP_SECRET not set, admin login is password-only")
	}

	// Pick the upload backend.
	var blobs storage.BlobStore
	opts := router.Options{Production: cfg.IsProduction()}
	switch cfg.UploadBackend {
	case config.UploadBackendS3:
		s3Store, err := storage.NewS3Store(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		slog.Info("s3 storage configured", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		blobs = s3Store
	default:
		local := storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix)
		slog.Info("local upload storage configured", "dir", local.Dir(), "prefix", cfg.UploadURLPrefix)
		blobs = local
		opts.UploadDir = cfg.UploadDir
		opts.UploadURLPrefix = cfg.UploadURLPrefix
	}

	// Initialize data stores.
	categoryStore := store.NewCategoryStore(db)
	productStore := store.NewProductStore(db)

	catalogCache := cache.NewCatalogCache(valkeyClient, cache.DefaultCatalogTTL)
	uploader := storage.NewUploader(blobs)

	// Create handler groups with their dependencies.
	adminHandlers := handlers.NewAdmin(categoryStore, productStore, catalogCache, uploader)
	authHandlers := handlers.NewAuth(sessions, passwordHash, cfg.AdminTOTPSecret)
	publicHandlers := handlers.NewPublic(categoryStore, productStore, catalogCache)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute).
		WithMessage("Too many login attempts").
		TrustProxies(cfg.TrustedProxies...)
	defer loginLimiter.Stop()
	opts.LoginLimiter = loginLimiter

	r := router.New(sessions, adminHandlers, authHandlers, publicHandlers, opts)

	// Create the HTTP server. WriteTimeout covers image uploads with
	// thumbnail generation and an object storage round trip.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// adminPasswordHash returns the configured bcrypt hash, hashing the
// plain-text password when no hash is set.
func adminPasswordHash(cfg *config.Config) (string, error) {
	if cfg.AdminPasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.AdminPasswordHash)); err != nil {
			return "", err
		}
		return cfg.AdminPasswordHash, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
