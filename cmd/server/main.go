package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/vibes-platform/internal/app"
	"github.com/AnshRaj112/vibes-platform/internal/backend"
	"github.com/AnshRaj112/vibes-platform/internal/config"
	"github.com/AnshRaj112/vibes-platform/internal/database"
	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/gateway/memory"
	"github.com/AnshRaj112/vibes-platform/internal/handlers"
	"github.com/AnshRaj112/vibes-platform/internal/localstore"
	"github.com/AnshRaj112/vibes-platform/internal/logger"
	"github.com/AnshRaj112/vibes-platform/internal/metrics"
	"github.com/AnshRaj112/vibes-platform/internal/middleware"
	"github.com/AnshRaj112/vibes-platform/internal/routes"
	"github.com/AnshRaj112/vibes-platform/pkg/clientip"
)

const sweepInterval = time.Minute

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	var lg logger.Logger = logger.New(cfg.Debug)
	if cfg.RollbarToken != "" {
		rb := logger.NewRollbar(log.Default(), logger.RollbarConfig{
			Token:       cfg.RollbarToken,
			Environment: cfg.Environment,
			Host:        cfg.AllowedHost,
		})
		rb.Enable(true)
		defer rb.Close()
		lg = rb
		log.Println("✅ Rollbar error reporting enabled")
	}

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := clientip.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}

	var factory app.Factory
	switch cfg.BackendMode {
	case config.ModeSelfHosted:
		factory = selfHosted(ctx, cfg, lg)
	default:
		factory = inMemory(cfg, lg)
	}

	registry := app.NewRegistry(factory)
	registry.StartSweeper(ctx, sweepInterval, cfg.WorkspaceIdle)
	defer registry.Close()
	handlers.Init(registry, lg, cfg.IsProduction())

	// Setup router
	r := chi.NewRouter()
	r.Use(metrics.Instrument)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, host check, per-IP + auth rate limiting)")
	}
	if database.RedisClient != nil {
		r.Use(middleware.RedisAuthLimit(database.RedisClient))
	}

	routes.SetupRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🚀 Vibes platform (%s backend) running on :%s", cfg.BackendMode, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Graceful shutdown failed: %v", err)
	}
}

// inMemory serves every client from one in-process backend.
func inMemory(cfg *config.Config, lg logger.Logger) app.Factory {
	b := memory.NewBackend(cfg.BackendURL)
	if cfg.SeedAdminEmail != "" && cfg.SeedAdminPassword != "" {
		b.CreateAccount(cfg.SeedAdminEmail, cfg.SeedAdminPassword, gateway.Record{
			"is_admin":      true,
			"has_onboarded": true,
			"full_name":     "Admin",
		})
		log.Printf("✅ Seeded admin account %s", cfg.SeedAdminEmail)
	}
	log.Println("⚠️  Memory backend: accounts and progress are lost on restart")

	return func(ctx context.Context, clientID, inviteCode string) (*app.Workspace, error) {
		store := localstore.NewMemory(cfg.LocalStoreQuota)
		c := b.NewClient(store)
		ws, err := app.Open(ctx, clientID, app.Deps{
			Gateway:    c,
			Store:      store,
			Logger:     lg,
			BackendURL: cfg.BackendURL,
			InviteCode: inviteCode,
			OnClose:    c.Close,
		})
		if err != nil {
			c.Close()
		}
		return ws, err
	}
}

// selfHosted connects the data stores and serves clients from them. Client
// stores live in Redis so sessions survive restarts.
func selfHosted(ctx context.Context, cfg *config.Config, lg logger.Logger) app.Factory {
	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	go func() {
		<-ctx.Done()
		database.DisconnectPostgres()
	}()

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	go func() {
		<-ctx.Done()
		database.DisconnectRedis()
	}()

	// Connect to MongoDB
	log.Printf("Connecting to MongoDB at %s...", maskURI(cfg.MongoURI))
	if err := database.Connect(cfg.MongoURI, cfg.MongoDatabase); err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	go func() {
		<-ctx.Done()
		database.Disconnect()
	}()

	var files backend.Files
	if cfg.CloudinaryConfigured() {
		cld, err := backend.NewCloudinary(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("File uploads will not be available")
		} else {
			files = cld
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. File uploads will not be available")
	}

	svc := backend.NewService(backend.Options{
		DB:     database.PostgresDB,
		Redis:  database.RedisClient,
		Mongo:  database.DB,
		Files:  files,
		Logger: lg,
	})
	svc.Start(ctx)

	return func(ctx context.Context, clientID, inviteCode string) (*app.Workspace, error) {
		store := localstore.NewRedis(database.RedisClient, clientID, cfg.LocalStoreQuota)
		c := svc.NewClient(store)
		ws, err := app.Open(ctx, clientID, app.Deps{
			Gateway:    c,
			Store:      store,
			Logger:     lg,
			BackendURL: cfg.BackendURL,
			InviteCode: inviteCode,
			OnClose:    c.Close,
		})
		if err != nil {
			c.Close()
		}
		return ws, err
	}
}

// maskURI hides the password of a connection string.
func maskURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	if at == -1 {
		return uri
	}
	scheme := strings.Index(uri, "://")
	if scheme == -1 || scheme+3 > at {
		return uri
	}
	creds := uri[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon != -1 {
		return uri[:scheme+3] + creds[:colon] + ":***" + uri[at:]
	}
	return uri
}
