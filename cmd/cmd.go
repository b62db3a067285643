package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecopark-admin/internal/cache"
	"ecopark-admin/internal/config"
	"ecopark-admin/internal/encyclopedia"
	"ecopark-admin/internal/handlers"
	"ecopark-admin/internal/middleware"
	"ecopark-admin/internal/repository"
	"ecopark-admin/internal/services"
	"ecopark-admin/internal/storage"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	path := os.Getenv("ECOPARK_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Apply schema migrations
	if cfg.Database.Migrate {
		if err := repository.Migrate(cfg.Database.URL()); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Database migrations applied")
	}

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Connect to object storage
	images, err := newImageStore(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image store")
	}

	// Initialize repositories
	photoRepo := repository.NewPhotoRepository(db)
	trailRepo := repository.NewTrailRepository(db)

	// Initialize services
	queryCache := cache.New(cfg.Cache.Fresh, cfg.Cache.Retention)
	defer queryCache.Close()

	wiki := encyclopedia.NewClient(cfg.Encyclopedia.Endpoint, cfg.Encyclopedia.Timeout, queryCache)
	wsHub := services.NewWSHub()

	photoService := services.NewPhotoService(
		photoRepo,
		images,
		queryCache,
		wsHub,
		services.NewCursorCodec(cfg.Cursor.Secret),
		services.PhotoServiceConfig{
			PageSize:         cfg.Photos.PageSize,
			NeighborStrategy: cfg.Photos.NeighborStrategy,
		},
	)
	trailService := services.NewTrailService(trailRepo, queryCache, wsHub, cfg.Trails.Location(), cfg.Trails.DeleteLimit)
	exportService := services.NewExportService(photoRepo, wiki, cfg.Export.Dir)

	// Initialize handlers
	photoHandler := handlers.NewPhotoHandler(photoService)
	trailHandler := handlers.NewTrailHandler(trailService)
	exportHandler := handlers.NewExportHandler(exportService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, cfg.CORS.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(db)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/photos", func(r chi.Router) {
			r.Get("/", photoHandler.ListPhotos)
			r.Get("/{id}", photoHandler.GetPhoto)
			r.Get("/{id}/neighbors", photoHandler.GetNeighbors)
			r.Post("/{id}/review", photoHandler.Review)
			r.Post("/{id}/unreview", photoHandler.Unreview)
			r.Delete("/{id}", photoHandler.DeletePhoto)
			r.Delete("/{id}/images/{index}", photoHandler.RemoveImage)
		})

		r.Route("/trails", func(r chi.Router) {
			r.Get("/", trailHandler.ListTrails)
			r.Delete("/", trailHandler.DeleteTrails)
			r.Get("/people", trailHandler.ListPeople)
			r.Delete("/people", trailHandler.DeletePerson)
			r.Get("/stats", trailHandler.GetStats)
			r.Get("/heatmap", trailHandler.GetHeatmap)
		})

		r.Route("/exports", func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.Export.RateLimit, time.Minute))
			r.Post("/", exportHandler.ExportAll)
			r.Get("/{category}", exportHandler.DownloadCategory)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	r.Get("/healthz", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// newImageStore connects to the configured object storage backend
func newImageStore(ctx context.Context, cfg config.StorageConfig) (storage.ImageStore, error) {
	switch cfg.Backend {
	case "minio":
		return storage.NewMinioStore(ctx, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, !cfg.DisableSSL)
	default:
		return storage.NewS3Store(ctx, storage.S3Options{
			Region:    cfg.Region,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Endpoint:  cfg.Endpoint,
		})
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
