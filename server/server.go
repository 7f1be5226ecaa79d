package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ClipForge/cache"
	"ClipForge/config"
	"ClipForge/db"
	"ClipForge/logger"
	"ClipForge/repository"
	"ClipForge/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})

	// Optional subsystems. The server runs without any of them; it just
	// loses archival, job history or cross-restart sessions respectively.
	if cfg.MinioEnabled {
		if err := storage.InitMinio(cfg); err != nil {
			logger.Fatal("failed to initialize MinIO", logger.ErrorField(err))
		}
		logger.Info("connected to MinIO", logger.String("bucket", cfg.MinioBucket))
	}

	jobRepo := repository.JobRepository(repository.NopJobRepository{})
	if cfg.DBEnabled {
		if err := db.ConnectGormDB(cfg); err != nil {
			logger.Fatal("failed to connect to database", logger.ErrorField(err))
		}
		defer db.CloseGormDB()
		if err := db.MigrateDB(); err != nil {
			logger.Fatal("failed to migrate database", logger.ErrorField(err))
		}
		jobRepo = repository.NewGormJobRepository(db.GormDB)
		logger.Info("connected to database", logger.String("db", cfg.DBName))
	}

	ttl := time.Duration(cfg.CacheTTLMin) * time.Minute
	files := cache.FileCache(cache.NewMemoryFileCache(ttl))
	if cfg.RedisEnabled {
		if err := db.ConnectRedis(cfg); err != nil {
			logger.Fatal("failed to connect to Redis", logger.ErrorField(err))
		}
		defer db.CloseRedis()
		files = cache.NewRedisFileCache(ttl)
		logger.Info("connected to Redis")
	}

	apiHandler := NewAPIHandler(files, jobRepo, cfg)

	router := mux.NewRouter()

	// CORS middleware, the UI is served from a different origin in development.
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Job-Id")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// API endpoints
	router.HandleFunc("/api/healthz", apiHandler.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/files", apiHandler.UploadFileHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/files/{id}", apiHandler.GetFileHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/files/{id}/export", apiHandler.ExportHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/jobs", apiHandler.ListJobsHandler).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", logger.ErrorField(err))
	}
}
