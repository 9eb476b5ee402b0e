//	@title			Memebin API
//	@version		1.0
//	@description	Catalog of memes: relational metadata paired with image objects in S3-compatible storage. Image reads go through time-limited presigned URLs.
//
//	@host		localhost:8080
//	@BasePath	/api/v1

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/memebin/service/internal/config"
	"github.com/memebin/service/internal/db"
	"github.com/memebin/service/internal/meme"
	appMiddleware "github.com/memebin/service/internal/middleware"
	"github.com/memebin/service/internal/storage"

	_ "github.com/memebin/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	store, err := storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}
	if err := store.EnsureBucket(context.Background(), cfg.StorageBucket); err != nil {
		log.Fatalf("bucket provisioning failed: %v", err)
	}

	// Wire dependencies: repository → service → handler
	memeRepo := meme.NewRepository(pool)
	memeSvc := meme.NewService(memeRepo, store, cfg.StorageBucket, cfg.PresignTTL)
	memeHandler := meme.NewHandler(memeSvc)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(appMiddleware.MaxBytes(cfg.MaxUploadSize))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1. The listing is always public; the mutation endpoints are only
	// mounted on the internal deployment.
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/memes", func(r chi.Router) {
			r.Get("/", memeHandler.List)
			if cfg.InternalAPI {
				r.Get("/{id}", memeHandler.Get)
				r.Post("/", memeHandler.Create)
				r.Put("/{id}", memeHandler.Update)
				r.Delete("/{id}", memeHandler.Delete)
			}
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s, internal=%v)", cfg.Port, cfg.AppEnv, cfg.InternalAPI)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
