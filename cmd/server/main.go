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
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vedantk/habit-tracker/internal/auth"
	"github.com/vedantk/habit-tracker/internal/config"
	"github.com/vedantk/habit-tracker/internal/middleware"
	"github.com/vedantk/habit-tracker/internal/store"
	"github.com/vedantk/habit-tracker/internal/tracker"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.APIKey == "" {
		log.Fatal("API_KEY is required")
	}

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	defer pgPool.Close()
	events := store.NewPostgresStore(pgPool)
	if err := events.Migrate(ctx); err != nil {
		log.Fatalf("postgres migrate: %v", err)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer mongoClient.Disconnect(ctx)
	users := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatalf("mongo indexes: %v", err)
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)

	// ── MinIO ────────────────────────────────────────────────
	snapshots, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("minio connect: %v", err)
	}

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(users, sessions)
	svc := tracker.NewService(users, events)
	trackerHandler := tracker.NewHandler(svc, users, snapshots)

	requireKey := middleware.RequireAPIKey(cfg.APIKey)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", middleware.APIKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes
	r.With(requireKey).Post("/register", authHandler.Register)
	r.With(requireKey).Post("/login", authHandler.Login)
	r.Post("/logout", authHandler.Logout)
	r.With(middleware.RequireAuth(sessions)).Get("/me", authHandler.Me)

	// User and habit routes
	r.Route("/users", func(r chi.Router) {
		r.Get("/", trackerHandler.List)
		r.Get("/{userID}", trackerHandler.Get)
		r.With(requireKey).Post("/{userID}/export", trackerHandler.Export)
		r.Get("/{userID}/export", trackerHandler.DownloadExport)

		r.Route("/{userID}/habits/{habitID}", func(r chi.Router) {
			r.With(requireKey).Put("/", trackerHandler.Edit)
			r.With(requireKey).Patch("/increment", trackerHandler.Increment)
			r.With(requireKey).Patch("/name", trackerHandler.Rename)
			r.Get("/history", trackerHandler.History)
		})
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Backend listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
