package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"cpl-edge-go/internal/cachestore"
	"cpl-edge-go/internal/config"
	"cpl-edge-go/internal/edge"
	"cpl-edge-go/internal/handlers"
	"cpl-edge-go/internal/push"
	"cpl-edge-go/internal/store"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	var configPath string
	flag.StringVar(&configPath, "config", getenvDefault("EDGE_CONFIG", "edge.yaml"), "path to edge.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Redis holds the cache generations
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}
	cacheStore := cachestore.NewRedisStore(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	})

	// PostgreSQL holds subscriptions, notifications and editor accounts
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	pgStore, err := store.NewPostgresStore(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	ctx := context.Background()
	if err := pgStore.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	keys, err := push.LoadVAPIDKeys()
	if err != nil {
		log.Fatalf("Failed to load VAPID keys: %v", err)
	}

	broadcaster := push.NewBroadcaster(pgStore, push.Config{
		Keys:        keys,
		Subscriber:  cfg.Push.Subscriber,
		TTL:         cfg.Push.TTL,
		BatchLimit:  cfg.Push.BatchLimit,
		Concurrency: cfg.Push.Concurrency,
	})

	h := handlers.NewHandler(pgStore, broadcaster, keys.Public)
	h.EnsureDefaultAdmin(ctx)

	controller := edge.NewController(edge.Options{
		Origin:                cfg.Server.Origin,
		Generation:            cfg.Cache.Generation,
		OfflinePath:           cfg.Cache.OfflinePath,
		SeedPaths:             cfg.Cache.SeedPaths,
		BypassPrefixes:        cfg.Cache.BypassPrefixes,
		Store:                 cacheStore,
		Metrics:               edge.NewMetrics(prometheus.DefaultRegisterer),
		RevalidateConcurrency: cfg.Cache.RevalidateConcurrency,
	})
	defer controller.Close()

	// Seed the current generation, then purge superseded ones. A failed
	// install aborts startup; serving without the offline page defeats the
	// whole point of the edge.
	if err := controller.Install(ctx); err != nil {
		log.Fatalf("Cache install failed: %v", err)
	}
	if err := controller.Activate(ctx); err != nil {
		log.Fatalf("Cache activation failed: %v", err)
	}
	log.Printf("Cache generation %s active", controller.Generation())

	mux := http.NewServeMux()

	// Push + notification API
	mux.HandleFunc("/api/push/vapid-key", h.GetVAPIDKeyHandler)
	mux.HandleFunc("/api/push/subscribe", h.SubscribePushHandler)
	mux.HandleFunc("/api/push/unsubscribe", h.UnsubscribePushHandler)
	mux.HandleFunc("/api/notifications", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.GetNotificationsHandler(w, r)
		case http.MethodDelete:
			h.DeleteAllNotificationsHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/notifications/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			h.DeleteNotificationHandler(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Admin routes
	mux.HandleFunc("/api/admin/login", h.LoginHandler)
	mux.HandleFunc("/api/admin/logout", h.LogoutHandler)
	mux.HandleFunc("/api/admin/notify", handlers.AuthMiddleware(handlers.AdminMiddleware(h.NotifyHandler)))
	mux.HandleFunc("/api/admin/2fa/generate", handlers.AuthMiddleware(h.Generate2FAHandler))
	mux.HandleFunc("/api/admin/2fa/enable", handlers.AuthMiddleware(h.Enable2FAHandler))
	mux.HandleFunc("/api/admin/2fa/disable", handlers.AuthMiddleware(h.Disable2FAHandler))

	mux.Handle("/metrics", promhttp.Handler())

	// Everything else is page/asset traffic for the cache controller
	mux.Handle("/", controller)

	port := os.Getenv("PORT")
	if port == "" {
		port = strconv.Itoa(cfg.Server.Port)
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("cpl-edge listening on :%s, origin=%s", port, cfg.Server.Origin)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
			stop()
		}
	}()

	<-runCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func getenvDefault(name, def string) string {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v
}
