package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"eventcheckin/internal/attendance"
	"eventcheckin/internal/auth"
	"eventcheckin/internal/config"
	"eventcheckin/internal/handler"
	"eventcheckin/internal/httpmiddleware"
	"eventcheckin/internal/importer"
	"eventcheckin/internal/notify"
	"eventcheckin/internal/queue"
	"eventcheckin/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

// stores holds the persistence chosen by STORE_BACKEND.
type stores struct {
	events     attendance.Store
	organizers auth.OrganizerStore
	db         *sqlx.DB
}

func openStores(cfg config.App) (stores, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Println("using in-memory store; data is lost on restart")
		return stores{events: attendance.NewInMemory(), organizers: auth.NewInMemory()}, nil
	case config.BackendSQLite:
		db, err = store.NewSQLite(cfg.SQLitePath)
	default:
		db, err = store.NewDB(cfg.DatabaseURL)
	}
	if err != nil {
		return stores{}, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	return stores{events: attendance.NewRepository(db), organizers: auth.NewRepository(db), db: db}, nil
}

func runHTTP(cfg config.App) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if st.db != nil {
			_ = st.db.Close()
		}
	}()

	var redisClient *redis.Client
	if cfg.UseRedis() {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
	}

	var q queue.Queue
	if cfg.QueueBackend == config.BackendMemory {
		// Nothing consumes this outside the process; the worker needs QUEUE_BACKEND=redis.
		q = queue.NewInMemory(256)
		go drainLocally(q)
	} else {
		q = queue.NewRedisQueue(redisClient, cfg.QueueKey)
	}
	publisher := notify.NewPublisher(q)

	svc := attendance.NewService(st.events, attendance.WithLocation(loc), attendance.WithNotifier(publisher))
	signer := auth.NewSigner(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)

	checks := map[string]handler.HealthCheck{"db": st.events.Ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return store.PingRedis(ctx, redisClient) }
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitBackend == config.BackendRedis {
		limiter = httpmiddleware.NewRedisWindow(redisClient, cfg.RateLimitPerMin)
	}

	h := handler.New(handler.Deps{
		Service:  svc,
		Accounts: auth.NewAccounts(st.organizers, signer),
		Signer:   signer,
		Importer: importer.New(st.events, publisher),
		Location: loc,
		Checks:   checks,
	})

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	r.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Routes(r, httpmiddleware.RateLimit(limiter, rateKey))

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (store=%s queue=%s tz=%s)", cfg.HTTPPort, cfg.StoreBackend, cfg.QueueBackend, loc)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// rateKey buckets authenticated calls per organizer and everything else per IP.
func rateKey(c *gin.Context) string {
	if id := auth.OrganizerID(c); id != "" {
		return "org:" + id
	}
	return "ip:" + httpmiddleware.ByClientIP(c)
}

// drainLocally delivers notifications to the log when no worker is running.
func drainLocally(q queue.Queue) {
	d := notify.NewDispatcher(&notify.LogSender{}, nil)
	if err := d.Run(context.Background(), q); err != nil {
		log.Printf("local notification drain stopped: %v", err)
	}
}
