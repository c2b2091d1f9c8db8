package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"eventcheckin/internal/cloudinary"
	"eventcheckin/internal/config"
	"eventcheckin/internal/notify"
	"eventcheckin/internal/queue"
	"eventcheckin/internal/store"
)

// Worker consumes notification messages and delivers registration and confirmation emails.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.QueueBackend != config.BackendRedis {
		log.Fatalf("worker needs QUEUE_BACKEND=redis, got %q", cfg.QueueBackend)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if err := store.PingRedis(ctx, redisClient); err != nil {
		log.Printf("WARNING: redis not reachable yet: %v", err)
	}
	q := queue.NewRedisQueue(redisClient, cfg.QueueKey)

	var sender notify.Sender = &notify.LogSender{}
	if cfg.SendGridAPIKey != "" {
		sender = notify.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFrom)
		log.Println("delivering email through SendGrid")
	} else {
		log.Println("SENDGRID_API_KEY not set; emails are written to the log")
	}

	// Cloudinary client (nil when not configured)
	var images notify.ImageHost
	if cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder); cdn.Configured() {
		images = cdn
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	}

	log.Println("worker started, waiting for messages...")
	if err := notify.NewDispatcher(sender, images).Run(ctx, q); err != nil && ctx.Err() == nil {
		log.Fatalf("worker failed: %v", err)
	}
	log.Println("worker stopped")
}
