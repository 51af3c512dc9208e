package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-sync/internal/api"
	"github.com/ignite/outreach-sync/internal/config"
	"github.com/ignite/outreach-sync/internal/eventkey"
	"github.com/ignite/outreach-sync/internal/instantly"
	"github.com/ignite/outreach-sync/internal/namespace"
	"github.com/ignite/outreach-sync/internal/pipeline"
	"github.com/ignite/outreach-sync/internal/pkg/logger"
	"github.com/ignite/outreach-sync/internal/report"
	"github.com/ignite/outreach-sync/internal/smartlead"
	"github.com/ignite/outreach-sync/internal/store"
	"github.com/ignite/outreach-sync/internal/worker"
)

func main() {
	log.Println("Starting outreach-sync...")

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	if err := cfg.Smartlead.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if err := cfg.Instantly.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if cfg.Database.URL == "" {
		log.Fatal("database.url (or DATABASE_URL) is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	st := store.New(db)
	resolver := namespace.NewResolver(st, cfg.Namespace.Default, cfg.Namespace.CacheTTL())
	tables := namespace.NewTableManager(db)
	keys := eventkey.NewGenerator(eventkey.DefaultCacheCapacity)

	var seen *pipeline.SeenCache
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		seen = pipeline.NewSeenCache(redisClient, cfg.Redis.TTL())
		log.Println("Seen-key cache enabled")
	}

	processor := pipeline.NewProcessor(resolver, tables, st, keys, seen)

	var adapters []worker.SyncAdapter
	if cfg.Smartlead.Enabled {
		client := smartlead.NewClient(smartlead.Config{
			APIKey:   cfg.Smartlead.APIKey,
			BaseURL:  cfg.Smartlead.BaseURL,
			Timeout:  cfg.Smartlead.Timeout(),
			PageSize: cfg.Smartlead.PageSize,
		})
		adapters = append(adapters, smartlead.NewAdapter(client, st, processor, cfg.Smartlead.APIKey != ""))
		log.Println("Smartlead adapter enabled")
	}
	if cfg.Instantly.Enabled {
		client := instantly.NewClient(instantly.Config{
			APIKey:   cfg.Instantly.APIKey,
			BaseURL:  cfg.Instantly.BaseURL,
			Timeout:  cfg.Instantly.Timeout(),
			PageSize: cfg.Instantly.PageSize,
		})
		adapters = append(adapters, instantly.NewAdapter(client, st, processor, cfg.Instantly.APIKey != ""))
		log.Println("Instantly adapter enabled")
	}
	if len(adapters) == 0 {
		log.Println("WARNING: no platform adapters enabled; only the status API will run")
	}

	runner := worker.NewRunner(adapters, cfg.Sync.Interval())
	if cfg.Archive.Enabled && cfg.Archive.S3Bucket != "" {
		archiver, err := report.NewS3Archiver(context.Background(), cfg.Archive.S3Bucket, cfg.Archive.S3Region, cfg.Archive.Prefix)
		if err != nil {
			log.Fatalf("Failed to init report archiver: %v", err)
		}
		runner.SetArchiver(archiver)
		log.Printf("Run-report archival enabled (s3://%s/%s)", cfg.Archive.S3Bucket, cfg.Archive.Prefix)
	}
	runner.Start()
	defer runner.Stop()

	platforms := make([]string, 0, len(adapters))
	for _, a := range adapters {
		platforms = append(platforms, a.Platform())
	}
	apiServer := api.NewServer(runner, processor, st, platforms)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Status API listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
}
