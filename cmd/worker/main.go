// worker runs the CSV export worker. It dequeues export jobs from Redis,
// writes CSV files under the configured export directory and updates job status.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"taskplane/internal/config"
	"taskplane/internal/db"
	exportrepo "taskplane/internal/export/repository"
	"taskplane/internal/export/worker"
	taskrepo "taskplane/internal/task/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	jobs := exportrepo.NewRedisStore(redisClient, cfg.ExportJobTTL())
	tasks := taskrepo.NewPostgresRepository(conn)

	w := worker.New(jobs, tasks, cfg.ExportDir)

	log.Printf("export worker started (dir=%s)", cfg.ExportDir)
	w.Run(ctx)
	log.Println("export worker stopped")
}
