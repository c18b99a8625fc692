package main

import (
	"context"
	"log"

	"github.com/curatorr/curatorr/internal/api"
	"github.com/curatorr/curatorr/internal/cache"
	"github.com/curatorr/curatorr/internal/config"
	"github.com/curatorr/curatorr/internal/db"
	"github.com/curatorr/curatorr/internal/jobs"
	"github.com/curatorr/curatorr/internal/scheduler"
)

func main() {
	log.Println("Curatorr starting...")

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := database.Migrate("migrations"); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)

	store, err := cache.NewStore(cfg.CacheDir)
	if err != nil {
		log.Fatalf("cache store init failed: %v", err)
	}

	jobQueue := jobs.NewQueue(cfg.RedisAddr, cfg.JobWorkers)
	defer jobQueue.Stop()

	srv := api.NewServer(cfg, database, store, jobQueue)
	if err := srv.EnsureAdminUser(); err != nil {
		log.Fatalf("admin bootstrap failed: %v", err)
	}

	jobs.RegisterHandlers(jobQueue, srv.Service(), srv.DiscoveryRepo(), srv.EventHub())
	if err := jobQueue.Start(context.Background()); err != nil {
		log.Fatalf("job queue start failed: %v", err)
	}

	sched := scheduler.New(jobQueue)
	if err := sched.Schedule(cfg.RescanCron); err != nil {
		log.Fatalf("scheduler init failed: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	log.Printf("listening on :%d", cfg.Port)
	if err := srv.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
