package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mvickers/papercut/internal/api"
	"github.com/mvickers/papercut/internal/backend"
	"github.com/mvickers/papercut/internal/config"
	"github.com/mvickers/papercut/internal/db"
	"github.com/mvickers/papercut/internal/jobs"
	"github.com/mvickers/papercut/internal/repository"
	"github.com/mvickers/papercut/internal/session"
	"github.com/mvickers/papercut/internal/version"
)

func main() {
	ver := version.Load()
	log.Printf("papercut %s starting...", ver.Version)

	cfg := config.Load()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendToken)

	hub := api.NewWSHub()
	slots := api.NewRemoteSlots(hub)
	sess := session.New(cfg, client, slots.Slot(0), slots.Slot(1), hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AutosaveEnabled() {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer database.Close()

		if err := db.Migrate(database); err != nil {
			log.Fatalf("migration failed: %v", err)
		}

		repo := repository.NewProjectRepository(database.DB)
		if err := sess.AttachStore(repo); err != nil {
			log.Fatalf("project store failed: %v", err)
		}
		log.Printf("autosave enabled every %s (project %q)", cfg.AutosaveInterval, cfg.ProjectName)
	} else {
		log.Println("DATABASE_URL not set, autosave disabled")
	}

	var queue *jobs.Queue
	if cfg.SyncQueueEnabled() {
		queue = jobs.NewQueue(cfg.RedisAddr)
		jobs.NewSyncHandlers(client).Register(queue)
		if err := queue.Start(ctx); err != nil {
			log.Fatalf("sync queue failed: %v", err)
		}
		defer queue.Stop()
		sess.AttachQueue(queue)
	} else {
		log.Println("REDIS_ADDR not set, background sync disabled")
	}

	sess.Bootstrap(ctx)
	sess.StartWatchdog(ctx)
	sess.StartAutosave(ctx)

	listener := backend.NewListener(cfg.BackendWSURL, sess, cfg.PingInterval, cfg.ReconnectBackoff)
	listener.Start(ctx)
	defer listener.Stop()

	srv := api.NewServer(cfg, sess, hub, slots)

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}
