package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reloadggg/chatbot-rag/internal/config"
	"github.com/reloadggg/chatbot-rag/internal/db"
	"github.com/reloadggg/chatbot-rag/internal/httpapi"
	"github.com/reloadggg/chatbot-rag/internal/httpapi/handlers"
	"github.com/reloadggg/chatbot-rag/internal/store/rabbitmq"
	"github.com/reloadggg/chatbot-rag/internal/store/redisstore"
)

const sessionSweepInterval = time.Hour

func main() {
	cfg := config.Load()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	var jobs *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		jobs, err = rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Printf("rabbitmq unavailable, async queries disabled: %v", err)
			jobs = nil
		} else {
			defer jobs.Close()
		}
	}

	var rds *redisstore.Store
	if cfg.RedisAddr != "" {
		rds = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rds.Ping(pingCtx); err != nil {
			log.Printf("redis unavailable, login throttling disabled: %v", err)
			rds = nil
		}
		cancel()
	}

	h, err := handlers.NewHandler(gdb, cfg, jobs, rds)
	if err != nil {
		log.Fatalf("init handler: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage-reclamation sweep. Lazy expiry on load already keeps reads
	// correct, so failures here are only logged.
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := h.Auth.CleanupExpiredSessions(ctx)
				if err != nil {
					log.Printf("session sweep failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("session sweep removed %d expired sessions", n)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpapi.NewRouter(h),
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
