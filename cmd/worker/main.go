package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/reloadggg/chatbot-rag/internal/ai"
	"github.com/reloadggg/chatbot-rag/internal/chat"
	"github.com/reloadggg/chatbot-rag/internal/config"
	"github.com/reloadggg/chatbot-rag/internal/db"
)

type jobMsg struct {
	JobID string `json:"job_id"`
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func newRegistry(cfg config.Config) *ai.Registry {
	reg := ai.NewRegistry()
	reg.Register("openai", func(model, apiKey, baseURL string) (ai.Provider, error) {
		return ai.NewOpenAIProvider(model, apiKey, baseURL), nil
	})
	reg.Register("gemini", func(model, apiKey, baseURL string) (ai.Provider, error) {
		if apiKey == "" {
			apiKey = cfg.GeminiAPIKey
		}
		if baseURL == "" {
			baseURL = cfg.GeminiBaseURL
		}
		return ai.NewGeminiProvider(model, apiKey, baseURL), nil
	})
	reg.Register("ollama", func(model, apiKey, baseURL string) (ai.Provider, error) {
		if baseURL == "" {
			baseURL = cfg.OllamaBaseURL
		}
		return ai.NewOllamaProvider(model, baseURL), nil
	})
	reg.Register("openrouter", func(model, apiKey, baseURL string) (ai.Provider, error) {
		return ai.NewOpenRouterProvider(model, apiKey, baseURL), nil
	})
	return reg
}

func main() {
	cfg := config.Load()
	if cfg.RabbitURL == "" {
		log.Fatalf("RABBIT_URL is required for the worker")
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	store := chat.NewStore(gdb)
	svc := chat.NewService(store, newRegistry(cfg), cfg.ChatContextWindowSize)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	}); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m jobMsg
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleJob(ctx, svc, store, m.JobID); err != nil {
					log.Printf("worker=%d job %s failed cost=%s err=%v", workerID, m.JobID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed job=%s err=%v", workerID, m.JobID, err)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func handleJob(ctx context.Context, svc *chat.Service, store *chat.Store, jobID string) error {
	if err := store.MarkJobRunning(ctx, jobID); err != nil {
		return err
	}

	job, err := store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	cfg, err := job.Config()
	if err != nil {
		_ = store.MarkJobFailed(ctx, jobID, "bad config snapshot")
		return err
	}

	_, assistantMsgID, err := svc.Answer(ctx, job.SessionID, job.UserType, job.Question, cfg)
	if err != nil {
		_ = store.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}

	return store.MarkJobSucceeded(ctx, jobID, assistantMsgID)
}
