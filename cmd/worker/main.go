package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db"
	"github.com/edustack/edustack/internal/docstore"
	"github.com/edustack/edustack/internal/genai"
	"github.com/edustack/edustack/internal/jobs"
	"github.com/edustack/edustack/internal/persist"
	"github.com/edustack/edustack/internal/pipeline"
	"github.com/edustack/edustack/internal/stats"
	"github.com/edustack/edustack/internal/store/rabbitmq"
	"github.com/edustack/edustack/internal/video"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
)

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

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	gdb := db.Connect(cfg.DBDSN)
	repo := jobs.NewRepo(gdb)

	var store docstore.Store
	switch cfg.StoreDriver {
	case "http":
		store = docstore.NewHTTPStore(cfg.StoreBaseURL, cfg.StoreAPIKey, cfg.StoreProject)
	default:
		store = docstore.NewMemory()
	}
	facade := persist.New(store, logger)
	counters := stats.NewCounters(facade, logger)
	videos := video.NewStore(facade)

	// provider registry (route by configuration)
	reg := genai.NewRegistry()
	reg.Register("canned", func(ctx context.Context) (genai.Generator, error) {
		_ = ctx
		return genai.NewCanned(), nil
	})
	reg.Register("gemini", func(ctx context.Context) (genai.Generator, error) {
		_ = ctx
		return genai.NewGemini(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel), nil
	})

	gen, err := reg.Get(context.Background(), cfg.AIProvider)
	if err != nil {
		log.Fatalf("provider: %v", err)
	}

	engine := pipeline.NewEngine(gen, videos, counters, logger)

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

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
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

	logger.Info("worker started", "queue", cfg.RabbitQueue, "concurrency", concurrency)

	// worker pool
	deliveries := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range deliveries {
				var m rabbitmq.JobMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					logger.Warn("bad message", "worker", workerID, "err", err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleJob(ctx, engine, repo, m.JobID); err != nil {
					logger.Warn("job failed", "worker", workerID, "job", m.JobID,
						"cost", time.Since(start), "err", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					logger.Warn("ack failed", "worker", workerID, "job", m.JobID, "err", err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutting down")
			close(deliveries)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				logger.Warn("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			deliveries <- d
		}
	}
}

// handleJob runs the full pipeline for one queued request. Each job gets a
// fresh run; concurrent jobs share no mutable state.
func handleJob(ctx context.Context, engine *pipeline.Engine, repo *jobs.Repo, jobID string) error {
	_ = repo.MarkRunning(ctx, jobID)

	j, err := repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	run, err := engine.Execute(ctx, j.UserID, j.Topic, nil)
	if err != nil {
		// rejected before any stage began
		_ = repo.MarkFailed(ctx, jobID, err.Error())
		return err
	}

	if run.State == pipeline.StateError {
		if markErr := repo.MarkFailed(ctx, jobID, run.Error); markErr != nil {
			return markErr
		}
		return nil // terminal outcome recorded; do not redeliver
	}

	return repo.MarkSucceeded(ctx, jobID, run.VideoDocID)
}
