package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/edustack/edustack/internal/chat"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db"
	"github.com/edustack/edustack/internal/docstore"
	"github.com/edustack/edustack/internal/genai"
	"github.com/edustack/edustack/internal/httpapi"
	"github.com/edustack/edustack/internal/httpapi/handlers"
	"github.com/edustack/edustack/internal/jobs"
	"github.com/edustack/edustack/internal/persist"
	"github.com/edustack/edustack/internal/pipeline"
	"github.com/edustack/edustack/internal/session"
	"github.com/edustack/edustack/internal/stats"
	"github.com/edustack/edustack/internal/store/rabbitmq"
	"github.com/edustack/edustack/internal/store/redisstore"
	"github.com/edustack/edustack/internal/video"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// remote document store
	var store docstore.Store
	switch cfg.StoreDriver {
	case "http":
		store = docstore.NewHTTPStore(cfg.StoreBaseURL, cfg.StoreAPIKey, cfg.StoreProject)
	default:
		logger.Info("using in-memory document store")
		store = docstore.NewMemory()
	}
	facade := persist.New(store, logger)

	ledger := session.NewLedger(facade, logger)
	counters := stats.NewCounters(facade, logger)
	videos := video.NewStore(facade)

	// generative service (route by configuration)
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
	chatter, ok := gen.(genai.Chatter)
	if !ok {
		chatter = genai.NewCannedChat()
	}

	chatSvc := chat.NewService(ledger, chatter, counters, cfg.ChatContextWindowSize)

	snapshots := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	engine := pipeline.NewEngine(gen, videos, counters, logger)
	runner := pipeline.NewRunner(engine, snapshots, logger)

	// job rows live in the relational database
	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(&jobs.Job{}); err != nil {
		log.Fatalf("automigrate: %v", err)
	}
	jobRepo := jobs.NewRepo(gdb)

	rabbit, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatalf("rabbit: %v", err)
	}
	defer rabbit.Close()

	h := handlers.NewHandler(cfg, chatSvc, videos, counters, runner, snapshots, jobRepo, rabbit)
	r := httpapi.NewRouter(cfg, h)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	logger.Info("server starting", "addr", addr, "store", cfg.StoreDriver, "provider", cfg.AIProvider)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
