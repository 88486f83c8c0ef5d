package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"themochi.app/analytics/common/id"
	"themochi.app/analytics/common/llm"
	"themochi.app/analytics/common/logger"
	"themochi.app/analytics/common/otel"
	"themochi.app/analytics/core/config"
	"themochi.app/analytics/core/db"
	"themochi.app/analytics/internal/export"
	"themochi.app/analytics/internal/queue"
	"themochi.app/analytics/internal/service"
	"themochi.app/analytics/internal/store"
	"themochi.app/analytics/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "analytics worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Queue.RedisGroup,
		"consumer_name", cfg.Queue.RedisConsumer)

	// Different node ID than the server so IDs never collide
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Queue.RedisStream,
		Group:        cfg.Queue.RedisGroup,
		Consumer:     cfg.Queue.RedisConsumer,
		DLQStream:    cfg.Queue.RedisDLQ,
		BatchSize:    1, // Analysis jobs are heavy, process one at a time
		Block:        5 * time.Second,
		MaxAttempts:  3,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database)

	var llmClient llm.Client
	if cfg.OpenAI.Enabled() {
		llmClient, err = llm.New(llm.Config{
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			Model:          cfg.OpenAI.Model,
			EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to initialize llm client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.InfoContext(ctx, "llm disabled, enrichment blocks will be skipped")
	}

	var source service.ConversationSource
	if cfg.Export.Enabled() {
		source = export.NewClient(cfg.Export)
	} else {
		slog.WarnContext(ctx, "export source disabled, queued jobs will fail until a session is configured")
	}

	jobProducer := queue.NewRedisProducer(redisClient, cfg.Queue.RedisStream, nil)
	services := service.NewServices(stores, jobProducer, llmClient, source, cfg.Analysis)

	w := worker.New(consumer, services.Analysis(), worker.Config{
		MaxAttempts: 3,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Queue.RedisStream,
		Group:     cfg.Queue.RedisGroup,
		Consumer:  cfg.Queue.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop reclaimer first (quick), then the worker which may be mid-job
	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
███╗   ███╗ ██████╗  ██████╗██╗  ██╗██╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
████╗ ████║██╔═══██╗██╔════╝██║  ██║██║    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
██╔████╔██║██║   ██║██║     ███████║██║    ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
██║╚██╔╝██║██║   ██║██║     ██╔══██║██║    ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
██║ ╚═╝ ██║╚██████╔╝╚██████╗██║  ██║██║    ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
╚═╝     ╚═╝ ╚═════╝  ╚═════╝╚═╝  ╚═╝╚═╝     ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
