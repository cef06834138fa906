package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/The-Burnes-Center/aiep-app/internal/ai"
	"github.com/The-Burnes-Center/aiep-app/internal/chunker"
	"github.com/The-Burnes-Center/aiep-app/internal/cms"
	"github.com/The-Burnes-Center/aiep-app/internal/config"
	"github.com/The-Burnes-Center/aiep-app/internal/extract"
	"github.com/The-Burnes-Center/aiep-app/internal/logger"
	"github.com/The-Burnes-Center/aiep-app/internal/pages"
	"github.com/The-Burnes-Center/aiep-app/internal/pipeline"
	"github.com/The-Burnes-Center/aiep-app/internal/queue"
	"github.com/The-Burnes-Center/aiep-app/internal/telemetry"
	"github.com/The-Burnes-Center/aiep-app/internal/vectorstore"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("aiep-app-worker")
	if err != nil {
		log.Printf("Tracing disabled: %v", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	ctx := context.Background()
	callTimeout := time.Duration(cfg.CallTimeout) * time.Second

	vision, err := ai.NewVisionClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, callTimeout, cfg.MaxRetries)
	if err != nil {
		log.Fatal("Failed to initialize vision client:", err)
	}
	defer vision.Close()

	embedder, err := ai.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.VectorDim)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	cmsClient := cms.NewClient(cfg.CMSBaseURL, 30*time.Second)
	renderer := pages.NewRenderer(cfg.RenderServiceURL, 5*time.Minute)
	extractor := extract.NewExtractor(vision, cfg.PageConcurrency)
	qdrant := vectorstore.NewClient(cfg.QdrantURL, cfg.QdrantAPIKey, 30*time.Second)
	indexer := pipeline.NewIndexer(embedder, qdrant)
	driver := pipeline.NewDriver(renderer, extractor, chunker.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap), indexer, cmsClient)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	processor := queue.NewTaskProcessor(driver, queue.NewRedisLocker(rdb))

	sweeper := queue.NewSweeper(cmsClient, cfg.CMSServiceToken, time.Duration(cfg.JobStaleMinutes)*time.Minute)
	scheduler, err := sweeper.Schedule(time.Duration(cfg.SweepIntervalMinutes) * time.Minute)
	if err != nil {
		log.Fatal("Failed to schedule reconciliation sweep:", err)
	}
	defer scheduler.Stop()

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.WorkerCount,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task failed: %s, error: %v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskProcessJob, func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := processor.ProcessJob(ctx, t)
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.RecordJobProcessing(time.Since(start).Seconds(), status)
		return err
	})

	log.Println("Starting worker...")
	log.Printf("   Concurrency: %d", cfg.WorkerCount)
	log.Printf("   Queues: critical(6), default(3), low(1)")
	log.Printf("   Redis: %s", cfg.RedisURL)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
