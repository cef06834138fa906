package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/The-Burnes-Center/aiep-app/internal/ai"
	"github.com/The-Burnes-Center/aiep-app/internal/cms"
	"github.com/The-Burnes-Center/aiep-app/internal/config"
	"github.com/The-Burnes-Center/aiep-app/internal/logger"
	"github.com/The-Burnes-Center/aiep-app/internal/retrieval"
	"github.com/The-Burnes-Center/aiep-app/internal/telemetry"
	"github.com/The-Burnes-Center/aiep-app/internal/vectorstore"
	"github.com/The-Burnes-Center/aiep-app/middleware"
	"github.com/The-Burnes-Center/aiep-app/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer("aiep-app-api")
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

	cmsClient := cms.NewClient(cfg.CMSBaseURL, 30*time.Second)

	embedder, err := ai.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.VectorDim)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	qdrant := vectorstore.NewClient(cfg.QdrantURL, cfg.QdrantAPIKey, 30*time.Second)
	retriever := retrieval.NewRetriever(embedder, qdrant, cfg.SearchLimit, cfg.ScoreThreshold)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	authMiddleware := middleware.NewAuthMiddleware(cmsClient)
	routes.SetupJobRoutes(router, cfg, cmsClient, queueClient, retriever, authMiddleware)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
