// Command gateway is the composition root for the RevOps conversational
// gateway: it wires C1-C6 together, applies embedded database migrations,
// starts the agent and delivery worker pools, and serves the ingress HTTP
// API until signaled to shut down.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/GuyDuerFB/revops-gateway/internal/agentclient"
	"github.com/GuyDuerFB/revops-gateway/internal/chat"
	"github.com/GuyDuerFB/revops-gateway/internal/clock"
	"github.com/GuyDuerFB/revops-gateway/internal/config"
	"github.com/GuyDuerFB/revops-gateway/internal/delivery"
	"github.com/GuyDuerFB/revops-gateway/internal/ingress"
	"github.com/GuyDuerFB/revops-gateway/internal/recorder"
	"github.com/GuyDuerFB/revops-gateway/internal/recorder/objectstore"
	"github.com/GuyDuerFB/revops-gateway/internal/signature"
	"github.com/GuyDuerFB/revops-gateway/internal/store"
	"github.com/GuyDuerFB/revops-gateway/internal/workitem"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := config.Load(filepath.Join(*configDir, "config.yaml"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := store.NewClient(ctx, store.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        os.Getenv("DB_PASSWORD"),
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL and applied migrations")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AgentRuntime.Region))
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}

	chatSvc := chat.NewService(chat.ServiceConfig{Token: cfg.Chat.BotToken, Channel: cfg.Chat.Channel})

	objStore := objectstore.New(s3.NewFromConfig(awsCfg), cfg.ObjectStore.Bucket)
	rec := recorder.New(recorder.NewObjectExporter(objStore))

	deliveryRepo := delivery.NewRepository(dbClient.DB())
	deliveryPool := delivery.NewPool(podID(), deliveryRepo, delivery.NewDeliverer(), delivery.PoolConfig{
		WorkerCount:     cfg.Queue.DeliveryWorkerCount,
		AttemptDeadline: 30 * time.Second,
		PollInterval:    cfg.Queue.PollInterval,
		PollJitter:      cfg.Queue.PollIntervalJitter,
		Retry: delivery.RetryPolicy{
			BaseDelay:      cfg.DeliveryRetry.BaseDelay,
			Multiplier:     cfg.DeliveryRetry.Multiplier,
			Cap:            cfg.DeliveryRetry.Cap,
			MaxAttempts:    cfg.DeliveryRetry.MaxAttempts,
			JitterFraction: cfg.DeliveryRetry.JitterFraction,
		},
	})

	runtime := agentclient.NewBedrockAgentRuntime(bedrockruntime.NewFromConfig(awsCfg))
	invoker := agentclient.NewInvoker(agentclient.Config{
		AgentID:                  cfg.AgentRuntime.AgentID,
		AgentAliasID:             cfg.AgentRuntime.AgentAliasID,
		ReadTimeout:              cfg.AgentRuntime.ReadTimeout,
		MaxRetries:               cfg.AgentRuntime.MaxRetries,
		ProgressThrottleInterval: time.Duration(cfg.Chat.ProgressThrottleMS) * time.Millisecond,
		DeliveryMaxAttempts:      cfg.DeliveryRetry.MaxAttempts,
	}, runtime, chatSvc, rec, deliveryRepo, cfg.DeliveryTarget, clock.Real{})

	workItemRepo := workitem.NewRepository(dbClient.DB())
	workItemPool := workitem.NewPool(podID(), workItemRepo, workitem.PoolConfig{
		WorkerCount:           cfg.Queue.AgentWorkerCount,
		MaxConcurrentSessions: cfg.Queue.MaxConcurrentSessions,
		PollInterval:          cfg.Queue.PollInterval,
		PollIntervalJitter:    cfg.Queue.PollIntervalJitter,
	}, invoker)

	if err := workItemPool.Start(ctx); err != nil {
		log.Fatalf("failed to start work item pool: %v", err)
	}
	deliveryPool.Start(ctx)

	router := gin.New()
	router.Use(gin.Recovery())

	verifier := signature.New(cfg.Chat.SigningSecret, cfg.Chat.ReplayWindow)
	dedup := ingress.NewDedup(dbClient.DB(), cfg.Chat.DedupWindow)
	ingressRouter := ingress.NewRouter(verifier, chatSvc, workItemRepo, dedup, dbClient.DB(), workItemPool, clock.Real{})
	ingressRouter.Register(router)

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.GracefulShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("error shutting down HTTP server", "error", err)
	}

	workItemPool.Stop()
	deliveryPool.Stop()
	slog.Info("shutdown complete")
}

func podID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "gateway-local"
	}
	return host
}
