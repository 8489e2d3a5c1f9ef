package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/SaadNasir-Drago/Zolo/internal/api"
	"github.com/SaadNasir-Drago/Zolo/internal/cache"
	"github.com/SaadNasir-Drago/Zolo/internal/config"
	"github.com/SaadNasir-Drago/Zolo/internal/db"
	"github.com/SaadNasir-Drago/Zolo/internal/email"
	"github.com/SaadNasir-Drago/Zolo/internal/observability/tracing"
	"github.com/SaadNasir-Drago/Zolo/internal/realtime"
	"github.com/SaadNasir-Drago/Zolo/internal/services"
	"github.com/SaadNasir-Drago/Zolo/internal/storage"
	"github.com/SaadNasir-Drago/Zolo/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'img' (image processing), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, slog.Default(), tracing.Config{
		Endpoint:    cfg.OtelEndpoint,
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.Environment,
		RunMode:     cfg.RunMode,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()
	if err := db.EnsureIndexes(ctx, mongoDb); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	redisClient, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Email
	var primaryEmailSender email.Sender
	if cfg.MockServices {
		log.Println("MOCK_SERVICES enabled: Using Redis email sender.")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)
	if cfg.LogEmailsPath != "" {
		fileSender, err := email.NewFileEmailSender(cfg.LogEmailsPath, cfg)
		if err != nil {
			log.Printf("WARNING: Failed to initialize file email sender (LOG_EMAILS='%s'): %v. Proceeding without file logging.", cfg.LogEmailsPath, err)
		} else {
			compositeSender.AddSender(fileSender)
			log.Printf("LOG_EMAILS set, appending every message to %s", cfg.LogEmailsPath)
		}
	}

	// Realtime. Every process publishes through Redis; only API processes
	// subscribe and hold sockets.
	var dealService services.IDealService
	hub := realtime.NewHub(func(ctx context.Context, dealID, userID string) (bool, error) {
		dID, err := primitive.ObjectIDFromHex(dealID)
		if err != nil {
			return false, nil
		}
		uID, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			return false, nil
		}
		return dealService.IsParticipant(ctx, dID, uID)
	})
	bridge := realtime.NewRedisBridge(redisClient, cfg.RealtimeChannel, hub)

	userService := services.NewUserService(mongoDb, cfg)
	propertyService := services.NewPropertyService(mongoDb, cfg, hub)
	dealService = services.NewDealService(mongoClient, mongoDb, cfg, hub)
	messageService := services.NewMessageService(mongoDb, cfg, hub)
	interestService := services.NewInterestService(mongoDb, cfg)
	emailTemplateService := services.NewEmailTemplateService(mongoDb)

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize S3 storage: %v", err)
	}

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	taskProcessor := tasks.NewTaskProcessor(cfg, compositeSender, s3StorageService, emailTemplateService, interestService, propertyService)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Service API always runs.
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("Service API listening on :%s\n", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		fmt.Println("Service API server stopped.")
	}()

	var mainApiSrv *http.Server
	var taskServers []*asynq.Server
	bridgeCtx, stopBridge := context.WithCancel(ctx)
	defer stopBridge()

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		ready := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bridge.Run(bridgeCtx, ready); err != nil {
				log.Printf("Realtime bridge stopped: %v", err)
			}
		}()
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			log.Println("WARNING: realtime subscription not confirmed, continuing without waiting")
		}

		router := api.SetupRouter(cfg, api.Dependencies{
			Users:      userService,
			Properties: propertyService,
			Deals:      dealService,
			Messages:   messageService,
			Interests:  interestService,
			Storage:    s3StorageService,
			TaskClient: taskClient,
			Hub:        hub,
		})
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: otelhttp.NewHandler(router, cfg.OtelServiceName),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Main API listening on :%s\n", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			fmt.Println("Main API server stopped.")
		}()
	}

	workerMode := func(name string, isImageWorker, isBgWorker bool) {
		srv, mux := tasks.SetupServer(redisClient, taskProcessor, isImageWorker, isBgWorker)
		if srv == nil {
			return
		}
		// Start rather than Run: shutdown is driven from here, not by asynq's own signal handling.
		if err := srv.Start(mux); err != nil {
			log.Fatalf("%s task server error: %v", name, err)
		}
		fmt.Printf("%s task server started.\n", name)
		taskServers = append(taskServers, srv)
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		workerMode("Background", false, true)
	case "img":
		workerMode("Image processing", true, false)
	case "all":
		apiMode()
		workerMode("Background", false, true)
		workerMode("Image processing", true, false)
	default:
		log.Fatalf("Invalid run mode specified in config: %s.", cfg.RunMode)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)
	case <-shutdownChan:
		fmt.Println("\nShutdown requested via Service API. Shutting down gracefully...")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		fmt.Println("Shutting down Main API server...")
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}
	hub.Shutdown()
	stopBridge()

	for _, srv := range taskServers {
		srv.Shutdown()
	}

	fmt.Println("Waiting for servers to stop...")
	wg.Wait()

	if err := shutdownTracing(ctxShutdown); err != nil {
		log.Printf("Tracing shutdown error: %v", err)
	}
	fmt.Println("Server gracefully stopped")
}
