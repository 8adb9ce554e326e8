package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/smartoutreach/hub/internal/api"
	"github.com/smartoutreach/hub/internal/config"
	"github.com/smartoutreach/hub/internal/dispatch"
	"github.com/smartoutreach/hub/internal/queue"
	"github.com/smartoutreach/hub/internal/store"
)

func main() {
	log.Println("SmartOutreach Hub API server starting...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := store.NewAWSConfig(ctx, cfg.AWS.Region, cfg.AWS.Profile)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	stores := store.NewDynamoStores(dynamoClient, cfg.Tables)

	// Pre-flight: verify the backing tables are reachable before accepting traffic.
	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := store.CheckConnection(pingCtx, dynamoClient, cfg.Tables); err != nil {
		log.Printf("Warning: DynamoDB pre-flight check failed: %v", err)
	} else {
		log.Println("DynamoDB tables reachable")
	}
	pingCancel()

	sqsClient := sqs.NewFromConfig(awsCfg)
	publisher := queue.NewSQSPublisher(sqsClient, cfg.Queues.OutboundSMS)

	orchestrator := dispatch.New(stores, publisher, cfg.Dispatch)

	handlers := api.NewHandlers(stores, orchestrator, publisher, dynamoClient, cfg.Tables)
	server := api.NewServer(cfg.Server.Port, api.NewRouter(handlers))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Listening on :%d", cfg.Server.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
