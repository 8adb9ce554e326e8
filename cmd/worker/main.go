package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/pinpointsmsvoicev2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	"github.com/smartoutreach/hub/internal/config"
	"github.com/smartoutreach/hub/internal/deliver"
	"github.com/smartoutreach/hub/internal/gateway"
	"github.com/smartoutreach/hub/internal/inbound"
	"github.com/smartoutreach/hub/internal/metrics"
	"github.com/smartoutreach/hub/internal/store"
)

func main() {
	log.Println("SmartOutreach Hub delivery worker starting...")

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
	sqsClient := sqs.NewFromConfig(awsCfg)

	smsClient := pinpointsmsvoicev2.NewFromConfig(awsCfg)
	sender := gateway.NewSMSGateway(smsClient, cfg.SMS.OriginationIdentity, cfg.SMS.MessageType)

	// Redis-backed dedup keeps metric counters exact across SQS redeliveries.
	// Without Redis we fall back to trusting at-least-once delivery.
	var dedup metrics.Deduper = metrics.PassthroughDeduper{}
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v, response dedup disabled", cfg.Redis.Addr, err)
			redisClient.Close()
			redisClient = nil
		} else {
			dedup = metrics.NewRedisDeduper(redisClient, cfg.Redis.DedupTTL())
			log.Printf("Redis connected: %s (response dedup enabled)", cfg.Redis.Addr)
		}
		pingCancel()
	} else {
		log.Println("Redis not configured (REDIS_ADDR not set), response dedup disabled")
	}

	aggregator := metrics.New(stores.Campaigns, stores.Enrollments, dedup)
	processor := deliver.NewProcessor(stores, sender, aggregator)

	outboundWorker := deliver.NewWorker(sqsClient, cfg.Queues.OutboundSMS, processor)
	outboundWorker.Start(ctx)
	log.Printf("Outbound delivery worker started (queue=%s)", cfg.Queues.OutboundSMS)

	var inboundWorker *inbound.Worker
	if cfg.Queues.InboundSMS != "" {
		inboundProcessor := inbound.NewProcessor(stores)
		inboundWorker = inbound.NewWorker(sqsClient, cfg.Queues.InboundSMS, inboundProcessor)
		inboundWorker.Start(ctx)
		log.Printf("Inbound SMS worker started (queue=%s)", cfg.Queues.InboundSMS)
	} else {
		log.Println("Inbound SMS worker not configured (INBOUND_SMS_QUEUE_URL not set)")
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done

	log.Println("Shutting down...")
	cancel()
	outboundWorker.Stop()
	if inboundWorker != nil {
		inboundWorker.Stop()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	log.Println("Worker stopped")
}
