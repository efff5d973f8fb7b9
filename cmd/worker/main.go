package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"consistency-server/internal/composition"
	"consistency-server/internal/config"
	"consistency-server/internal/database"
	"consistency-server/internal/intent"
	"consistency-server/internal/ledger"
	"consistency-server/internal/learner"
	"consistency-server/internal/logger"
	"consistency-server/internal/messaging"
	"consistency-server/internal/refstore"
	"consistency-server/internal/regen"
	"consistency-server/internal/scoring"
	"consistency-server/internal/service"
	"consistency-server/internal/vision"
	"consistency-server/internal/worker"
)

const (
	maxReconnectAttempts = 5
	reconnectDelay       = 5 * time.Second
)

func main() {
	// --- 1. Configuration ---
	cfg := config.Load()

	// --- 2. Logger ---
	appLogger, err := logger.New(cfg.LoggerConfigFor())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Logger initialized", zap.String("level", cfg.Logger.Level))
	appLogger.Info("Starting Consistency Verification Worker...", zap.String("env", cfg.AppEnv))

	// --- 3. PostgreSQL ---
	pgCtx, pgCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Postgres.ConnTimeoutSec)*time.Second)
	pgPool, err := pgxpool.New(pgCtx, cfg.Postgres.DSN)
	if err != nil {
		pgCancel()
		appLogger.Fatal("Failed to create PostgreSQL pool", zap.Error(err))
	}
	if err := pgPool.Ping(pgCtx); err != nil {
		pgCancel()
		appLogger.Fatal("Failed to ping PostgreSQL", zap.Error(err))
	}
	pgCancel()
	defer pgPool.Close()
	appLogger.Info("PostgreSQL connected")

	// --- 4. Redis ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to ping Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Redis connected")

	// --- 5. Vision backend and scoring strategy ---
	visionClient := vision.NewHTTPClient(cfg.Vision, appLogger)
	selectCtx, selectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	scorer := scoring.Select(selectCtx, visionClient, appLogger)
	selectCancel()

	// --- 6. Repositories and components ---
	refRepo := database.NewPgReferenceRepository(pgPool, appLogger)
	verdictRepo := database.NewPgVerdictRepository(pgPool, appLogger)
	outcomeRepo := database.NewPgOutcomeRepository(pgPool, appLogger)
	regenGuard := database.NewRedisRegenGuard(redisClient, appLogger)

	store := refstore.New(refRepo, scorer, cfg.Thresholds.ReferenceCap, cfg.Thresholds.ReferenceAccept, appLogger)
	parser := intent.NewParser(intent.Config{
		SoloConfidence:       cfg.Thresholds.SoloConfidence,
		MultipleConfidence:   cfg.Thresholds.MultipleConfidence,
		ConflictedConfidence: cfg.Thresholds.ConflictedConfidence,
		UnclearConfidence:    cfg.Thresholds.UnclearConfidence,
	})
	validator := composition.NewValidator(visionClient, appLogger)
	paramLearner := learner.New(outcomeRepo, verdictRepo, learner.Config{
		MinSupport:     cfg.Thresholds.MinLearnerSupport,
		SuccessQuality: cfg.Thresholds.SuccessQuality,
	}, appLogger)

	// --- 7. RabbitMQ ---
	mqCtx, mqCancel := context.WithCancel(context.Background())
	defer mqCancel()

	conn, regenPublisher, resultPublisher := connectRabbitMQ(mqCtx, appLogger, cfg.RabbitMQ)
	if conn == nil {
		appLogger.Fatal("Failed to establish RabbitMQ connection")
	}
	defer func() {
		_ = regenPublisher.Close()
		_ = resultPublisher.Close()
		_ = conn.Close()
	}()

	trigger := regen.NewTrigger(regenPublisher, paramLearner, appLogger)
	reviewLedger := ledger.New(verdictRepo, outcomeRepo, regenGuard, trigger, appLogger)

	verifier := service.NewVerificationService(
		store,
		parser,
		validator,
		reviewLedger,
		paramLearner,
		service.Config{
			ConsistencyMin: cfg.Thresholds.ConsistencyMin,
			ScoringMethod:  scorer.Method(),
		},
		appLogger,
	)
	appLogger.Info("Verification service initialized", zap.String("scoring_method", scorer.Method()))

	// --- 8. Consumer ---
	handler := worker.NewHandler(appLogger, verifier, resultPublisher, cfg.PushGatewayURL)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		startConsumer(mqCtx, appLogger, cfg.RabbitMQ, conn, handler)
		appLogger.Info("RabbitMQ consumer exited")
	}()

	appLogger.Info("Consistency Verification Worker started successfully")

	// --- 9. Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down Consistency Verification Worker...")
	mqCancel()
	wg.Wait()
	appLogger.Info("Consistency Verification Worker shut down gracefully")
}

// connectRabbitMQ dials the broker with bounded retries and builds both
// publishers on the established connection.
func connectRabbitMQ(ctx context.Context, logger *zap.Logger, cfg config.RabbitMQConfig) (*amqp091.Connection, *messaging.RabbitMQPublisher, *messaging.RabbitMQPublisher) {
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		conn, err := amqp091.Dial(cfg.URL)
		if err == nil {
			regenPub, pubErr := messaging.NewRabbitMQPublisher(conn, cfg.RegenQueueName, logger)
			if pubErr != nil {
				logger.Error("Failed to create regeneration publisher", zap.Error(pubErr))
				_ = conn.Close()
				return nil, nil, nil
			}
			resultPub, pubErr := messaging.NewRabbitMQPublisher(conn, cfg.ResultQueueName, logger)
			if pubErr != nil {
				logger.Error("Failed to create result publisher", zap.Error(pubErr))
				_ = regenPub.Close()
				_ = conn.Close()
				return nil, nil, nil
			}
			logger.Info("RabbitMQ connected successfully")
			return conn, regenPub, resultPub
		}

		logger.Error("Failed to connect to RabbitMQ", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-time.After(reconnectDelay):
			logger.Info("Retrying RabbitMQ connection...")
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping RabbitMQ connection attempts")
			return nil, nil, nil
		}
	}
	return nil, nil, nil
}

// startConsumer declares the task queue and feeds deliveries to the handler.
func startConsumer(ctx context.Context, logger *zap.Logger, cfg config.RabbitMQConfig, conn *amqp091.Connection, handler *worker.Handler) {
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("Failed to open RabbitMQ channel for consumer", zap.Error(err))
		return
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		cfg.TaskQueue.Name,
		cfg.TaskQueue.Durable,
		cfg.TaskQueue.AutoDelete,
		cfg.TaskQueue.Exclusive,
		cfg.TaskQueue.NoWait,
		nil, // arguments
	)
	if err != nil {
		logger.Error("Failed to declare task queue", zap.String("queue", cfg.TaskQueue.Name), zap.Error(err))
		return
	}
	logger.Info("Task queue declared", zap.String("queue", q.Name), zap.Int("messages", q.Messages))

	// One task at a time: scoring and detection are CPU/GPU-bound.
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Error("Failed to set QoS", zap.Error(err))
		return
	}

	msgs, err := ch.Consume(
		q.Name,
		cfg.ConsumerName,
		false, // manual ack
		cfg.TaskQueue.Exclusive,
		false, // no-local
		cfg.TaskQueue.NoWait,
		nil,
	)
	if err != nil {
		logger.Error("Failed to register consumer", zap.String("queue", q.Name), zap.Error(err))
		return
	}

	logger.Info("Consumer started, waiting for messages...")

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn("Consumer channel closed by RabbitMQ")
				return
			}
			if handler.HandleDelivery(ctx, msg) {
				if ackErr := msg.Ack(false); ackErr != nil {
					logger.Error("Failed to ack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(ackErr))
				}
			} else {
				if nackErr := msg.Nack(false, false); nackErr != nil {
					logger.Error("Failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(nackErr))
				}
			}
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping consumer...")
			return
		}
	}
}
