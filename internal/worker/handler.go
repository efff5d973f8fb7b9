package worker

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"consistency-server/internal/messaging"
	"consistency-server/internal/models"
	"consistency-server/internal/service"
)

// Prometheus metrics
var (
	tasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_tasks_processed_total",
			Help: "Total number of verification tasks processed.",
		},
		[]string{"status"}, // "passed", "failed", "needs_review", "error_unmarshal", "error_publish"
	)
	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "verification_task_duration_seconds",
		Help:    "Duration of verification task processing.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	consistencyScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "verification_consistency_score",
		Help:    "Distribution of consistency scores.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
	verdictErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verification_auto_verdict_errors_total",
		Help: "Total number of errors recording automatic verdicts.",
	})
)

// Handler processes verification task deliveries.
type Handler struct {
	logger          *zap.Logger
	verifier        service.VerificationService
	resultPublisher messaging.Publisher
	pusher          *push.Pusher // nil when no Pushgateway is configured
}

// NewHandler creates a delivery handler. pushGatewayURL may be empty; metrics
// are then only exposed process-locally.
func NewHandler(
	logger *zap.Logger,
	verifier service.VerificationService,
	resultPublisher messaging.Publisher,
	pushGatewayURL string,
) *Handler {
	if resultPublisher == nil {
		logger.Fatal("Result publisher cannot be nil for verification handler")
	}

	var pusher *push.Pusher
	if pushGatewayURL != "" {
		hostname, _ := os.Hostname()
		pusher = push.New(pushGatewayURL, "consistency-verifier").
			Grouping("instance", hostname).
			Gatherer(prometheus.DefaultGatherer)
		logger.Info("Prometheus Pusher initialized", zap.String("url", pushGatewayURL), zap.String("instance", hostname))
	}

	return &Handler{
		logger:          logger,
		verifier:        verifier,
		resultPublisher: resultPublisher,
		pusher:          pusher,
	}
}

// HandleDelivery runs both verification checks for one task and publishes the
// result. It returns true when the message should be acked.
func (h *Handler) HandleDelivery(ctx context.Context, msg amqp091.Delivery) bool {
	defer func() {
		if h.pusher == nil {
			return
		}
		if err := h.pusher.Push(); err != nil {
			h.logger.Error("Failed to push metrics to Pushgateway", zap.Error(err))
		}
	}()

	var task messaging.VerificationTaskPayload
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		h.logger.Error("Failed to unmarshal verification task",
			zap.Error(err),
			zap.String("correlation_id", msg.CorrelationId),
			zap.ByteString("body", msg.Body),
		)
		tasksProcessed.WithLabelValues("error_unmarshal").Inc()
		return false // Nack - unknown format
	}

	log := h.logger.With(
		zap.String("task_id", task.TaskID),
		zap.String("character_id", task.CharacterID.String()),
		zap.String("image_id", task.ImageID),
		zap.String("correlation_id", msg.CorrelationId),
	)
	log.Info("Received verification task")

	start := time.Now()
	result := h.verify(ctx, log, task)
	taskDuration.Observe(time.Since(start).Seconds())
	tasksProcessed.WithLabelValues(string(result.Status)).Inc()

	if err := h.resultPublisher.Publish(ctx, result, msg.CorrelationId); err != nil {
		log.Error("Failed to publish verification result", zap.Error(err))
		tasksProcessed.WithLabelValues("error_publish").Inc()
		return false // Nack - publish failure
	}

	log.Info("Verification task completed", zap.String("status", string(result.Status)))
	return true // Ack
}

// verify runs both checks and records an automatic verdict for clear-cut
// outcomes. Conflicted intents stay un-verdicted for a human reviewer.
func (h *Handler) verify(ctx context.Context, log *zap.Logger, task messaging.VerificationTaskPayload) messaging.VerificationResultPayload {
	result := messaging.VerificationResultPayload{
		TaskID:      task.TaskID,
		CharacterID: task.CharacterID,
		ImageID:     task.ImageID,
	}

	assessment, err := h.verifier.AssessConsistency(ctx, task.ImageID, task.ImagePath, task.CharacterID)
	if err != nil {
		log.Error("Consistency assessment failed", zap.Error(err))
		errMsg := err.Error()
		result.Status = messaging.VerificationStatusError
		result.ErrorDetails = &errMsg
		return result
	}
	result.Consistency = assessment
	consistencyScores.Observe(assessment.Score)

	composition, err := h.verifier.ValidateComposition(ctx, task.ImagePath, task.Prompt)
	if err != nil {
		log.Error("Composition validation failed", zap.Error(err))
		errMsg := err.Error()
		result.Status = messaging.VerificationStatusError
		result.ErrorDetails = &errMsg
		return result
	}
	result.Composition = composition

	switch {
	case composition.NeedsReview:
		result.Status = messaging.VerificationStatusNeedsReview
	case assessment.Passed && composition.Passed:
		result.Status = messaging.VerificationStatusPassed
		h.recordAutoVerdict(ctx, log, task, true, nil)
	default:
		result.Status = messaging.VerificationStatusFailed
		h.recordAutoVerdict(ctx, log, task, false, &models.VerdictFeedback{
			Category: rejectionCategory(assessment, composition),
			Reason:   rejectionReason(assessment, composition),
		})
	}

	return result
}

func (h *Handler) recordAutoVerdict(ctx context.Context, log *zap.Logger, task messaging.VerificationTaskPayload, approved bool, feedback *models.VerdictFeedback) {
	queued, err := h.verifier.RecordVerdict(ctx, task.ImageID, task.CharacterID, approved, feedback)
	if err != nil {
		// The verification result still goes out; the verdict can be
		// re-submitted by the reviewer.
		log.Error("Failed to record automatic verdict", zap.Error(err))
		verdictErrors.Inc()
		return
	}
	if queued {
		log.Info("Automatic rejection queued a regeneration")
	}
}

func rejectionCategory(assessment *models.ConsistencyAssessment, composition *models.CompositionResult) string {
	if !assessment.Passed {
		return models.FeedbackWrongCharacter
	}
	return models.FeedbackCompositionMismatch
}

func rejectionReason(assessment *models.ConsistencyAssessment, composition *models.CompositionResult) string {
	if !assessment.Passed {
		if assessment.Error != "" {
			return assessment.Error
		}
		return "Consistency score below threshold"
	}
	return composition.Reason
}
