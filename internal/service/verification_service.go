// Package service exposes the verification core to the surrounding service:
// consistency assessment, composition validation, verdict recording, and the
// learner queries. Callers invoke it in-process; the queue worker is one such
// caller.
package service

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consistency-server/internal/models"
)

// ConsistencyMatcher scores a candidate against a character's reference set.
// Implemented by refstore.Store.
type ConsistencyMatcher interface {
	BestMatch(ctx context.Context, characterID uuid.UUID, imageID, imagePath string, image []byte) (float64, error)
}

// IntentParser infers the expected composition from a prompt.
type IntentParser interface {
	Parse(prompt string) models.PromptIntent
}

// CompositionChecker validates detected subjects against an intent.
// Implemented by composition.Validator.
type CompositionChecker interface {
	Validate(ctx context.Context, image []byte, intent models.PromptIntent) *models.CompositionResult
}

// VerdictRecorder is the review ledger surface. Implemented by ledger.Ledger.
type VerdictRecorder interface {
	RecordVerdict(ctx context.Context, imageID string, characterID uuid.UUID, approved bool, feedback *models.VerdictFeedback) (bool, error)
	RecordOutcome(ctx context.Context, outcome *models.GenerationOutcome) error
}

// ParamAdvisor is the learner surface. Implemented by learner.Learner.
type ParamAdvisor interface {
	SuggestParams(ctx context.Context, characterID uuid.UUID) (*models.ParamSuggestion, string, error)
	RejectionPatterns(ctx context.Context, characterID uuid.UUID) ([]models.RejectionPattern, error)
	QualityTrend(ctx context.Context, characterID uuid.UUID, windowDays int) ([]models.QualityPoint, error)
}

// VerificationService is the boundary this core presents to the orchestrating
// service.
type VerificationService interface {
	// AssessConsistency scores the artifact against the character's reference
	// set. Decode/read failures are non-fatal: the assessment carries an
	// error annotation and a failing score.
	AssessConsistency(ctx context.Context, imageID, imagePath string, characterID uuid.UUID) (*models.ConsistencyAssessment, error)
	// ValidateComposition checks the detected subject count against the
	// prompt's parsed intent.
	ValidateComposition(ctx context.Context, imagePath, prompt string) (*models.CompositionResult, error)
	// RecordVerdict appends the verdict and reports whether a regeneration
	// was queued by this call.
	RecordVerdict(ctx context.Context, imageID string, characterID uuid.UUID, approved bool, feedback *models.VerdictFeedback) (bool, error)
	// RecordOutcome appends a generation outcome to the learner's history.
	RecordOutcome(ctx context.Context, outcome *models.GenerationOutcome) error
	SuggestParams(ctx context.Context, characterID uuid.UUID) (*models.ParamSuggestion, string, error)
	RejectionPatterns(ctx context.Context, characterID uuid.UUID) ([]models.RejectionPattern, error)
	QualityTrend(ctx context.Context, characterID uuid.UUID, windowDays int) ([]models.QualityPoint, error)
	// SetCharacterThreshold overrides the global consistency threshold for
	// one character.
	SetCharacterThreshold(characterID uuid.UUID, threshold float64)
}

// Config holds the service-level thresholds.
type Config struct {
	// ConsistencyMin is the global pass threshold for consistency scores.
	ConsistencyMin float64
	// ScoringMethod names the active strategy for assessments.
	ScoringMethod string
}

type verificationService struct {
	matcher   ConsistencyMatcher
	parser    IntentParser
	validator CompositionChecker
	recorder  VerdictRecorder
	advisor   ParamAdvisor
	cfg       Config

	mu            sync.RWMutex
	charThreshold map[uuid.UUID]float64

	logger *zap.Logger
}

var _ VerificationService = (*verificationService)(nil)

// NewVerificationService wires the verification components behind the boundary.
func NewVerificationService(
	matcher ConsistencyMatcher,
	parser IntentParser,
	validator CompositionChecker,
	recorder VerdictRecorder,
	advisor ParamAdvisor,
	cfg Config,
	logger *zap.Logger,
) VerificationService {
	return &verificationService{
		matcher:       matcher,
		parser:        parser,
		validator:     validator,
		recorder:      recorder,
		advisor:       advisor,
		cfg:           cfg,
		charThreshold: make(map[uuid.UUID]float64),
		logger:        logger.Named("VerificationService"),
	}
}

func (s *verificationService) thresholdFor(characterID uuid.UUID) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.charThreshold[characterID]; ok {
		return t
	}
	return s.cfg.ConsistencyMin
}

// SetCharacterThreshold overrides the consistency threshold for one character.
func (s *verificationService) SetCharacterThreshold(characterID uuid.UUID, threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charThreshold[characterID] = threshold
}

// AssessConsistency implements VerificationService.
func (s *verificationService) AssessConsistency(ctx context.Context, imageID, imagePath string, characterID uuid.UUID) (*models.ConsistencyAssessment, error) {
	assessment := &models.ConsistencyAssessment{
		ImageID:     imageID,
		CharacterID: characterID,
		Method:      s.cfg.ScoringMethod,
		AssessedAt:  time.Now().UTC(),
	}
	threshold := s.thresholdFor(characterID)

	image, err := os.ReadFile(imagePath)
	if err != nil {
		s.logger.Warn("Failed to read artifact, assessment fails non-fatally",
			zap.String("image_id", imageID),
			zap.String("path", imagePath),
			zap.Error(err),
		)
		assessment.Error = err.Error()
		return assessment, nil
	}

	score, err := s.matcher.BestMatch(ctx, characterID, imageID, imagePath, image)
	if err != nil {
		s.logger.Warn("Consistency scoring failed, assessment fails non-fatally",
			zap.String("image_id", imageID),
			zap.String("character_id", characterID.String()),
			zap.Error(err),
		)
		assessment.Error = err.Error()
		return assessment, nil
	}

	assessment.Score = score
	assessment.Passed = score >= threshold

	s.logger.Debug("Consistency assessed",
		zap.String("image_id", imageID),
		zap.String("character_id", characterID.String()),
		zap.Float64("score", score),
		zap.Float64("threshold", threshold),
		zap.Bool("passed", assessment.Passed),
	)
	return assessment, nil
}

// ValidateComposition implements VerificationService.
func (s *verificationService) ValidateComposition(ctx context.Context, imagePath, prompt string) (*models.CompositionResult, error) {
	intent := s.parser.Parse(prompt)

	image, err := os.ReadFile(imagePath)
	if err != nil {
		s.logger.Warn("Failed to read artifact, composition check fails non-fatally",
			zap.String("path", imagePath),
			zap.Error(err),
		)
		return &models.CompositionResult{
			Intent:      intent,
			Passed:      false,
			Reason:      "Artifact could not be read",
			NeedsReview: intent.Category == models.IntentConflicted,
			Error:       err.Error(),
		}, nil
	}

	return s.validator.Validate(ctx, image, intent), nil
}

// RecordVerdict implements VerificationService.
func (s *verificationService) RecordVerdict(ctx context.Context, imageID string, characterID uuid.UUID, approved bool, feedback *models.VerdictFeedback) (bool, error) {
	return s.recorder.RecordVerdict(ctx, imageID, characterID, approved, feedback)
}

// RecordOutcome implements VerificationService.
func (s *verificationService) RecordOutcome(ctx context.Context, outcome *models.GenerationOutcome) error {
	return s.recorder.RecordOutcome(ctx, outcome)
}

// SuggestParams implements VerificationService.
func (s *verificationService) SuggestParams(ctx context.Context, characterID uuid.UUID) (*models.ParamSuggestion, string, error) {
	return s.advisor.SuggestParams(ctx, characterID)
}

// RejectionPatterns implements VerificationService.
func (s *verificationService) RejectionPatterns(ctx context.Context, characterID uuid.UUID) ([]models.RejectionPattern, error) {
	return s.advisor.RejectionPatterns(ctx, characterID)
}

// QualityTrend implements VerificationService.
func (s *verificationService) QualityTrend(ctx context.Context, characterID uuid.UUID, windowDays int) ([]models.QualityPoint, error) {
	return s.advisor.QualityTrend(ctx, characterID, windowDays)
}
