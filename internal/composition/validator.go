// Package composition checks detected subject counts against parsed prompt
// intent.
package composition

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"consistency-server/internal/models"
	"consistency-server/internal/vision"
)

// Conflicted intents get a lenient fixed window and are flagged for human
// review regardless of pass/fail.
const (
	conflictedMin = 1
	conflictedMax = 3
)

// Validator runs subject detection and applies the per-category pass policy.
type Validator struct {
	detector vision.Detector
	logger   *zap.Logger
}

// NewValidator creates a composition validator.
func NewValidator(detector vision.Detector, logger *zap.Logger) *Validator {
	return &Validator{
		detector: detector,
		logger:   logger.Named("CompositionValidator"),
	}
}

// Validate detects subjects in the image and checks the count against the
// intent. Detection failures are non-fatal: the result carries an error
// annotation and fails, the pipeline continues.
func (v *Validator) Validate(ctx context.Context, image []byte, intent models.PromptIntent) *models.CompositionResult {
	result := &models.CompositionResult{
		Intent:      intent,
		NeedsReview: intent.Category == models.IntentConflicted,
	}

	regions, err := v.detector.Detect(ctx, image)
	if err != nil {
		v.logger.Warn("Subject detection failed, composition check fails non-fatally", zap.Error(err))
		result.Passed = false
		result.Error = err.Error()
		result.Reason = "Subject detection failed"
		return result
	}

	result.Regions = regions
	result.DetectedCount = len(regions)
	detected := result.DetectedCount

	switch intent.Category {
	case models.IntentSolo:
		result.Passed = detected == 1
		if !result.Passed {
			result.Reason = fmt.Sprintf("Expected 1 person (solo), found %d", detected)
		}

	case models.IntentMultiple:
		expected := intent.ExpectedCount
		tol := expected / 2
		if tol < 1 {
			tol = 1
		}
		low := expected - tol
		if low < 2 {
			low = 2
		}
		high := expected + tol
		result.Passed = detected >= low && detected <= high
		if !result.Passed {
			result.Reason = fmt.Sprintf("Expected %d people (within [%d,%d]), found %d", expected, low, high, detected)
		}

	case models.IntentConflicted:
		result.Passed = detected >= conflictedMin && detected <= conflictedMax
		if !result.Passed {
			result.Reason = fmt.Sprintf("Conflicting prompt intent, found %d people (accepting %d-%d)", detected, conflictedMin, conflictedMax)
		}

	default: // IntentUnclear and anything unknown defaults to the solo rule
		result.Passed = detected == 1
		if !result.Passed {
			result.Reason = fmt.Sprintf("Expected 1 person (unclear intent defaults to solo), found %d", detected)
		}
	}

	v.logger.Debug("Composition validated",
		zap.String("category", string(intent.Category)),
		zap.Int("expected", intent.ExpectedCount),
		zap.Int("detected", detected),
		zap.Bool("passed", result.Passed),
	)
	return result
}
