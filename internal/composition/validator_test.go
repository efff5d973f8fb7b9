package composition_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"consistency-server/internal/composition"
	"consistency-server/internal/models"
	visionmocks "consistency-server/internal/vision/mocks"
)

func regions(n int) []models.Region {
	out := make([]models.Region, n)
	for i := range out {
		out[i] = models.Region{X: i * 10, Y: 0, Width: 8, Height: 8, Confidence: 0.9, Kind: "face"}
	}
	return out
}

func TestValidator_Validate(t *testing.T) {
	ctx := context.Background()
	image := []byte("fake image bytes")

	testCases := []struct {
		name           string
		intent         models.PromptIntent
		detected       int
		wantPassed     bool
		wantReview     bool
		reasonContains string
	}{
		{
			name:       "Solo with one subject passes",
			intent:     models.PromptIntent{Category: models.IntentSolo, ExpectedCount: 1},
			detected:   1,
			wantPassed: true,
		},
		{
			name:           "Solo with two subjects fails",
			intent:         models.PromptIntent{Category: models.IntentSolo, ExpectedCount: 1},
			detected:       2,
			wantPassed:     false,
			reasonContains: "Expected 1",
		},
		{
			name:       "Multiple within tolerance window passes",
			intent:     models.PromptIntent{Category: models.IntentMultiple, ExpectedCount: 3},
			detected:   4,
			wantPassed: true,
		},
		{
			name:       "Multiple at lower window bound passes",
			intent:     models.PromptIntent{Category: models.IntentMultiple, ExpectedCount: 3},
			detected:   2,
			wantPassed: true,
		},
		{
			name:           "Multiple below window floor fails",
			intent:         models.PromptIntent{Category: models.IntentMultiple, ExpectedCount: 3},
			detected:       1,
			wantPassed:     false,
			reasonContains: "Expected 3",
		},
		{
			name:           "Multiple above window fails",
			intent:         models.PromptIntent{Category: models.IntentMultiple, ExpectedCount: 3},
			detected:       5,
			wantPassed:     false,
			reasonContains: "found 5",
		},
		{
			name:       "Conflicted within lenient window passes but needs review",
			intent:     models.PromptIntent{Category: models.IntentConflicted, ExpectedCount: 1},
			detected:   3,
			wantPassed: true,
			wantReview: true,
		},
		{
			name:           "Conflicted outside lenient window fails",
			intent:         models.PromptIntent{Category: models.IntentConflicted, ExpectedCount: 1},
			detected:       4,
			wantPassed:     false,
			wantReview:     true,
			reasonContains: "Conflicting",
		},
		{
			name:       "Unclear defaults to solo rule",
			intent:     models.PromptIntent{Category: models.IntentUnclear, ExpectedCount: 1},
			detected:   1,
			wantPassed: true,
		},
		{
			name:           "Unclear with zero subjects fails",
			intent:         models.PromptIntent{Category: models.IntentUnclear, ExpectedCount: 1},
			detected:       0,
			wantPassed:     false,
			reasonContains: "Expected 1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			detector := new(visionmocks.Detector)
			detector.On("Detect", ctx, image).Return(regions(tc.detected), nil).Once()

			validator := composition.NewValidator(detector, zap.NewNop())
			result := validator.Validate(ctx, image, tc.intent)

			assert.Equal(t, tc.wantPassed, result.Passed)
			assert.Equal(t, tc.wantReview, result.NeedsReview)
			assert.Equal(t, tc.detected, result.DetectedCount)
			assert.Len(t, result.Regions, tc.detected)
			assert.Empty(t, result.Error)
			if tc.reasonContains != "" {
				assert.Contains(t, result.Reason, tc.reasonContains)
			}
			detector.AssertExpectations(t)
		})
	}
}

func TestValidator_Validate_DetectionFailure(t *testing.T) {
	ctx := context.Background()
	image := []byte("fake image bytes")

	detector := new(visionmocks.Detector)
	detector.On("Detect", mock.Anything, image).
		Return(nil, errors.New("backend returned status 502")).Once()

	validator := composition.NewValidator(detector, zap.NewNop())
	result := validator.Validate(ctx, image, models.PromptIntent{Category: models.IntentSolo, ExpectedCount: 1})

	assert.False(t, result.Passed)
	assert.Equal(t, "Subject detection failed", result.Reason)
	assert.Contains(t, result.Error, "502")
	assert.Zero(t, result.DetectedCount)
	detector.AssertExpectations(t)
}
