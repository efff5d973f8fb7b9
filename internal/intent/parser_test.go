package intent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"consistency-server/internal/intent"
	"consistency-server/internal/models"
)

func TestParser_Parse(t *testing.T) {
	parser := intent.NewParser(intent.DefaultConfig())

	testCases := []struct {
		name          string
		prompt        string
		category      models.IntentCategory
		expectedCount int
		confidence    float64
	}{
		{
			name:          "Solo indicators only",
			prompt:        "solo 1girl Mei cooking",
			category:      models.IntentSolo,
			expectedCount: 1,
			confidence:    0.95,
		},
		{
			name:          "Multi indicators with explicit count",
			prompt:        "group photo of Yuki, Mei, Rina, 3girls",
			category:      models.IntentMultiple,
			expectedCount: 3,
			confidence:    0.90,
		},
		{
			name:          "Conflicting indicators default to solo count",
			prompt:        "solo 1girl Mei but also 2girls in background",
			category:      models.IntentConflicted,
			expectedCount: 1,
			confidence:    0.30,
		},
		{
			name:          "No indicators at all",
			prompt:        "Mei standing near the window at dusk",
			category:      models.IntentUnclear,
			expectedCount: 1,
			confidence:    0.60,
		},
		{
			name:          "Numeric count of one stays solo",
			prompt:        "1girl walking home",
			category:      models.IntentSolo,
			expectedCount: 1,
			confidence:    0.95,
		},
		{
			name:          "Multi word without numeric count",
			prompt:        "everyone gathered in the hall",
			category:      models.IntentMultiple,
			expectedCount: 1,
			confidence:    0.90,
		},
		{
			name:          "Implied count from couple",
			prompt:        "a couple dancing",
			category:      models.IntentMultiple,
			expectedCount: 2,
			confidence:    0.90,
		},
		{
			name:          "Implied count from trio beats couple",
			prompt:        "a trio and a couple nearby",
			category:      models.IntentMultiple,
			expectedCount: 3,
			confidence:    0.90,
		},
		{
			name:          "Largest explicit count wins",
			prompt:        "2 girls in front, 5 people behind",
			category:      models.IntentMultiple,
			expectedCount: 5,
			confidence:    0.90,
		},
		{
			name:          "Case insensitive matching",
			prompt:        "SOLO Portrait of Rina",
			category:      models.IntentSolo,
			expectedCount: 1,
			confidence:    0.95,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := parser.Parse(tc.prompt)

			assert.Equal(t, tc.category, result.Category)
			assert.Equal(t, tc.expectedCount, result.ExpectedCount)
			assert.InDelta(t, tc.confidence, result.Confidence, 1e-9)
		})
	}
}

func TestParser_Parse_Idempotent(t *testing.T) {
	parser := intent.NewParser(intent.DefaultConfig())
	prompt := "solo 1girl Mei but also 2girls in background"

	first := parser.Parse(prompt)
	second := parser.Parse(prompt)

	assert.Equal(t, first, second)
}

func TestParser_Parse_MatchedIndicators(t *testing.T) {
	parser := intent.NewParser(intent.DefaultConfig())

	result := parser.Parse("solo portrait of Mei")

	assert.Contains(t, result.MatchedIndicators, "solo")
	assert.Contains(t, result.MatchedIndicators, "portrait")
	assert.Len(t, result.MatchedIndicators, 2)
}

func TestParser_Parse_CustomConfig(t *testing.T) {
	cfg := intent.DefaultConfig()
	cfg.ConflictedConfidence = 0.42
	parser := intent.NewParser(cfg)

	result := parser.Parse("solo group shot")

	assert.Equal(t, models.IntentConflicted, result.Category)
	assert.InDelta(t, 0.42, result.Confidence, 1e-9)
}
