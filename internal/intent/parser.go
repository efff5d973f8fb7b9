// Package intent infers the expected subject composition of a generation
// prompt. The indicator tables are declarative data; the resolution policy
// lives in Parse. Adding a new phrase is a table change, not a logic change.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"consistency-server/internal/models"
)

// soloIndicator marks phrases implying a single subject.
type soloIndicator struct {
	label   string
	pattern *regexp.Regexp
}

// multiIndicator marks phrases implying several subjects. A countGroup > 0
// means the pattern captures an explicit subject count in that group; a fixed
// impliedCount covers words like "trio" that encode their count implicitly.
type multiIndicator struct {
	label        string
	pattern      *regexp.Regexp
	countGroup   int
	impliedCount int
}

var soloIndicators = []soloIndicator{
	{"solo", regexp.MustCompile(`(?i)\bsolo\b`)},
	{"1girl", regexp.MustCompile(`(?i)\b1girl\b`)},
	{"1boy", regexp.MustCompile(`(?i)\b1boy\b`)},
	{"alone", regexp.MustCompile(`(?i)\balone\b`)},
	{"single", regexp.MustCompile(`(?i)\bsingle\b`)},
	{"one girl", regexp.MustCompile(`(?i)\bone (?:girl|boy|woman|man|person)\b`)},
	{"by herself", regexp.MustCompile(`(?i)\bby (?:herself|himself|themself)\b`)},
	{"portrait", regexp.MustCompile(`(?i)\bportrait\b`)},
}

var multiIndicators = []multiIndicator{
	// Numeric counts: "3girls", "2 people", "4 characters". Counts below two
	// are ignored, a count of one is the solo table's business.
	{"count", regexp.MustCompile(`(?i)\b(\d+)\s*(?:girls?|boys?|people|persons?|characters?|subjects?|women|men)\b`), 1, 0},
	{"group", regexp.MustCompile(`(?i)\bgroup\b`), 0, 0},
	{"crowd", regexp.MustCompile(`(?i)\bcrowd\b`), 0, 0},
	{"multiple", regexp.MustCompile(`(?i)\bmultiple\b`), 0, 0},
	{"several", regexp.MustCompile(`(?i)\bseveral\b`), 0, 0},
	{"together", regexp.MustCompile(`(?i)\btogether\b`), 0, 0},
	{"everyone", regexp.MustCompile(`(?i)\beveryone\b`), 0, 0},
	{"couple", regexp.MustCompile(`(?i)\bcouple\b`), 0, 2},
	{"duo", regexp.MustCompile(`(?i)\bduo\b`), 0, 2},
	{"both", regexp.MustCompile(`(?i)\bboth\b`), 0, 2},
	{"trio", regexp.MustCompile(`(?i)\btrio\b`), 0, 3},
}

// Config holds the confidence policy of the resolution step. The conflicted
// value (and its default-to-solo count) is a reviewed product policy, not a
// value derived from data.
type Config struct {
	SoloConfidence       float64
	MultipleConfidence   float64
	ConflictedConfidence float64
	UnclearConfidence    float64
}

// DefaultConfig returns the reviewed confidence policy.
func DefaultConfig() Config {
	return Config{
		SoloConfidence:       0.95,
		MultipleConfidence:   0.90,
		ConflictedConfidence: 0.30,
		UnclearConfidence:    0.60,
	}
}

// Parser infers PromptIntent from free-text prompts. Parsing is pure and
// deterministic: identical input always yields an identical intent.
type Parser struct {
	cfg Config
}

// NewParser creates a parser with the given confidence policy.
func NewParser(cfg Config) *Parser {
	return &Parser{cfg: cfg}
}

// Parse resolves the prompt against both indicator tables.
func (p *Parser) Parse(prompt string) models.PromptIntent {
	text := strings.TrimSpace(prompt)

	var matched []string
	soloHit := false
	for _, ind := range soloIndicators {
		if ind.pattern.MatchString(text) {
			soloHit = true
			matched = append(matched, ind.label)
		}
	}

	multiHit := false
	maxCount := 0
	for _, ind := range multiIndicators {
		if ind.countGroup > 0 {
			for _, m := range ind.pattern.FindAllStringSubmatch(text, -1) {
				n, err := strconv.Atoi(m[ind.countGroup])
				if err != nil || n < 2 {
					continue
				}
				multiHit = true
				matched = append(matched, m[0])
				if n > maxCount {
					maxCount = n
				}
			}
			continue
		}
		if ind.pattern.MatchString(text) {
			multiHit = true
			matched = append(matched, ind.label)
			if ind.impliedCount > maxCount {
				maxCount = ind.impliedCount
			}
		}
	}

	switch {
	case soloHit && multiHit:
		// Conflicting signals: default to a single subject and hand the final
		// call to the composition validator's lenient path.
		return models.PromptIntent{
			Category:          models.IntentConflicted,
			ExpectedCount:     1,
			Confidence:        p.cfg.ConflictedConfidence,
			MatchedIndicators: matched,
		}
	case soloHit:
		return models.PromptIntent{
			Category:          models.IntentSolo,
			ExpectedCount:     1,
			Confidence:        p.cfg.SoloConfidence,
			MatchedIndicators: matched,
		}
	case multiHit:
		count := maxCount
		if count == 0 {
			count = 1 // no numeric count found
		}
		return models.PromptIntent{
			Category:          models.IntentMultiple,
			ExpectedCount:     count,
			Confidence:        p.cfg.MultipleConfidence,
			MatchedIndicators: matched,
		}
	default:
		return models.PromptIntent{
			Category:      models.IntentUnclear,
			ExpectedCount: 1, // default solo assumption
			Confidence:    p.cfg.UnclearConfidence,
		}
	}
}
