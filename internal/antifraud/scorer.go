package antifraud

import (
	"context"

	"github.com/richxcame/giveaway/pkg/logger"
	"go.uber.org/zap"
)

// Scorer runs an ordered list of independent checks against a participant and
// the facts storage computed for it, then folds the failures into a bounded,
// categorized risk score. It holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	checks []Check
}

// ScorerConfig carries the scorer's tunables. CardLength is the configured
// loyalty card length; zero disables the length check.
type ScorerConfig struct {
	CardLength int
	CardExists CardExistsFunc
}

// NewScorer builds a scorer with the fixed production check order. The order
// only affects the details breakdown: every failed impact is summed
// unconditionally.
func NewScorer(cfg ScorerConfig) *Scorer {
	logErr := func(name string, err error) {
		logger.Warn("fraud check collaborator failed, treating as pass",
			zap.String("check", name),
			zap.Error(err),
		)
	}

	return &Scorer{
		checks: []Check{
			deviceFingerprintCheck{},
			phoneValidationCheck{},
			loyaltyCardUniqueCheck{exists: cfg.CardExists, logErr: logErr},
			loyaltyCardFormatCheck{cardLength: cfg.CardLength},
			photoHashCheck{},
			behaviorAnalysisCheck{},
			velocityCheck{},
			geoLocationCheck{},
		},
	}
}

// Score evaluates every check in order, sums the impact of each failure,
// clamps the total to [0,100], and classifies it. It never returns an error:
// malformed fields fail their specific check instead of aborting the call.
func (s *Scorer) Score(ctx context.Context, p Participant, sc ScoringContext) RiskOutcome {
	total := 0
	details := make([]CheckResult, 0, len(s.checks))

	for _, check := range s.checks {
		result := check.Run(ctx, p, sc)
		details = append(details, result)
		if !result.Passed {
			total += result.Impact
		}
	}

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	return RiskOutcome{
		Score:   total,
		Level:   LevelForScore(total),
		Details: details,
	}
}
