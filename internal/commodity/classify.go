package commodity

import (
	"time"

	"github.com/rotisserie/eris"
)

// Default confidence thresholds, overridable via config or flags.
const (
	DefaultAutoThreshold   = 0.90
	DefaultReviewThreshold = 0.60
	DefaultTopN            = 5
)

// Thresholds carries the confidence cutoffs for a classification pass.
type Thresholds struct {
	Auto   float64 `yaml:"auto" mapstructure:"auto"`
	Review float64 `yaml:"review" mapstructure:"review"`
}

// Validate checks threshold ordering and range.
func (t Thresholds) Validate() error {
	if t.Auto < 0 || t.Auto > 1 || t.Review < 0 || t.Review > 1 {
		return eris.Errorf("commodity: thresholds out of range: auto=%.2f review=%.2f", t.Auto, t.Review)
	}
	if t.Review > t.Auto {
		return eris.Errorf("commodity: review threshold %.2f exceeds auto threshold %.2f", t.Review, t.Auto)
	}
	return nil
}

// Tier is the confidence bucket a classification lands in.
type Tier int

const (
	TierNone Tier = iota
	TierAuto
	TierReview
)

// Outcome is the result of classifying one resource. Exactly one of
// Decision (TierAuto) or Review (TierReview) is set; both are nil for
// TierNone.
type Outcome struct {
	Tier     Tier
	Decision *Decision
	Review   *ReviewItem
}

// Classify buckets a resource by its top candidate score. Scores at exactly
// a threshold resolve to the higher tier. An empty candidate list is a
// no-match: nothing is created, the caller just logs it.
func Classify(res Resource, candidates []Candidate, th Thresholds) Outcome {
	if len(candidates) == 0 {
		return Outcome{Tier: TierNone}
	}

	top := candidates[0]
	switch {
	case top.Score >= th.Auto:
		c := top.Commodity
		return Outcome{
			Tier: TierAuto,
			Decision: &Decision{
				Resource:  res,
				Commodity: &c,
				Score:     top.Score,
				Status:    StatusAutoMatched,
				Method:    MethodAuto,
				DecidedAt: time.Now().UTC(),
			},
		}
	case top.Score >= th.Review:
		n := len(candidates)
		if n > DefaultTopN {
			n = DefaultTopN
		}
		return Outcome{
			Tier: TierReview,
			Review: &ReviewItem{
				Resource:   res,
				Candidates: candidates[:n],
			},
		}
	default:
		return Outcome{Tier: TierNone}
	}
}
