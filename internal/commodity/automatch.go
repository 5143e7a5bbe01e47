package commodity

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// MatchSummary tallies one auto-match pass.
type MatchSummary struct {
	Auto    int `json:"auto"`
	Pending int `json:"pending"`
	NoMatch int `json:"no_match"`
}

// AutoMatch ranks every resource against the catalog and classifies the
// result. High-confidence matches become decisions, plausible ones become
// review items for the interactive session, and the rest are logged as
// unmatched. A running tally is printed to out for the operator.
func AutoMatch(resources []Resource, catalog []Commodity, th Thresholds, topN int, out io.Writer) ([]Decision, []ReviewItem, MatchSummary) {
	log := zap.L().With(zap.String("component", "commodity.automatch"))

	var (
		decisions []Decision
		pending   []ReviewItem
		summary   MatchSummary
	)

	for _, res := range resources {
		candidates := Rank(res.Name, catalog, topN)
		outcome := Classify(res, candidates, th)

		switch outcome.Tier {
		case TierAuto:
			decisions = append(decisions, *outcome.Decision)
			summary.Auto++
			fmt.Fprintf(out, "  AUTO    %s -> %s (%.1f%%)\n",
				res.Name, outcome.Decision.Commodity.Name, outcome.Decision.Score*100)
		case TierReview:
			pending = append(pending, *outcome.Review)
			summary.Pending++
			best := outcome.Review.Candidates[0]
			fmt.Fprintf(out, "  REVIEW  %s (best: %s @ %.1f%%)\n",
				res.Name, best.Commodity.Name, best.Score*100)
		default:
			summary.NoMatch++
			var bestScore float64
			if len(candidates) > 0 {
				bestScore = candidates[0].Score
			}
			log.Debug("no match",
				zap.String("resource", res.Name),
				zap.Float64("best_score", bestScore),
			)
			fmt.Fprintf(out, "  NOMATCH %s (best: %.1f%%)\n", res.Name, bestScore*100)
		}
	}

	fmt.Fprintf(out, "\nAuto-matched: %d\nPending review: %d\nNo match: %d\n",
		summary.Auto, summary.Pending, summary.NoMatch)

	log.Info("auto-match pass complete",
		zap.Int("resources", len(resources)),
		zap.Int("auto", summary.Auto),
		zap.Int("pending", summary.Pending),
		zap.Int("no_match", summary.NoMatch),
	)

	return decisions, pending, summary
}
