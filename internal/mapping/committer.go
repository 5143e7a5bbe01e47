package mapping

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/petercarbsmith/ca-biositing/internal/commodity"
)

// Result tallies one commit pass.
type Result struct {
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// Commit applies approved decisions to the mapping table. For each decision
// it resolves or creates the usda_commodity row, then inserts the mapping
// unless one already exists. Committing the same decisions again is a
// no-op: the second pass skips every row. A failure on one decision is
// logged, counted as skipped, and never aborts the batch. The running tally
// goes to out for the operator.
func Commit(ctx context.Context, store Store, decisions []commodity.Decision, out io.Writer) (Result, error) {
	log := zap.L().With(zap.String("component", "mapping.commit"))

	var result Result
	for _, d := range decisions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if d.Commodity == nil {
			// Rejected or malformed decisions carry nothing to commit.
			result.Skipped++
			continue
		}

		id, created, err := store.EnsureCommodity(ctx, *d.Commodity)
		if err != nil {
			log.Warn("skipping decision: commodity resolution failed",
				zap.String("resource", d.Resource.Name),
				zap.String("code", d.Commodity.Code),
				zap.Error(err),
			)
			result.Skipped++
			continue
		}
		if created {
			fmt.Fprintf(out, "  + created commodity %s (code %s)\n", d.Commodity.Name, d.Commodity.Code)
		}

		exists, err := store.MappingExists(ctx, d.Resource, id)
		if err != nil {
			log.Warn("skipping decision: existence check failed",
				zap.String("resource", d.Resource.Name),
				zap.Error(err),
			)
			result.Skipped++
			continue
		}
		if exists {
			fmt.Fprintf(out, "  = exists %s -> %s\n", d.Resource.Name, d.Commodity.Name)
			result.Skipped++
			continue
		}

		tier := tierFor(d.Method)
		note := fmt.Sprintf("matched by commodity reconciler - %s - similarity: %.2f%%", d.Status, d.Score*100)

		if err := store.InsertMapping(ctx, d.Resource, id, tier, note); err != nil {
			if errors.Is(err, ErrDuplicate) {
				// Constraint beat us to it; idempotency holds either way.
				fmt.Fprintf(out, "  = exists %s -> %s\n", d.Resource.Name, d.Commodity.Name)
			} else {
				log.Warn("skipping decision: insert failed",
					zap.String("resource", d.Resource.Name),
					zap.Error(err),
				)
			}
			result.Skipped++
			continue
		}

		fmt.Fprintf(out, "  ✓ saved %s -> %s (%s)\n", d.Resource.Name, d.Commodity.Name, tier)
		result.Saved++
	}

	fmt.Fprintf(out, "\nSaved %d new mappings, skipped %d.\n", result.Saved, result.Skipped)
	log.Info("commit pass complete",
		zap.Int("decisions", len(decisions)),
		zap.Int("saved", result.Saved),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func tierFor(m commodity.Method) string {
	if m == commodity.MethodAuto {
		return TierAutoMatch
	}
	return TierUserApproved
}
