package commodity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultThresholds = Thresholds{Auto: DefaultAutoThreshold, Review: DefaultReviewThreshold}

func candidateAt(score float64) Candidate {
	return Candidate{
		Commodity: Commodity{Code: "26199999", Name: "Almonds", Source: "NASS"},
		Score:     score,
	}
}

func TestClassify_EmptyCandidates(t *testing.T) {
	out := Classify(Resource{ID: 1, Name: "Almond", Kind: KindResource}, nil, defaultThresholds)
	assert.Equal(t, TierNone, out.Tier)
	assert.Nil(t, out.Decision)
	assert.Nil(t, out.Review)
}

func TestClassify_AutoMatch(t *testing.T) {
	res := Resource{ID: 1, Name: "Almond", Kind: KindPrimaryAgProduct}
	out := Classify(res, []Candidate{candidateAt(0.95)}, defaultThresholds)

	require.Equal(t, TierAuto, out.Tier)
	require.NotNil(t, out.Decision)
	assert.Equal(t, StatusAutoMatched, out.Decision.Status)
	assert.Equal(t, MethodAuto, out.Decision.Method)
	require.NotNil(t, out.Decision.Commodity)
	assert.Equal(t, "26199999", out.Decision.Commodity.Code)
	assert.Equal(t, 0.95, out.Decision.Score)
	assert.False(t, out.Decision.DecidedAt.IsZero())
}

func TestClassify_PendingReview(t *testing.T) {
	res := Resource{ID: 2, Name: "Tomato Paste Concentrate", Kind: KindResource}
	out := Classify(res, []Candidate{candidateAt(0.75)}, defaultThresholds)

	require.Equal(t, TierReview, out.Tier)
	require.NotNil(t, out.Review)
	assert.Nil(t, out.Decision)
	assert.Equal(t, res, out.Review.Resource)
	assert.Len(t, out.Review.Candidates, 1)
}

func TestClassify_NoMatch(t *testing.T) {
	out := Classify(Resource{ID: 3, Name: "Quinoa"}, []Candidate{candidateAt(0.42)}, defaultThresholds)
	assert.Equal(t, TierNone, out.Tier)
}

func TestClassify_BoundaryResolvesUp(t *testing.T) {
	autoEdge := Classify(Resource{ID: 1}, []Candidate{candidateAt(0.90)}, defaultThresholds)
	assert.Equal(t, TierAuto, autoEdge.Tier)

	reviewEdge := Classify(Resource{ID: 1}, []Candidate{candidateAt(0.60)}, defaultThresholds)
	assert.Equal(t, TierReview, reviewEdge.Tier)
}

func TestClassify_ThresholdsPerInvocation(t *testing.T) {
	strict := Thresholds{Auto: 0.99, Review: 0.95}
	out := Classify(Resource{ID: 1}, []Candidate{candidateAt(0.96)}, strict)
	assert.Equal(t, TierReview, out.Tier)

	loose := Thresholds{Auto: 0.50, Review: 0.10}
	out = Classify(Resource{ID: 1}, []Candidate{candidateAt(0.96)}, loose)
	assert.Equal(t, TierAuto, out.Tier)
}

func TestClassify_ReviewKeepsTopFive(t *testing.T) {
	cands := make([]Candidate, 8)
	for i := range cands {
		cands[i] = candidateAt(0.80 - float64(i)*0.01)
	}
	out := Classify(Resource{ID: 1}, cands, defaultThresholds)
	require.Equal(t, TierReview, out.Tier)
	assert.Len(t, out.Review.Candidates, 5)
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, defaultThresholds.Validate())
	assert.Error(t, Thresholds{Auto: 0.5, Review: 0.7}.Validate())
	assert.Error(t, Thresholds{Auto: 1.2, Review: 0.5}.Validate())
}

func TestClassify_EndToEndScenarios(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		catalog  []Commodity
		wantTier Tier
		wantCode string
	}{
		{
			name:     "almond auto-matches almonds",
			query:    "Almond",
			catalog:  []Commodity{{Code: "26199999", Name: "Almonds"}},
			wantTier: TierAuto,
			wantCode: "26199999",
		},
		{
			name:     "tomato paste goes to review",
			query:    "Tomato Paste Concentrate",
			catalog:  []Commodity{{Code: "37899999", Name: "Tomatoes"}},
			wantTier: TierReview,
		},
		{
			name:     "quinoa has no match",
			query:    "Quinoa",
			catalog:  []Commodity{{Code: "10199999", Name: "Wheat"}},
			wantTier: TierNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resource{ID: 1, Name: tt.query, Kind: KindResource}
			out := Classify(res, Rank(tt.query, tt.catalog, DefaultTopN), defaultThresholds)
			assert.Equal(t, tt.wantTier, out.Tier)
			if tt.wantCode != "" {
				require.NotNil(t, out.Decision)
				assert.Equal(t, tt.wantCode, out.Decision.Commodity.Code)
			}
		})
	}
}
