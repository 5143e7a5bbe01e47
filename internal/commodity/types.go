// Package commodity implements fuzzy reconciliation of project resource
// names against the USDA NASS commodity vocabulary: scoring, candidate
// ranking, and tiered match classification.
package commodity

import "time"

// Commodity is an entry in the controlled USDA vocabulary, identified by a
// stable external code. Immutable once created.
type Commodity struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
}

// DisplayDescription returns the description, falling back to the name.
func (c Commodity) DisplayDescription() string {
	if c.Description == "" {
		return c.Name
	}
	return c.Description
}

// ResourceKind selects which foreign-key column a mapping occupies.
type ResourceKind string

const (
	KindResource         ResourceKind = "resource"
	KindPrimaryAgProduct ResourceKind = "primary_ag_product"
)

// Resource is a locally defined crop/resource name awaiting reconciliation.
type Resource struct {
	ID   int64        `json:"id"`
	Name string       `json:"name"`
	Kind ResourceKind `json:"kind"`
}

// Candidate pairs a vocabulary entry with its similarity to a query name.
// Candidates are derived values; they are never persisted on their own.
type Candidate struct {
	Commodity Commodity `json:"commodity"`
	Score     float64   `json:"score"`
}

// Status is the lifecycle state of a match decision.
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusAutoMatched   Status = "auto_matched"
	StatusUserApproved  Status = "user_approved"
	StatusRejected      Status = "rejected"
)

// Method records how a decision was reached.
type Method string

const (
	MethodAuto         Method = "auto"
	MethodManual       Method = "manual"
	MethodUserSelected Method = "user_selected"
)

// Decision is the durable unit of work: a resource matched (or not) to a
// commodity. An auto_matched or user_approved decision always carries a
// non-nil commodity; a rejected one never does.
type Decision struct {
	Resource  Resource   `json:"resource"`
	Commodity *Commodity `json:"commodity,omitempty"`
	Score     float64    `json:"score"`
	Status    Status     `json:"status"`
	Method    Method     `json:"method"`
	DecidedAt time.Time  `json:"decided_at"`
}

// ReviewItem is a resource whose best match is plausible but not confident
// enough for automatic acceptance, together with its ranked candidates.
type ReviewItem struct {
	Resource   Resource    `json:"resource"`
	Candidates []Candidate `json:"candidates"`
}
