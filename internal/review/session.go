// Package review implements the interactive half of commodity
// reconciliation: an operator walks the pending queue, picks the right
// candidate for each resource (or skips it), and can quit at any prompt
// without losing work.
package review

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/petercarbsmith/ca-biositing/internal/commodity"
)

// MatchStore is the slice of the state store the session needs.
type MatchStore interface {
	LoadPending() ([]commodity.ReviewItem, error)
	SavePending(items []commodity.ReviewItem) error
	LoadApproved() ([]commodity.Decision, error)
	SaveApproved(decisions []commodity.Decision) error
}

// Summary tallies one review session.
type Summary struct {
	Approved  int  `json:"approved"`
	Skipped   int  `json:"skipped"`
	Remaining int  `json:"remaining"`
	Quit      bool `json:"quit"`
}

// Session runs the single-threaded interactive review loop. Input normally
// comes from stdin; tests supply a scripted reader.
type Session struct {
	store MatchStore
	in    *bufio.Scanner
	out   io.Writer
	log   *zap.Logger
	title cases.Caser
	now   func() time.Time
}

// NewSession creates a review session reading operator input from in and
// writing prompts to out.
func NewSession(store MatchStore, in io.Reader, out io.Writer) *Session {
	return &Session{
		store: store,
		in:    bufio.NewScanner(in),
		out:   out,
		log:   zap.L().With(zap.String("component", "review")),
		title: cases.Title(language.AmericanEnglish),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Run walks the pending queue. Selecting a candidate records a
// user_approved decision; "n" discards the item; "q" persists decisions
// made so far plus every item not yet resolved (including the one on
// screen) and returns, so the session can resume later. Invalid input
// re-prompts without consuming the item. Completing the queue clears the
// pending snapshot and saves approved as prior decisions plus this run's.
func (s *Session) Run() (Summary, error) {
	pending, err := s.store.LoadPending()
	if err != nil {
		return Summary{}, eris.Wrap(err, "review: load pending")
	}
	if len(pending) == 0 {
		fmt.Fprintln(s.out, "No pending matches to review. Run automatch first.")
		return Summary{}, nil
	}

	approved, err := s.store.LoadApproved()
	if err != nil {
		return Summary{}, eris.Wrap(err, "review: load approved")
	}

	fmt.Fprintf(s.out, "\n%d resources with fuzzy matches to review.\n", len(pending))
	fmt.Fprintln(s.out, "Enter 1-5 to select a candidate, 'n' to skip, 'q' to quit and save progress.")

	var summary Summary
	for i, item := range pending {
		s.present(i+1, len(pending), item)

		action, choice := s.prompt(len(item.Candidates))
		switch action {
		case actionQuit:
			summary.Quit = true
			summary.Remaining = len(pending) - i
			if err := s.persist(pending[i:], approved); err != nil {
				return summary, err
			}
			fmt.Fprintf(s.out, "\nProgress saved: %d approved, %d remaining.\n",
				summary.Approved, summary.Remaining)
			return summary, nil
		case actionSkip:
			summary.Skipped++
			fmt.Fprintf(s.out, "  skipped %q (no match)\n", item.Resource.Name)
		case actionSelect:
			picked := item.Candidates[choice]
			c := picked.Commodity
			approved = append(approved, commodity.Decision{
				Resource:  item.Resource,
				Commodity: &c,
				Score:     picked.Score,
				Status:    commodity.StatusUserApproved,
				Method:    commodity.MethodUserSelected,
				DecidedAt: s.now(),
			})
			summary.Approved++
			fmt.Fprintf(s.out, "  matched %q -> %s\n", item.Resource.Name, s.title.String(strings.ToLower(c.Name)))
		}
	}

	if err := s.persist(nil, approved); err != nil {
		return summary, err
	}

	fmt.Fprintf(s.out, "\nReview complete: %d approved, %d skipped, %d total approved decisions.\n",
		summary.Approved, summary.Skipped, len(approved))
	s.log.Info("review session complete",
		zap.Int("approved", summary.Approved),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

type action int

const (
	actionSelect action = iota
	actionSkip
	actionQuit
)

// present shows one review item with its candidates, 1-based.
func (s *Session) present(pos, total int, item commodity.ReviewItem) {
	fmt.Fprintf(s.out, "\n[%d/%d] Resource: %q (%s)\n", pos, total, item.Resource.Name, item.Resource.Kind)
	for i, cand := range item.Candidates {
		fmt.Fprintf(s.out, "  [%d] %s (code %s) - %.1f%% match\n",
			i+1, s.title.String(strings.ToLower(cand.Commodity.Name)), cand.Commodity.Code, cand.Score*100)
		if desc := cand.Commodity.Description; desc != "" && desc != cand.Commodity.Name {
			fmt.Fprintf(s.out, "      %s\n", desc)
		}
	}
	fmt.Fprintln(s.out, "  [n] no good match - leave unmapped")
}

// prompt reads input until it gets a valid token. Out-of-range or
// unparseable input re-prompts; it never consumes the item or errors.
// EOF on the input behaves like quit so a closed terminal loses nothing.
func (s *Session) prompt(numCandidates int) (action, int) {
	for {
		fmt.Fprintf(s.out, "\nSelection (1-%d, n, q): ", numCandidates)

		if !s.in.Scan() {
			return actionQuit, 0
		}
		token := strings.ToLower(strings.TrimSpace(s.in.Text()))

		switch token {
		case "q", "quit":
			return actionQuit, 0
		case "n", "s", "skip":
			return actionSkip, 0
		}

		idx, err := strconv.Atoi(token)
		if err != nil || idx < 1 || idx > numCandidates {
			fmt.Fprintf(s.out, "  invalid input %q, enter 1-%d, n, or q\n", token, numCandidates)
			continue
		}
		return actionSelect, idx - 1
	}
}

func (s *Session) persist(pending []commodity.ReviewItem, approved []commodity.Decision) error {
	if err := s.store.SavePending(pending); err != nil {
		return eris.Wrap(err, "review: save pending")
	}
	if err := s.store.SaveApproved(approved); err != nil {
		return eris.Wrap(err, "review: save approved")
	}
	return nil
}
