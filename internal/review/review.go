// Package review tracks the lifecycle of AI-generated flashcard proposals
// between generation and acceptance. The state is an immutable value: every
// transition returns a new State, and none of them perform I/O, so a caller
// always observes either the state before a transition or the state after it.
package review

import (
	"fmt"
	"strings"
)

// Proposal lifecycle states. Accepted and rejected are terminal: a proposal
// never returns to pending within one generation batch.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Source text and proposal count bounds shared with the generation endpoint.
const (
	MinSourceTextChars = 100
	MaxSourceTextChars = 10000
	MinProposals       = 1
	MaxProposals       = 20
)

// Proposal is one reviewable front/back pair. Revealed is presentation state
// only and carries no correctness meaning.
type Proposal struct {
	ID        string
	FrontText string
	BackText  string
	Status    Status
	Revealed  bool
}

// Counts aggregates proposal statuses. Accepted+Rejected+Pending always
// equals the number of loaded proposals.
type Counts struct {
	Accepted int
	Rejected int
	Pending  int
}

// State is the in-memory view of one generation/review round.
type State struct {
	SourceText   string
	Language     string
	MaxProposals int
	CharCount    int
	SourceValid  bool

	proposals []Proposal
	counts    Counts
}

// NewState returns the pre-generation state: no proposals, default maximum.
func NewState() State {
	return State{MaxProposals: MaxProposals}
}

// ValidateSourceText reports whether the trimmed text length is within
// [MinSourceTextChars, MaxSourceTextChars].
func ValidateSourceText(text string) bool {
	n := len([]rune(strings.TrimSpace(text)))
	return n >= MinSourceTextChars && n <= MaxSourceTextChars
}

// ClampProposalCount forces n into [MinProposals, MaxProposals]. Interactive
// inputs are clamped rather than rejected; API-side validation rejects.
func ClampProposalCount(n int) int {
	if n < MinProposals {
		return MinProposals
	}
	if n > MaxProposals {
		return MaxProposals
	}
	return n
}

func (s State) SetSourceText(text string) State {
	s.SourceText = text
	s.CharCount = len([]rune(text))
	s.SourceValid = ValidateSourceText(text)
	return s
}

func (s State) SetLanguage(language string) State {
	s.Language = language
	return s
}

func (s State) SetMaxProposals(n int) State {
	s.MaxProposals = ClampProposalCount(n)
	return s
}

// Card is a bare front/back pair as returned by generation.
type Card struct {
	FrontText string
	BackText  string
}

// Load replaces the whole proposal set with a fresh pending batch. IDs are
// assigned in insertion order and stay stable for the life of the batch.
func (s State) Load(proposals []Card) State {
	loaded := make([]Proposal, len(proposals))
	for i, card := range proposals {
		loaded[i] = Proposal{
			ID:        fmt.Sprintf("proposal-%d", i),
			FrontText: card.FrontText,
			BackText:  card.BackText,
			Status:    StatusPending,
		}
	}
	s.proposals = loaded
	s.counts = recount(loaded)
	return s
}

// AcceptOne transitions the identified proposal pending->accepted. Any other
// starting status makes this a no-op.
func (s State) AcceptOne(id string) State {
	return s.transitionOne(id, StatusAccepted)
}

// RejectOne transitions the identified proposal pending->rejected. Any other
// starting status makes this a no-op.
func (s State) RejectOne(id string) State {
	return s.transitionOne(id, StatusRejected)
}

func (s State) transitionOne(id string, to Status) State {
	next := make([]Proposal, len(s.proposals))
	copy(next, s.proposals)
	for i := range next {
		if next[i].ID == id && next[i].Status == StatusPending {
			next[i].Status = to
		}
	}
	s.proposals = next
	s.counts = recount(next)
	return s
}

// BulkAcceptRemaining accepts every currently-pending proposal.
func (s State) BulkAcceptRemaining() State {
	return s.transitionPending(StatusAccepted)
}

// BulkRejectRemaining rejects every currently-pending proposal.
func (s State) BulkRejectRemaining() State {
	return s.transitionPending(StatusRejected)
}

func (s State) transitionPending(to Status) State {
	next := make([]Proposal, len(s.proposals))
	copy(next, s.proposals)
	for i := range next {
		if next[i].Status == StatusPending {
			next[i].Status = to
		}
	}
	s.proposals = next
	s.counts = recount(next)
	return s
}

// ToggleReveal flips the presentation flag regardless of status.
func (s State) ToggleReveal(id string) State {
	next := make([]Proposal, len(s.proposals))
	copy(next, s.proposals)
	for i := range next {
		if next[i].ID == id {
			next[i].Revealed = !next[i].Revealed
		}
	}
	s.proposals = next
	return s
}

// Reset discards all proposals and input, returning to the pre-generation
// state.
func (s State) Reset() State {
	return NewState()
}

// Proposals returns the proposal set in insertion order.
func (s State) Proposals() []Proposal {
	out := make([]Proposal, len(s.proposals))
	copy(out, s.proposals)
	return out
}

// Accepted returns only the accepted proposals, in insertion order.
func (s State) Accepted() []Proposal {
	var out []Proposal
	for _, p := range s.proposals {
		if p.Status == StatusAccepted {
			out = append(out, p)
		}
	}
	return out
}

func (s State) Counts() Counts { return s.counts }
func (s State) Total() int     { return len(s.proposals) }

func recount(proposals []Proposal) Counts {
	var c Counts
	for _, p := range proposals {
		switch p.Status {
		case StatusAccepted:
			c.Accepted++
		case StatusRejected:
			c.Rejected++
		default:
			c.Pending++
		}
	}
	return c
}
