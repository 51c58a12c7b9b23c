package controller

import (
	"strings"

	"github.com/ThinhNguyen0811/map-bot/pkg/domain"
)

// accumulator is the per-turn stream state. Text arrives redundantly through
// two channels (direct token deltas and event-log replay); each fragment
// carries the cumulative offset of its start within the full response, and
// the accumulator forwards only the suffix it has not accepted yet. Offset
// arithmetic, not content matching, decides what is new, so legitimately
// repeated content is never suppressed.
type accumulator struct {
	text    strings.Builder
	started bool // at least one token forwarded this turn
	cleared bool // the thinking indicator has been cleared this turn

	toolNames []string
	action    *domain.MapAction
}

func newAccumulator() *accumulator {
	return &accumulator{}
}

// Len returns the length of the accepted text so far.
func (a *accumulator) Len() int {
	return a.text.Len()
}

// String returns the accepted text so far.
func (a *accumulator) String() string {
	return a.text.String()
}

// advance offers a fragment whose first byte sits at the given cumulative
// offset. It returns the portion not yet accepted, which is also appended to
// the accumulated text. Fully-seen fragments return "".
func (a *accumulator) advance(offset int, fragment string) string {
	if fragment == "" {
		return ""
	}
	have := a.text.Len()
	if offset+len(fragment) <= have {
		return ""
	}

	start := 0
	if offset < have {
		start = have - offset
	}
	novel := fragment[start:]
	a.text.WriteString(novel)
	return novel
}
