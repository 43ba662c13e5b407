package protocol

import (
	"math/rand"
	"strings"
	"sync"
)

// MatcherFunc adapts a plain function to the Matcher interface.
type MatcherFunc func(ctx Context) bool

// Match implements Matcher.
func (f MatcherFunc) Match(ctx Context) bool { return f(ctx) }

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx Context) (string, error)

// Execute implements Action.
func (f ActionFunc) Execute(ctx Context) (string, error) { return f(ctx) }

// FieldMatcher matches when a context field equals any of the given values,
// case-insensitively.
type FieldMatcher struct {
	Field  string
	Values []string
}

// Match implements Matcher.
func (m FieldMatcher) Match(ctx Context) bool {
	got := strings.ToLower(ctx.Get(m.Field))
	for _, v := range m.Values {
		if got == strings.ToLower(v) {
			return true
		}
	}
	return false
}

// ContainsMatcher matches when a context field contains the given substring,
// case-insensitively.
type ContainsMatcher struct {
	Field     string
	Substring string
}

// Match implements Matcher.
func (m ContainsMatcher) Match(ctx Context) bool {
	return strings.Contains(strings.ToLower(ctx.Get(m.Field)), strings.ToLower(m.Substring))
}

// ResponseAction returns one of a fixed set of canned responses. With more
// than one response the choice is uniform over the set.
type ResponseAction struct {
	Responses []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewResponseAction creates a ResponseAction over the given responses.
func NewResponseAction(responses ...string) *ResponseAction {
	return &ResponseAction{Responses: responses}
}

// Execute implements Action.
func (a *ResponseAction) Execute(Context) (string, error) {
	if len(a.Responses) == 0 {
		return "", nil
	}
	if len(a.Responses) == 1 {
		return a.Responses[0], nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return a.Responses[a.rng.Intn(len(a.Responses))], nil
}
