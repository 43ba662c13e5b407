package protocol

import "fmt"

// BuiltinSpec describes one entry in the static protocol table. Builtins are
// registered data-driven through the manifest rather than discovered at
// runtime.
type BuiltinSpec struct {
	// Key identifies the builtin in manifests.
	Key string

	// Description is a short human-readable summary.
	Description string

	// DefaultReward is the initial reward when the manifest does not
	// override it.
	DefaultReward float64

	matcher Matcher
	action  Action
}

// builtins is the static registration table. Order is the default
// registration order, which the registry preserves for tie-breaking.
var builtins = []BuiltinSpec{
	{
		Key:           "creative_support",
		Description:   "encourage creative work when the user is upbeat",
		DefaultReward: DefaultInitialReward,
		matcher:       FieldMatcher{Field: FieldEmotion, Values: []string{"happy", "excited"}},
		action: NewResponseAction(
			"Creative energy detected.",
			"Let's build something meaningful.",
		),
	},
	{
		Key:           "emotional_comfort",
		Description:   "offer comfort when the user is down",
		DefaultReward: DefaultInitialReward,
		matcher:       FieldMatcher{Field: FieldEmotion, Values: []string{"sad", "down"}},
		action: NewResponseAction(
			"It's okay to feel this way.",
			"I'm here with you.",
		),
	},
	{
		Key:           "network_diagnostics",
		Description:   "run diagnostics for network-related intents",
		DefaultReward: DefaultInitialReward,
		matcher:       ContainsMatcher{Field: FieldIntent, Substring: "network"},
		action: NewResponseAction(
			"Running diagnostics, checking routing, escalating if needed.",
		),
	},
	{
		Key:           "ticket_automation",
		Description:   "file a CRM ticket for ticket-related intents",
		DefaultReward: DefaultInitialReward,
		matcher:       ContainsMatcher{Field: FieldIntent, Substring: "ticket"},
		action: NewResponseAction(
			"CRM ticket created, priority assigned.",
		),
	},
	{
		Key:           "focus_mode",
		Description:   "minimize interruptions during focused work",
		DefaultReward: DefaultInitialReward,
		matcher:       FieldMatcher{Field: FieldIntent, Values: []string{"work", "learn"}},
		action: NewResponseAction(
			"Entering focus mode, deferring non-urgent notifications.",
		),
	},
}

// Builtins returns the static builtin table in registration order.
func Builtins() []BuiltinSpec {
	out := make([]BuiltinSpec, len(builtins))
	copy(out, builtins)
	return out
}

// NewBuiltin instantiates a protocol from the builtin table. The protocol
// name defaults to the builtin key but may be overridden; reward <= 0 means
// use the builtin's default.
func NewBuiltin(key, name string, reward float64) (*Protocol, error) {
	for _, spec := range builtins {
		if spec.Key != key {
			continue
		}
		if name == "" {
			name = spec.Key
		}
		if reward <= 0 {
			reward = spec.DefaultReward
		}
		return New(name, spec.matcher, spec.action, WithInitialReward(reward))
	}
	return nil, fmt.Errorf("unknown builtin protocol %q", key)
}
