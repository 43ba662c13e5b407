package protocol

import "strings"

// Context is an immutable snapshot of situational attributes supplied by the
// caller before each selection. Emotion, Intent, and Environment are always
// present; Tags carries any additional string-valued attributes.
type Context struct {
	Emotion     string            `json:"emotion"`
	Intent      string            `json:"intent"`
	Environment string            `json:"environment"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Well-known context field names.
const (
	FieldEmotion     = "emotion"
	FieldIntent      = "intent"
	FieldEnvironment = "environment"
)

// Get returns the value of a context field by name. The three core fields
// take precedence over tags with the same name.
func (c Context) Get(field string) string {
	switch strings.ToLower(field) {
	case FieldEmotion:
		return c.Emotion
	case FieldIntent:
		return c.Intent
	case FieldEnvironment:
		return c.Environment
	}
	return c.Tags[field]
}
