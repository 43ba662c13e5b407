package http

import "github.com/fyrsmithlabs/protocold/internal/protocol"

// SelectRequest is the request body for POST /api/v1/select.
type SelectRequest struct {
	Emotion     string            `json:"emotion"`
	Intent      string            `json:"intent"`
	Environment string            `json:"environment"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Context converts the request into a selection context.
func (r SelectRequest) Context() protocol.Context {
	return protocol.Context{
		Emotion:     r.Emotion,
		Intent:      r.Intent,
		Environment: r.Environment,
		Tags:        r.Tags,
	}
}

// FeedbackRequest is the request body for POST /api/v1/feedback.
type FeedbackRequest struct {
	Protocol string   `json:"protocol"`
	Score    *float64 `json:"score"`
}

// ProtocolStats is one row of GET /api/v1/protocols.
type ProtocolStats struct {
	Name       string  `json:"name"`
	Reward     float64 `json:"reward"`
	Executions uint64  `json:"executions"`
}

// ProtocolsResponse is the response body for GET /api/v1/protocols.
type ProtocolsResponse struct {
	Strategy  string          `json:"strategy"`
	Protocols []ProtocolStats `json:"protocols"`
}

// EvolutionResponse is the response body for POST /api/v1/cycles/evolution.
type EvolutionResponse struct {
	Registered int `json:"registered"`
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}
