// Package reward implements the exponential-moving-average reward model.
//
// The update rule is a pure function of the current reward and the incoming
// score; the model carries configuration only. Clamping into [0, 5] is a
// mandatory post-condition of every update.
package reward

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// DefaultAlpha is the EMA learning rate.
const DefaultAlpha = 0.3

// Model applies EMA updates to protocol rewards.
type Model struct {
	alpha  float64
	logger *zap.Logger
}

// NewModel creates a reward model. Alpha outside (0, 1] falls back to
// DefaultAlpha.
func NewModel(alpha float64, logger *zap.Logger) *Model {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{alpha: alpha, logger: logger}
}

// Alpha returns the configured learning rate.
func (m *Model) Alpha() float64 { return m.alpha }

// Next computes the EMA of current and score without mutating anything.
// The score is clamped into [0, 5] before mixing and the result is clamped
// again on the way out.
func Next(alpha, current, score float64) float64 {
	score = protocol.ClampReward(score)
	return protocol.ClampReward(alpha*score + (1-alpha)*current)
}

// Apply folds score into the protocol's reward and returns the new value.
// Out-of-range scores are clamped silently; a warning is logged so the
// condition stays visible to operators.
func (m *Model) Apply(p *protocol.Protocol, score float64) float64 {
	if score < protocol.RewardMin || score > protocol.RewardMax {
		m.logger.Warn("feedback score out of range, clamping",
			zap.String("protocol", p.Name()),
			zap.Float64("score", score),
		)
	}
	return p.SetReward(Next(m.alpha, p.Reward(), score))
}
