package improver

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/registry"
)

// Reward adjustment factors per tier.
const (
	poorDecay          = 0.8
	excellentReinforce = 1.1
)

// Report is one improvement-cycle row.
type Report struct {
	Name       string  `json:"name"`
	Tier       Tier    `json:"tier"`
	Reward     float64 `json:"reward"`
	Executions uint64  `json:"executions"`
}

// Improver runs improvement cycles over a registry's protocols.
type Improver struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// New creates an improver.
func New(reg *registry.Registry, logger *zap.Logger) *Improver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Improver{registry: reg, logger: logger}
}

// RunCycle classifies every protocol, decays poor performers, reinforces
// excellent ones, and reports one row per protocol. Rewards stay clamped to
// [0, 5] after adjustment.
func (im *Improver) RunCycle() []Report {
	protocols := im.registry.Protocols()
	reports := make([]Report, 0, len(protocols))

	for _, p := range protocols {
		tier := Evaluate(p)

		switch tier {
		case TierPoor:
			p.SetReward(p.Reward() * poorDecay)
			im.logger.Warn("protocol decayed",
				zap.String("protocol", p.Name()),
				zap.Float64("reward", p.Reward()),
			)
		case TierExcellent:
			p.SetReward(p.Reward() * excellentReinforce)
			im.logger.Info("protocol reinforced",
				zap.String("protocol", p.Name()),
				zap.Float64("reward", p.Reward()),
			)
		}

		reports = append(reports, Report{
			Name:       p.Name(),
			Tier:       tier,
			Reward:     p.Reward(),
			Executions: p.Executions(),
		})
	}
	return reports
}
