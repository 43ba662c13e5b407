// Package improver classifies protocol performance and runs the
// self-improvement cycle that reinforces strong protocols and decays weak
// ones.
package improver

import "github.com/fyrsmithlabs/protocold/internal/protocol"

// Tier is a protocol's performance classification.
type Tier string

// Performance tiers.
const (
	TierInsufficientData Tier = "insufficient_data"
	TierExcellent        Tier = "excellent"
	TierAcceptable       Tier = "acceptable"
	TierPoor             Tier = "poor"
)

// Classification thresholds.
const (
	// MinExecutions is the execution count below which a protocol has no
	// meaningful history.
	MinExecutions = 3

	excellentThreshold  = 4.0
	acceptableThreshold = 2.0
)

// Evaluate classifies a protocol from its reward and execution history.
func Evaluate(p *protocol.Protocol) Tier {
	if p.Executions() < MinExecutions {
		return TierInsufficientData
	}
	switch reward := p.Reward(); {
	case reward >= excellentThreshold:
		return TierExcellent
	case reward >= acceptableThreshold:
		return TierAcceptable
	default:
		return TierPoor
	}
}
