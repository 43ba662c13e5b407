package bandit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// makeProtocols builds always-matching protocols with the given names and
// rewards, in order.
func makeProtocols(t *testing.T, specs ...struct {
	name   string
	reward float64
}) []*protocol.Protocol {
	t.Helper()
	out := make([]*protocol.Protocol, 0, len(specs))
	for _, s := range specs {
		p, err := protocol.New(s.name,
			protocol.MatcherFunc(func(protocol.Context) bool { return true }),
			protocol.ActionFunc(func(protocol.Context) (string, error) { return "", nil }),
			protocol.WithInitialReward(s.reward),
		)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func arm(name string, reward float64) struct {
	name   string
	reward float64
} {
	return struct {
		name   string
		reward float64
	}{name, reward}
}
