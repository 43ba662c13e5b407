package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

func testProtocol(t *testing.T, initial float64) *protocol.Protocol {
	t.Helper()
	p, err := protocol.New("p",
		protocol.MatcherFunc(func(protocol.Context) bool { return true }),
		protocol.ActionFunc(func(protocol.Context) (string, error) { return "", nil }),
		protocol.WithInitialReward(initial),
	)
	require.NoError(t, err)
	return p
}

func TestNext_EMA(t *testing.T) {
	// reward = 0.3*score + 0.7*current
	assert.InDelta(t, 0.3*5+0.7*3, Next(0.3, 3.0, 5.0), 1e-9)
	assert.InDelta(t, 0.3*0+0.7*3, Next(0.3, 3.0, 0.0), 1e-9)
}

func TestNext_ClampsScore(t *testing.T) {
	// A score of 50 behaves exactly like a score of 5.
	assert.Equal(t, Next(0.3, 3.0, 5.0), Next(0.3, 3.0, 50.0))
	assert.Equal(t, Next(0.3, 3.0, 0.0), Next(0.3, 3.0, -7.0))
}

func TestNext_ResultInBounds(t *testing.T) {
	for _, current := range []float64{0, 1.3, 5} {
		for _, score := range []float64{-10, 0, 2.5, 5, 10} {
			got := Next(0.3, current, score)
			assert.GreaterOrEqual(t, got, protocol.RewardMin)
			assert.LessOrEqual(t, got, protocol.RewardMax)
		}
	}
}

func TestApply_UpdatesProtocol(t *testing.T) {
	m := NewModel(0.3, zap.NewNop())
	p := testProtocol(t, 3.0)

	got := m.Apply(p, 5.0)
	assert.InDelta(t, 3.6, got, 1e-9)
	assert.InDelta(t, 3.6, p.Reward(), 1e-9)
}

func TestApply_RepeatedFeedbackConverges(t *testing.T) {
	m := NewModel(0.3, zap.NewNop())
	p := testProtocol(t, 3.0)

	for i := 0; i < 50; i++ {
		m.Apply(p, 5.0)
	}
	// EMA converges towards the feedback score.
	assert.InDelta(t, 5.0, p.Reward(), 0.01)
}

func TestNewModel_InvalidAlphaFallsBack(t *testing.T) {
	assert.Equal(t, DefaultAlpha, NewModel(0, nil).Alpha())
	assert.Equal(t, DefaultAlpha, NewModel(-1, nil).Alpha())
	assert.Equal(t, DefaultAlpha, NewModel(1.5, nil).Alpha())
	assert.Equal(t, 0.5, NewModel(0.5, nil).Alpha())
}
