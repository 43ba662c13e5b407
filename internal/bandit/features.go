package bandit

import (
	"strings"

	"github.com/fyrsmithlabs/protocold/internal/protocol"
)

// FeatureDim is the fixed feature-vector dimension for the contextual
// bandit: one-hot emotion block, one-hot intent block, a constant bias
// term, zero-padded to the fixed size.
const FeatureDim = 12

// Feature vocabulary. Out-of-vocabulary values leave their one-hot block
// all zero; that is not a failure.
var (
	emotionVocab = []string{"happy", "sad", "angry", "neutral", "excited"}
	intentVocab  = []string{"work", "rest", "create", "learn", "social"}
)

var biasIndex = len(emotionVocab) + len(intentVocab)

// Features encodes a context into a fixed-size feature vector.
func Features(ctx protocol.Context) []float64 {
	f := make([]float64, FeatureDim)

	emotion := strings.ToLower(ctx.Emotion)
	for i, v := range emotionVocab {
		if emotion == v {
			f[i] = 1.0
			break
		}
	}

	intent := strings.ToLower(ctx.Intent)
	for i, v := range intentVocab {
		if intent == v {
			f[len(emotionVocab)+i] = 1.0
			break
		}
	}

	// Constant bias so the linear model can learn a per-protocol baseline
	// even for out-of-vocabulary contexts.
	f[biasIndex] = 1.0

	return f
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
