package smooth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chromalyzer/internal/trace"
)

func TestApplySMAFlattensAlternatingNoise(t *testing.T) {
	var samples []trace.Sample
	for i := 0; i < 40; i++ {
		y := 10.0
		if i%2 == 0 {
			y = 12.0
		}
		samples = append(samples, trace.Sample{X: float64(i), Y: y})
	}
	tr, err := trace.New("UV", "mAU", samples)
	require.NoError(t, err)

	out, err := Apply(tr, MethodSMA, 4)
	require.NoError(t, err)
	require.Equal(t, tr.Len(), out.Len())
	for _, s := range out.Samples[4:] {
		assert.InDelta(t, 11.0, s.Y, 1e-9)
	}
	assert.Equal(t, 12.0, tr.Samples[0].Y, "input trace untouched")
}

func TestApplyShortWindowIsIdentity(t *testing.T) {
	tr, err := trace.New("UV", "mAU", []trace.Sample{{X: 0, Y: 1}, {X: 1, Y: 2}})
	require.NoError(t, err)
	out, err := Apply(tr, MethodSMA, 1)
	require.NoError(t, err)
	assert.Same(t, tr, out)
}

func TestApplyUnknownMethod(t *testing.T) {
	tr, err := trace.New("UV", "mAU", []trace.Sample{{X: 0, Y: 1}, {X: 1, Y: 2}})
	require.NoError(t, err)
	_, err = Apply(tr, "median", 3)
	assert.Error(t, err)
}
