package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSortsAndCopies(t *testing.T) {
	in := []Sample{{X: 2, Y: 20}, {X: 0, Y: 0}, {X: 1, Y: 10}}
	tr, err := New("UV", "mAU", in)
	require.NoError(t, err)

	assert.Equal(t, []Sample{{X: 0, Y: 0}, {X: 1, Y: 10}, {X: 2, Y: 20}}, tr.Samples)
	in[0].Y = 999
	assert.Equal(t, 20.0, tr.Samples[2].Y, "trace must own its samples")

	_, err = New("UV", "mAU", []Sample{{X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestValueAt(t *testing.T) {
	tr, err := New("UV", "mAU", []Sample{{X: 0, Y: 0}, {X: 2, Y: 10}, {X: 4, Y: 0}})
	require.NoError(t, err)

	for _, tc := range []struct {
		x, want float64
	}{
		{0, 0}, {2, 10}, {4, 0}, {1, 5}, {3, 5}, {0.5, 2.5},
	} {
		got, err := tr.ValueAt(tc.x)
		require.NoError(t, err, "x=%g", tc.x)
		assert.InDelta(t, tc.want, got, 1e-12, "x=%g", tc.x)
	}

	_, err = tr.ValueAt(-0.1)
	assert.ErrorIs(t, err, ErrOutOfDomain)
	_, err = tr.ValueAt(4.1)
	assert.ErrorIs(t, err, ErrOutOfDomain)
}

func TestValueAtDuplicateX(t *testing.T) {
	// Step traces carry duplicate x positions (instrument event channels).
	tr, err := New("Gradient", "%", []Sample{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 100}, {X: 2, Y: 100}})
	require.NoError(t, err)
	got, err := tr.ValueAt(1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got, "first sample at duplicate x wins")
}

func TestWindowInterpolatesEndpoints(t *testing.T) {
	tr, err := New("UV", "mAU", []Sample{{X: 0, Y: 0}, {X: 2, Y: 4}, {X: 4, Y: 0}})
	require.NoError(t, err)

	w, err := tr.Window(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []Sample{{X: 1, Y: 2}, {X: 2, Y: 4}, {X: 3, Y: 2}}, w)

	_, err = tr.Window(-1, 3)
	assert.ErrorIs(t, err, ErrOutOfDomain)
	_, err = tr.Window(3, 1)
	assert.ErrorIs(t, err, ErrOutOfDomain)
}

func TestPeak(t *testing.T) {
	tr, err := New("UV", "mAU", []Sample{{X: 0, Y: 1}, {X: 1, Y: 7}, {X: 2, Y: 3}})
	require.NoError(t, err)
	s, idx, err := tr.Peak()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 7.0, s.Y)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	uv, err := New("UV", "mAU", []Sample{{X: 0, Y: 0}, {X: 1, Y: 1}})
	require.NoError(t, err)
	cond, err := New("Conductivity", "mS/cm", []Sample{{X: 0, Y: 5}, {X: 1, Y: 6}})
	require.NoError(t, err)

	require.NoError(t, store.Put(uv))
	require.NoError(t, store.Put(cond))
	assert.Equal(t, []string{"UV", "Conductivity"}, store.Names(), "import order preserved")

	got, err := store.Get("UV")
	require.NoError(t, err)
	assert.Same(t, uv, got)

	_, err = store.Get("pH")
	assert.ErrorIs(t, err, ErrNotFound)

	fractions := NewFractionSet([]Mark{{X: 5, Label: "A2"}, {X: 0, Label: "A1"}})
	store.ReplaceAll([]*Trace{cond}, fractions)
	assert.Equal(t, []string{"Conductivity"}, store.Names())
	_, err = store.Get("UV")
	assert.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 2, store.Fractions().Len())
	assert.Equal(t, "A1", store.Fractions().Marks[0].Label, "marks sorted by position")

	assert.ErrorIs(t, store.Remove("UV"), ErrNotFound)
	require.NoError(t, store.Remove("Conductivity"))
	assert.Empty(t, store.Names())
}

func TestFractionSetNearest(t *testing.T) {
	fs := NewFractionSet([]Mark{{X: 0, Label: "1"}, {X: 2, Label: "2"}, {X: 5, Label: "3"}})
	got, ok := fs.Nearest(2.4)
	require.True(t, ok)
	assert.Equal(t, 2.0, got)

	_, ok = (&FractionSet{}).Nearest(1)
	assert.False(t, ok)
}
