package importer

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomImportComma(t *testing.T) {
	input := strings.Join([]string{
		"exported by instrument",
		"vol,absorbance,vol2,cond,pos,frac",
		"0.0,1.0,0.0,5.0,0.5,A1",
		"1.0,9.0,1.0,5.5,1.5,A2",
		"2.0,not-a-number,2.0,6.0,,",
	}, "\n")

	imp, err := NewCustom(CustomOptions{
		Delimiter: DelimiterComma,
		HeaderRow: 1,
		Mappings: []ColumnMapping{
			{Name: "UV", Unit: "mAU", XCol: 0, YCol: 1},
			{Name: "Conductivity", Unit: "mS/cm", XCol: 2, YCol: 3},
		},
		Fractions: &FractionMapping{XCol: 4, LabelCol: 5},
	})
	require.NoError(t, err)

	res, err := imp.Import(strings.NewReader(input), "run.csv")
	require.NoError(t, err)
	require.Len(t, res.Traces, 2)

	assert.Equal(t, "UV", res.Traces[0].Name)
	assert.Equal(t, 2, res.Traces[0].Len(), "unparsable row skipped")
	assert.Equal(t, 3, res.Traces[1].Len())
	require.Equal(t, 2, res.Fractions.Len())
	assert.Equal(t, "A1", res.Fractions.Marks[0].Label)
}

func TestCustomImportWhitespace(t *testing.T) {
	input := "x  y\n0  1\n1   4\n2\t9\n"
	imp, err := NewCustom(CustomOptions{
		Delimiter: DelimiterWhitespace,
		Mappings:  []ColumnMapping{{Name: "UV", XCol: 0, YCol: 1}},
	})
	require.NoError(t, err)

	res, err := imp.Import(strings.NewReader(input), "run.txt")
	require.NoError(t, err)
	require.Len(t, res.Traces, 1)
	assert.Equal(t, 3, res.Traces[0].Len())
}

func TestCustomImportValidation(t *testing.T) {
	_, err := NewCustom(CustomOptions{})
	assert.Error(t, err, "no mappings")

	_, err = NewCustom(CustomOptions{
		Delimiter: "pipe",
		Mappings:  []ColumnMapping{{Name: "UV", XCol: 0, YCol: 1}},
	})
	assert.Error(t, err, "unknown delimiter")
}

func TestCustomImportNoData(t *testing.T) {
	imp, err := NewCustom(CustomOptions{
		Delimiter: DelimiterComma,
		Mappings:  []ColumnMapping{{Name: "UV", XCol: 0, YCol: 1}},
	})
	require.NoError(t, err)
	_, err = imp.Import(strings.NewReader("x,y\n"), "empty.csv")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestProfileStoreRoundTrip(t *testing.T) {
	store := NewProfileStore(filepath.Join(t.TempDir(), "profiles.yaml"))

	profiles, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, profiles)

	p := Profile{
		Name: "akta-fallback",
		Options: CustomOptions{
			Delimiter: DelimiterTab,
			HeaderRow: 2,
			Mappings:  []ColumnMapping{{Name: "UV", Unit: "mAU", XCol: 0, YCol: 1}},
		},
	}
	require.NoError(t, store.Save(p))

	got, err := store.Get("akta-fallback")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	p.Options.HeaderRow = 0
	require.NoError(t, store.Save(p), "save replaces by name")
	got, err = store.Get("akta-fallback")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Options.HeaderRow)

	require.NoError(t, store.Delete("akta-fallback"))
	_, err = store.Get("akta-fallback")
	assert.Error(t, err)
	assert.Error(t, store.Delete("akta-fallback"), "deleting twice fails")
}
