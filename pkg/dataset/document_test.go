package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	doc, err := NewDocument(loadFixture(t), "testdata/buurten.json")
	require.NoError(t, err)
	assert.True(t, doc.HasFeatures())
	assert.Equal(t, 5, doc.FeatureCount())
	assert.Equal(t, "testdata/buurten.json", doc.Source)

	_, err = NewDocument([]byte(`{"features": [`), "broken")
	assert.True(t, errors.Is(err, ErrInvalidJSON))
}

func TestDocument_HasFeatures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"feature collection", `{"features": []}`, true},
		{"features is object", `{"features": {}}`, false},
		{"no features", `{"type": "FeatureCollection"}`, false},
		{"root array", `[1, 2]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewDocument([]byte(tt.raw), tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.HasFeatures())
			if !tt.want {
				assert.Zero(t, doc.FeatureCount())
			}
		})
	}
}

func TestDocument_Features(t *testing.T) {
	doc, err := NewDocument(loadFixture(t), "fixture")
	require.NoError(t, err)

	fc, err := doc.Features()
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Equal(t, 5, fc.TotalFeatures)
	require.Len(t, fc.Features, 5)
	assert.Equal(t, "Binnenstad-Noord", fc.Features[0].Properties["bu_naam"])
	assert.Equal(t, 18.73, fc.Features[0].Properties["_mean"])
}

func TestDocument_Greenery(t *testing.T) {
	doc, err := NewDocument(loadFixture(t), "fixture")
	require.NoError(t, err)

	g, err := doc.Greenery("bu_naam", "_mean")
	require.NoError(t, err)

	// Centrum без значения и запись без имени пропущены
	assert.Equal(t, 2, g.Skipped)
	assert.Len(t, g.Values, 2)
	assert.Equal(t, []string{"Binnenstad-Noord", "Binnenstad-Zuid"}, g.Names())

	v, ok := g.Lookup("Binnenstad-Noord")
	assert.True(t, ok)
	assert.Equal(t, 18.73, v)

	// Повтор имени: последнее значение
	v, ok = g.Lookup("Binnenstad-Zuid")
	assert.True(t, ok)
	assert.Equal(t, 22.25, v)

	_, ok = g.Lookup("Centrum")
	assert.False(t, ok)
}

func TestDocument_GreeneryWithoutFeatures(t *testing.T) {
	doc, err := NewDocument([]byte(`{"type": "FeatureCollection"}`), "empty")
	require.NoError(t, err)

	_, err = doc.Greenery("bu_naam", "_mean")
	assert.Error(t, err)
}

func TestDocument_GreeneryKeysWithPathSyntax(t *testing.T) {
	raw := `{"features": [{"properties": {"name.full": "A*B", "value#1": 3}}]}`
	doc, err := NewDocument([]byte(raw), "odd keys")
	require.NoError(t, err)

	g, err := doc.Greenery("name.full", "value#1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"A*B": 3}, g.Values)
}
