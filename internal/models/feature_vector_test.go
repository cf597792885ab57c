package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureVectorRoundTrip(t *testing.T) {
	fv := &FeatureVector{
		FixtureID:     uuid.New(),
		SchemaVersion: "v1",
		ComputedAt:    time.Date(2026, 4, 2, 19, 45, 0, 0, time.UTC),
		Names:         []string{"form_points_home", "form_points_away", "xg_ratio_home"},
		Values:        []float64{1.8, 0.9333333333333333, 1.25},
		Completeness: CompletenessMask{
			GroupForm:        true,
			GroupShotQuality: true,
		},
	}

	data, err := fv.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalFeatureVector(data)
	require.NoError(t, err)

	assert.Equal(t, fv.FixtureID, restored.FixtureID)
	assert.Equal(t, fv.SchemaVersion, restored.SchemaVersion)
	require.Equal(t, fv.Names, restored.Names)
	for i, name := range fv.Names {
		got, ok := restored.Value(name)
		require.True(t, ok)
		assert.Equal(t, fv.Values[i], got, "value for %s must survive the round trip exactly", name)
	}
	assert.True(t, restored.Completeness.Present(GroupForm))
	assert.False(t, restored.Completeness.Present(GroupMarket))
}

func TestFeatureVectorValidate(t *testing.T) {
	fv := &FeatureVector{
		SchemaVersion: "v1",
		Names:         []string{"a", "b"},
		Values:        []float64{1},
	}
	err := fv.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	fv.Values = []float64{1, 2}
	fv.SchemaVersion = ""
	err = fv.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestCompletenessMaskMissing(t *testing.T) {
	mask := CompletenessMask{
		GroupShotQuality: true,
		GroupMarket:      true,
		GroupHeadToHead:  true,
	}

	assert.Equal(t, 3, mask.PresentCount())
	missing := mask.Missing()
	assert.ElementsMatch(t, []FeatureGroup{GroupForm, GroupFatigue, GroupSquadStrength}, missing)
}
