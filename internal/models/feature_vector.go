package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FeatureGroup identifies a block of related features produced from one source
type FeatureGroup string

const (
	// GroupForm covers recent-results features from standings data
	GroupForm FeatureGroup = "form"
	// GroupShotQuality covers xG and shot features
	GroupShotQuality FeatureGroup = "shot_quality"
	// GroupFatigue covers rest-days and schedule-congestion features
	GroupFatigue FeatureGroup = "fatigue"
	// GroupMarket covers market-derived features from live odds
	GroupMarket FeatureGroup = "market"
	// GroupHeadToHead covers historical head-to-head features
	GroupHeadToHead FeatureGroup = "head_to_head"
	// GroupSquadStrength covers ratings and valuation features
	GroupSquadStrength FeatureGroup = "squad_strength"
)

// AllFeatureGroups lists every group in schema order
var AllFeatureGroups = []FeatureGroup{
	GroupForm,
	GroupShotQuality,
	GroupFatigue,
	GroupMarket,
	GroupHeadToHead,
	GroupSquadStrength,
}

// CompletenessMask records which feature groups were built from live,
// non-stale source data. Groups absent from the mask were filled with
// neutral defaults.
type CompletenessMask map[FeatureGroup]bool

// Present reports whether the group had live data
func (m CompletenessMask) Present(g FeatureGroup) bool { return m[g] }

// PresentCount returns the number of groups with live data
func (m CompletenessMask) PresentCount() int {
	n := 0
	for _, ok := range m {
		if ok {
			n++
		}
	}
	return n
}

// Missing returns the groups without live data, in schema order
func (m CompletenessMask) Missing() []FeatureGroup {
	var missing []FeatureGroup
	for _, g := range AllFeatureGroups {
		if !m[g] {
			missing = append(missing, g)
		}
	}
	return missing
}

// FeatureVector is the fixed-width numeric input to the inference engine.
// Names and Values are parallel slices whose order is fixed by the schema
// version, so artifacts trained against one version stay valid.
type FeatureVector struct {
	FixtureID     uuid.UUID        `json:"fixture_id"`
	SchemaVersion string           `json:"schema_version"`
	ComputedAt    time.Time        `json:"computed_at"`
	Names         []string         `json:"names"`
	Values        []float64        `json:"values"`
	Completeness  CompletenessMask `json:"completeness"`
}

// Value looks up a feature by name
func (fv *FeatureVector) Value(name string) (float64, bool) {
	for i, n := range fv.Names {
		if n == name {
			return fv.Values[i], true
		}
	}
	return 0, false
}

// Validate checks internal consistency of the vector
func (fv *FeatureVector) Validate() error {
	if len(fv.Names) != len(fv.Values) {
		return fmt.Errorf("feature vector has %d names but %d values: %w",
			len(fv.Names), len(fv.Values), ErrSchemaMismatch)
	}
	if fv.SchemaVersion == "" {
		return fmt.Errorf("feature vector missing schema version: %w", ErrSchemaMismatch)
	}
	return nil
}

// Marshal serializes the vector through the persisted schema
func (fv *FeatureVector) Marshal() ([]byte, error) {
	return json.Marshal(fv)
}

// UnmarshalFeatureVector restores a vector persisted with Marshal
func UnmarshalFeatureVector(data []byte) (*FeatureVector, error) {
	fv := &FeatureVector{}
	if err := json.Unmarshal(data, fv); err != nil {
		return nil, fmt.Errorf("failed to decode feature vector: %w", err)
	}
	if err := fv.Validate(); err != nil {
		return nil, err
	}
	return fv, nil
}
