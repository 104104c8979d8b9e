package domain

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// ComputeTier is the caller-supplied processing budget. It is an opaque
// ordinal to the engines: higher tiers buy higher model orders and iterative
// refinement, nothing else. The engines never probe hardware themselves.
type ComputeTier int

const (
	TierMinimal ComputeTier = iota
	TierStandard
	TierAdvanced
	TierExpert
)

var tierNames = map[ComputeTier]string{
	TierMinimal:  "minimal",
	TierStandard: "standard",
	TierAdvanced: "advanced",
	TierExpert:   "expert",
}

// String returns the tier's lowercase name, or "standard" for values outside
// the known range.
func (t ComputeTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return tierNames[TierStandard]
}

// Normalize maps unrecognized tier values to TierStandard so future tiers
// added by the host degrade to standard behavior instead of failing.
func (t ComputeTier) Normalize() ComputeTier {
	if t < TierMinimal || t > TierExpert {
		return TierStandard
	}
	return t
}

// ParseComputeTier maps a tier name to its value. Unknown names parse to
// TierStandard, matching Normalize.
func ParseComputeTier(name string) ComputeTier {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "minimal":
		return TierMinimal
	case "standard":
		return TierStandard
	case "advanced":
		return TierAdvanced
	case "expert":
		return TierExpert
	default:
		return TierStandard
	}
}

// MarshalJSON encodes the tier as its name.
func (t ComputeTier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a tier name, tolerating unknown names.
func (t *ComputeTier) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*t = ParseComputeTier(name)
	return nil
}

// MarshalYAML encodes the tier as its name.
func (t ComputeTier) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// UnmarshalYAML decodes a tier name, tolerating unknown names.
func (t *ComputeTier) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	*t = ParseComputeTier(name)
	return nil
}
