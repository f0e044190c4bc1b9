package nutrition

import "strings"

// Baseline holds the macro profile of a canonical food per 100g.
type Baseline struct {
	Key             string  `json:"key"`
	CaloriesPer100g float64 `json:"calories_per_100g"`
	ProteinPer100g  float64 `json:"protein_per_100g"`
	CarbsPer100g    float64 `json:"carbs_per_100g"`
	FatPer100g      float64 `json:"fat_per_100g"`
}

// DefaultBaselineKey is used when a label matches no known food.
const DefaultBaselineKey = "arroz"

// Checked in order; the first key contained in the label wins.
var baselines = []Baseline{
	{Key: "frango", CaloriesPer100g: 165, ProteinPer100g: 31, CarbsPer100g: 0, FatPer100g: 3.6},
	{Key: "arroz", CaloriesPer100g: 130, ProteinPer100g: 2.7, CarbsPer100g: 28, FatPer100g: 0.3},
	{Key: "salada", CaloriesPer100g: 20, ProteinPer100g: 1, CarbsPer100g: 3, FatPer100g: 0},
	{Key: "ovo", CaloriesPer100g: 155, ProteinPer100g: 13, CarbsPer100g: 1.1, FatPer100g: 11},
	{Key: "massa", CaloriesPer100g: 131, ProteinPer100g: 5, CarbsPer100g: 25, FatPer100g: 1.1},
}

// Baselines returns a copy of the reference table.
func Baselines() []Baseline {
	out := make([]Baseline, len(baselines))
	copy(out, baselines)
	return out
}

// LookupBaseline resolves a label to its reference entry by substring
// containment, falling back to DefaultBaselineKey.
func LookupBaseline(label string) Baseline {
	label = strings.ToLower(label)
	var fallback Baseline
	for _, b := range baselines {
		if strings.Contains(label, b.Key) {
			return b
		}
		if b.Key == DefaultBaselineKey {
			fallback = b
		}
	}
	return fallback
}
