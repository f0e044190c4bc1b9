package recognition

import "mealTrackAPI/internal/nutrition"

const ServingUnitGrams = "g"

// Item is one food detected on a plate, enriched with nutrition.
type Item struct {
	Label            string                `json:"label"`
	Confidence       *float64              `json:"confidence,omitempty"`
	Preparation      nutrition.Preparation `json:"preparation"`
	EstimatedServing float64               `json:"estimated_serving"`
	ServingUnit      string                `json:"serving_unit"`
	Nutrition        nutrition.Macros      `json:"nutrition"`
}

// Result is the payload returned by the recognize endpoint.
type Result struct {
	Success bool   `json:"success"`
	Caption string `json:"caption"`
	Items   []Item `json:"items"`
	nutrition.Totals
	// Fallback is set when the fixed plate was served because a live
	// classifier call failed.
	Fallback bool `json:"fallback"`
}

// Candidate is a fused label before enrichment.
type Candidate struct {
	Label      string
	Confidence float64
}
