package nutrition

import "strings"

type Preparation string

const (
	Fried   Preparation = "fried"
	Grilled Preparation = "grilled"
	Boiled  Preparation = "boiled"
)

// ParsePreparation accepts the English enum values as well as the
// Portuguese terms used by the mobile app. Anything else is Boiled.
func ParsePreparation(s string) Preparation {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fried", "frito":
		return Fried
	case "grilled", "grelhado":
		return Grilled
	default:
		return Boiled
	}
}

// Multiplier is the calorie density adjustment applied for the cooking method.
// Portuguese terms are accepted as well.
func (p Preparation) Multiplier() float64 {
	switch ParsePreparation(string(p)) {
	case Grilled:
		return 1.15
	case Fried:
		return 1.35
	default:
		return 1.0
	}
}

// Macros are absolute macro quantities (kcal and grams) for a serving.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (m Macros) Scale(factor float64) Macros {
	return Macros{
		Calories: m.Calories * factor,
		Protein:  m.Protein * factor,
		Carbs:    m.Carbs * factor,
		Fat:      m.Fat * factor,
	}
}

func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// CorrectNutrition scales the baseline for label by the serving size and the
// preparation multiplier. No rounding is applied.
func CorrectNutrition(label string, prep Preparation, grams float64) Macros {
	b := LookupBaseline(label)
	per100 := Macros{
		Calories: b.CaloriesPer100g,
		Protein:  b.ProteinPer100g,
		Carbs:    b.CarbsPer100g,
		Fat:      b.FatPer100g,
	}
	return per100.Scale((grams / 100) * prep.Multiplier())
}
