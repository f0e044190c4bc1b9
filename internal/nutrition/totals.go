package nutrition

// Totals is the plate-level sum of macros.
type Totals struct {
	TotalCalories float64 `json:"total_calories"`
	TotalProtein  float64 `json:"total_protein"`
	TotalCarbs    float64 `json:"total_carbs"`
	TotalFat      float64 `json:"total_fat"`
}

// SumTotals accumulates the macros of every item. An empty slice yields zeros.
func SumTotals(items []Macros) Totals {
	var sum Macros
	for _, m := range items {
		sum = sum.Add(m)
	}
	return Totals{
		TotalCalories: sum.Calories,
		TotalProtein:  sum.Protein,
		TotalCarbs:    sum.Carbs,
		TotalFat:      sum.Fat,
	}
}
