package nutrition

import "strings"

// rule maps any of its keywords, found as a substring of a lower-cased
// label, to a result. Rules are evaluated in slice order.
type rule[T any] struct {
	keywords []string
	result   T
}

func (r rule[T]) matches(label string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

func firstMatch[T any](rules []rule[T], label string, fallback T) T {
	label = strings.ToLower(label)
	for _, r := range rules {
		if r.matches(label) {
			return r.result
		}
	}
	return fallback
}

// DefaultPortionGrams is the serving estimate for unrecognised labels.
const DefaultPortionGrams = 100

var portionRules = []rule[float64]{
	{keywords: []string{"rice", "arroz"}, result: 120},
	{keywords: []string{"chicken", "frango"}, result: 150},
	{keywords: []string{"salad", "salada"}, result: 80},
	{keywords: []string{"egg", "ovo"}, result: 55},
	{keywords: []string{"pasta", "massa"}, result: 130},
}

// fried before grilled: a label naming both is treated as fried.
var preparationRules = []rule[Preparation]{
	{keywords: []string{"fried", "frito"}, result: Fried},
	{keywords: []string{"grilled", "grelhado"}, result: Grilled},
}

// EstimatePortion returns the estimated serving size in grams for a label.
// Both English and Portuguese keywords are recognised.
func EstimatePortion(label string) float64 {
	return firstMatch(portionRules, label, DefaultPortionGrams)
}

// InferPreparation guesses how the food was cooked from its label.
func InferPreparation(label string) Preparation {
	return firstMatch(preparationRules, label, Boiled)
}
