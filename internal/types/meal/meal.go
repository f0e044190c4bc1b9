package meal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mealTrackAPI/internal/gamification"
)

var ErrInvalidMeal = errors.New("invalid meal")

type Meal struct {
	ID            string    `json:"id" firestore:"-"`
	Date          string    `json:"date" firestore:"date"`
	Items         []any     `json:"items" firestore:"items"`
	TotalCalories *float64  `json:"totalCalories,omitempty" firestore:"totalCalories,omitempty"`
	TotalProtein  *float64  `json:"totalProtein,omitempty" firestore:"totalProtein,omitempty"`
	TotalCarbs    *float64  `json:"totalCarbs,omitempty" firestore:"totalCarbs,omitempty"`
	TotalFat      *float64  `json:"totalFat,omitempty" firestore:"totalFat,omitempty"`
	Source        string    `json:"source" firestore:"source"`
	CreatedAt     time.Time `json:"createdAt" firestore:"createdAt"`
}

type CreateMealRequest struct {
	Date          string          `json:"date"`
	Items         json.RawMessage `json:"items"`
	TotalCalories *float64        `json:"totalCalories"`
	TotalProtein  *float64        `json:"totalProtein"`
	TotalCarbs    *float64        `json:"totalCarbs"`
	TotalFat      *float64        `json:"totalFat"`
	Source        string          `json:"source"`
}

type CreateMealResponse struct {
	ID           string               `json:"id"`
	Gamification *gamification.Result `json:"gamification,omitempty"`
}

// Insights summarises every logged meal of a user.
type Insights struct {
	MealsCount  int      `json:"mealsCount"`
	AvgCalories float64  `json:"avgCalories"`
	AvgProtein  float64  `json:"avgProtein"`
	Advice      []string `json:"insights"`
}

// Collection returns the nested collection holding a user's meals.
func Collection(userID string) string {
	return "users/" + userID + "/meals"
}

// ToMeal validates the request and builds the document to persist.
func (r CreateMealRequest) ToMeal(now time.Time) (Meal, error) {
	date := strings.TrimSpace(r.Date)
	if date == "" {
		return Meal{}, fmt.Errorf("%w: date is required", ErrInvalidMeal)
	}
	if _, err := time.Parse(gamification.DateLayout, date); err != nil {
		return Meal{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidMeal)
	}

	var items []any
	if len(r.Items) == 0 || json.Unmarshal(r.Items, &items) != nil || items == nil {
		return Meal{}, fmt.Errorf("%w: items must be an array", ErrInvalidMeal)
	}

	source := gamification.Source(strings.ToLower(strings.TrimSpace(r.Source)))
	if source == "" {
		source = gamification.SourceManual
	}

	return Meal{
		Date:          date,
		Items:         items,
		TotalCalories: r.TotalCalories,
		TotalProtein:  r.TotalProtein,
		TotalCarbs:    r.TotalCarbs,
		TotalFat:      r.TotalFat,
		Source:        string(source),
		CreatedAt:     now.UTC(),
	}, nil
}
