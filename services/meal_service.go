package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"mealTrackAPI/internal/gamification"
	"mealTrackAPI/internal/store"
	"mealTrackAPI/internal/types/meal"
)

type MealService struct {
	store        store.Store
	gamification *GamificationService
	logger       *slog.Logger
	now          func() time.Time
}

func NewMealService(st store.Store, gs *GamificationService, logger *slog.Logger) *MealService {
	return &MealService{
		store:        st,
		gamification: gs,
		logger:       logger,
		now:          time.Now,
	}
}

// SaveMeal persists the meal and then applies gamification. When the second
// step fails the returned response still carries the stored meal id.
func (s *MealService) SaveMeal(ctx context.Context, userID string, req meal.CreateMealRequest) (meal.CreateMealResponse, error) {
	m, err := req.ToMeal(s.now())
	if err != nil {
		return meal.CreateMealResponse{}, err
	}

	id := uuid.NewString()
	if err := s.store.Set(ctx, meal.Collection(userID), id, m); err != nil {
		return meal.CreateMealResponse{}, fmt.Errorf("failed to save meal: %w", err)
	}

	resp := meal.CreateMealResponse{ID: id}
	result, err := s.gamification.ProcessMealGamification(ctx, gamification.Event{
		UserID: userID,
		Date:   m.Date,
		Source: gamification.Source(m.Source),
	})
	if err != nil {
		s.logger.Error("meal saved but gamification failed", "user_id", userID, "meal_id", id, "error", err)
		return resp, fmt.Errorf("meal %s saved but gamification failed: %w", id, err)
	}

	resp.Gamification = &result
	return resp, nil
}

// ListMeals returns the user's meals newest first, optionally limited to one date.
func (s *MealService) ListMeals(ctx context.Context, userID, date string) ([]meal.Meal, error) {
	if date != "" {
		if _, err := time.Parse(gamification.DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", meal.ErrInvalidMeal)
		}
	}

	docs, err := s.store.List(ctx, meal.Collection(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}

	meals := make([]meal.Meal, 0, len(docs))
	for _, doc := range docs {
		var m meal.Meal
		if err := doc.DataTo(&m); err != nil {
			return nil, fmt.Errorf("failed to decode meal %s: %w", doc.ID, err)
		}
		if date != "" && m.Date != date {
			continue
		}
		m.ID = doc.ID
		meals = append(meals, m)
	}

	sort.SliceStable(meals, func(i, j int) bool {
		return meals[i].CreatedAt.After(meals[j].CreatedAt)
	})
	return meals, nil
}

// Average intake thresholds, per logged meal.
const (
	lowCaloriesThreshold  = 1600
	highCaloriesThreshold = 2500
	lowProteinThreshold   = 60
	highProteinThreshold  = 150
)

// Insights averages calories and protein over all of the user's meals and
// attaches advice for averages outside the recommended ranges. Meals without
// totals count as zero. A user without meals gets zero averages and no advice.
func (s *MealService) Insights(ctx context.Context, userID string) (meal.Insights, error) {
	meals, err := s.ListMeals(ctx, userID, "")
	if err != nil {
		return meal.Insights{}, fmt.Errorf("failed to load meals for insights: %w", err)
	}

	out := meal.Insights{MealsCount: len(meals), Advice: []string{}}
	if len(meals) == 0 {
		return out, nil
	}

	var calories, protein float64
	for _, m := range meals {
		if m.TotalCalories != nil {
			calories += *m.TotalCalories
		}
		if m.TotalProtein != nil {
			protein += *m.TotalProtein
		}
	}
	out.AvgCalories = calories / float64(len(meals))
	out.AvgProtein = protein / float64(len(meals))

	if out.AvgCalories < lowCaloriesThreshold {
		out.Advice = append(out.Advice, "Your average intake is low. Watch out for an excessive deficit.")
	}
	if out.AvgCalories > highCaloriesThreshold {
		out.Advice = append(out.Advice, "Your average intake is high. Review your goals.")
	}
	if out.AvgProtein < lowProteinThreshold {
		out.Advice = append(out.Advice, "Your protein intake is low. Add chicken, eggs or legumes.")
	}
	if out.AvgProtein > highProteinThreshold {
		out.Advice = append(out.Advice, "Great protein intake! Keep it up.")
	}
	return out, nil
}
