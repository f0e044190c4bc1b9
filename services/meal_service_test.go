package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealTrackAPI/internal/gamification"
	"mealTrackAPI/internal/store"
	"mealTrackAPI/internal/types/meal"
)

// gamificationFailingStore accepts plain writes but fails transactions.
type gamificationFailingStore struct {
	*store.MemoryStore
}

func (g gamificationFailingStore) RunTransaction(context.Context, func(context.Context, store.Tx) error) error {
	return errors.New("transaction aborted")
}

func TestSaveMealRunsGamification(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewMealService(st, newGamificationService(st), testLogger())

	resp, err := svc.SaveMeal(context.Background(), "u1", meal.CreateMealRequest{
		Date:   "2024-03-10",
		Items:  json.RawMessage(`[{"label":"arroz","grams":120}]`),
		Source: "photo",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.NotNil(t, resp.Gamification)
	assert.Equal(t, 15, resp.Gamification.TotalPoints)

	var stored meal.Meal
	require.NoError(t, st.Get(context.Background(), meal.Collection("u1"), resp.ID, &stored))
	assert.Equal(t, "photo", stored.Source)
	assert.Equal(t, "2024-03-10", stored.Date)
}

func TestSaveMealValidation(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewMealService(st, newGamificationService(st), testLogger())

	_, err := svc.SaveMeal(context.Background(), "u1", meal.CreateMealRequest{Date: "2024-03-10"})
	assert.ErrorIs(t, err, meal.ErrInvalidMeal)

	docs, err := st.List(context.Background(), meal.Collection("u1"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSaveMealGamificationFailureKeepsMealID(t *testing.T) {
	st := gamificationFailingStore{store.NewMemoryStore()}
	svc := NewMealService(st, newGamificationService(st), testLogger())

	resp, err := svc.SaveMeal(context.Background(), "u1", meal.CreateMealRequest{
		Date:  "2024-03-10",
		Items: json.RawMessage(`[]`),
	})
	require.Error(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Nil(t, resp.Gamification)

	var stored meal.Meal
	assert.NoError(t, st.Get(context.Background(), meal.Collection("u1"), resp.ID, &stored))
	assert.Equal(t, gamification.SourceManual, gamification.Source(stored.Source))
}

func TestListMealsNewestFirstWithDateFilter(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewMealService(st, newGamificationService(st), testLogger())
	ctx := context.Background()

	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	for i, date := range []string{"2024-03-09", "2024-03-10", "2024-03-10"} {
		svc.now = fixedClock(base.Add(time.Duration(i) * time.Hour))
		_, err := svc.SaveMeal(ctx, "u1", meal.CreateMealRequest{Date: date, Items: json.RawMessage(`[]`)})
		require.NoError(t, err)
	}

	all, err := svc.ListMeals(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.True(t, all[1].CreatedAt.After(all[2].CreatedAt))
	assert.NotEmpty(t, all[0].ID)

	day, err := svc.ListMeals(ctx, "u1", "2024-03-10")
	require.NoError(t, err)
	assert.Len(t, day, 2)

	_, err = svc.ListMeals(ctx, "u1", "yesterday")
	assert.ErrorIs(t, err, meal.ErrInvalidMeal)

	none, err := svc.ListMeals(ctx, "someone-else", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveMealUnknownSourceAwardsManualPoints(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewMealService(st, newGamificationService(st), testLogger())

	resp, err := svc.SaveMeal(context.Background(), "u1", meal.CreateMealRequest{
		Date:   "2024-03-10",
		Items:  json.RawMessage(`[]`),
		Source: "barcode",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Gamification)
	assert.Equal(t, gamification.PointsMealManual, resp.Gamification.PointsToAdd)

	var stored meal.Meal
	require.NoError(t, st.Get(context.Background(), meal.Collection("u1"), resp.ID, &stored))
	assert.Equal(t, "barcode", stored.Source)
}

func TestInsightsWithoutMeals(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewMealService(st, newGamificationService(st), testLogger())

	got, err := svc.Insights(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.MealsCount)
	assert.Zero(t, got.AvgCalories)
	assert.Zero(t, got.AvgProtein)
	assert.NotNil(t, got.Advice)
	assert.Empty(t, got.Advice)
}

func TestInsightsAveragesAndAdvice(t *testing.T) {
	kcal := func(v float64) *float64 { return &v }

	cases := []struct {
		name     string
		meals    [][2]*float64
		calories float64
		protein  float64
		advice   int
	}{
		{"low intake", [][2]*float64{{kcal(1000), kcal(40)}, {kcal(1400), kcal(50)}}, 1200, 45, 2},
		{"within range", [][2]*float64{{kcal(2000), kcal(100)}}, 2000, 100, 0},
		{"high intake", [][2]*float64{{kcal(3000), kcal(200)}}, 3000, 200, 2},
		{"missing totals count as zero", [][2]*float64{{kcal(4000), kcal(240)}, {nil, nil}}, 2000, 120, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			svc := NewMealService(st, newGamificationService(st), testLogger())
			for _, m := range tc.meals {
				_, err := svc.SaveMeal(context.Background(), "u1", meal.CreateMealRequest{
					Date:          "2024-03-10",
					Items:         json.RawMessage(`[]`),
					TotalCalories: m[0],
					TotalProtein:  m[1],
				})
				require.NoError(t, err)
			}

			got, err := svc.Insights(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, len(tc.meals), got.MealsCount)
			assert.InDelta(t, tc.calories, got.AvgCalories, 1e-9)
			assert.InDelta(t, tc.protein, got.AvgProtein, 1e-9)
			assert.Len(t, got.Advice, tc.advice)
		})
	}
}
