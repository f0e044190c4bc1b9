package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mealTrackAPI/internal/types/meal"
	"mealTrackAPI/middleware"
	"mealTrackAPI/services"
)

type MealHandler struct {
	mealService *services.MealService
}

func NewMealHandler(mealService *services.MealService) *MealHandler {
	return &MealHandler{mealService: mealService}
}

// POST /api/v1/user/meals - save a meal and apply gamification
func (h *MealHandler) CreateMeal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req meal.CreateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.mealService.SaveMeal(ctx, userID, req)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusCreated, resp)
	case errors.Is(err, meal.ErrInvalidMeal):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case resp.ID != "":
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Meal saved but gamification could not be updated",
			"id":    resp.ID,
		})
	default:
		respondWithError(w, http.StatusInternalServerError, "Could not save meal")
	}
}

// GET /api/v1/user/meals?date=YYYY-MM-DD
func (h *MealHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	meals, err := h.mealService.ListMeals(ctx, userID, r.URL.Query().Get("date"))
	if err != nil {
		if errors.Is(err, meal.ErrInvalidMeal) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Could not list meals")
		return
	}

	respondWithJSON(w, http.StatusOK, meals)
}

type insightsResponse struct {
	Success bool `json:"success"`
	meal.Insights
}

// GET /api/v1/user/insights - averages and advice over all logged meals
func (h *MealHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	insights, err := h.mealService.Insights(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Could not generate insights")
		return
	}

	respondWithJSON(w, http.StatusOK, insightsResponse{Success: true, Insights: insights})
}
