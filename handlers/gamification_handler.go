package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"mealTrackAPI/internal/gamification"
	"mealTrackAPI/middleware"
	"mealTrackAPI/services"
)

type GamificationHandler struct {
	gamificationService *services.GamificationService
	logger              *slog.Logger
}

func NewGamificationHandler(gamificationService *services.GamificationService, logger *slog.Logger) *GamificationHandler {
	return &GamificationHandler{
		gamificationService: gamificationService,
		logger:              logger,
	}
}

type summaryResponse struct {
	Success bool `json:"success"`
	gamification.Summary
}

// GET /api/v1/gamification/summary - caller's own summary
func (h *GamificationHandler) GetMySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	h.writeSummary(w, r, userID)
}

// GET /api/v1/gamification/{userId}/summary - profile view
func (h *GamificationHandler) GetUserSummary(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "User id is required")
		return
	}
	h.writeSummary(w, r, userID)
}

// A storage failure still answers 200 with success=false and zeroed values.
func (h *GamificationHandler) writeSummary(w http.ResponseWriter, r *http.Request, userID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summary, err := h.gamificationService.GetGamificationSummary(ctx, userID)
	if err != nil {
		h.logger.Error("failed to load gamification summary", "user_id", userID, "error", err)
		respondWithJSON(w, http.StatusOK, summaryResponse{Success: false, Summary: summary})
		return
	}
	respondWithJSON(w, http.StatusOK, summaryResponse{Success: true, Summary: summary})
}
