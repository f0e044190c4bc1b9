package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mealTrackAPI/internal/gamification"
	"mealTrackAPI/internal/metrics"
	"mealTrackAPI/internal/store"
	"mealTrackAPI/internal/types/notification"
)

// AchievementNotifier is told about achievements after they are committed.
type AchievementNotifier interface {
	NotifyAchievements(job notification.AchievementJob)
}

type GamificationService struct {
	store    store.Store
	notifier AchievementNotifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewGamificationService(st store.Store, logger *slog.Logger) *GamificationService {
	return &GamificationService{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// Allow injecting the push dispatcher from main.go
func (s *GamificationService) SetAchievementNotifier(n AchievementNotifier) {
	s.notifier = n
}

type getFunc func(collection, id string, dst any) error

// readState loads the three aggregates of a user. Missing documents are
// reported as nil aggregates.
func readState(get getFunc, userID string) (gamification.State, error) {
	var (
		state        gamification.State
		points       gamification.PointsAggregate
		streak       gamification.StreakAggregate
		achievements gamification.AchievementsAggregate
	)

	found, err := optional(get(gamification.CollectionPoints, userID, &points))
	if err != nil {
		return state, fmt.Errorf("failed to read points: %w", err)
	}
	if found {
		state.Points = &points
	}

	found, err = optional(get(gamification.CollectionStreaks, userID, &streak))
	if err != nil {
		return state, fmt.Errorf("failed to read streak: %w", err)
	}
	if found {
		state.Streak = &streak
	}

	found, err = optional(get(gamification.CollectionAchievements, userID, &achievements))
	if err != nil {
		return state, fmt.Errorf("failed to read achievements: %w", err)
	}
	if found {
		state.Achievements = &achievements
	}

	return state, nil
}

func optional(err error) (bool, error) {
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ProcessMealGamification applies a meal event to the user's points, streak
// and achievements in one transaction.
func (s *GamificationService) ProcessMealGamification(ctx context.Context, ev gamification.Event) (gamification.Result, error) {
	ev, err := ev.Normalize()
	if err != nil {
		return gamification.Result{}, err
	}

	var result gamification.Result
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		state, err := readState(tx.Get, ev.UserID)
		if err != nil {
			return err
		}

		next, res, err := gamification.Apply(state, ev, s.now().UTC())
		if err != nil {
			return err
		}

		if err := tx.Set(gamification.CollectionPoints, ev.UserID, next.Points); err != nil {
			return err
		}
		if err := tx.Set(gamification.CollectionStreaks, ev.UserID, next.Streak); err != nil {
			return err
		}
		if err := tx.Set(gamification.CollectionAchievements, ev.UserID, next.Achievements); err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, gamification.ErrInvalidEvent) {
			return gamification.Result{}, err
		}
		return gamification.Result{}, fmt.Errorf("failed to process gamification: %w", err)
	}

	metrics.GamificationEvents.WithLabelValues(string(ev.Source)).Inc()
	for _, code := range result.UnlockedNow {
		metrics.AchievementsUnlocked.WithLabelValues(code).Inc()
	}
	s.logger.Debug("gamification applied",
		"user_id", ev.UserID,
		"points", result.TotalPoints,
		"streak", result.CurrentStreak,
		"unlocked", result.UnlockedNow,
	)

	if len(result.UnlockedNow) > 0 && s.notifier != nil {
		s.notifier.NotifyAchievements(notification.AchievementJob{
			UserID:       ev.UserID,
			Achievements: result.UnlockedNow,
			TotalPoints:  result.TotalPoints,
		})
	}

	return result, nil
}

// GetGamificationSummary is read-only; unknown users get zero defaults.
func (s *GamificationService) GetGamificationSummary(ctx context.Context, userID string) (gamification.Summary, error) {
	state, err := readState(func(collection, id string, dst any) error {
		return s.store.Get(ctx, collection, id, dst)
	}, userID)
	if err != nil {
		return gamification.Summarize(gamification.State{}), err
	}
	return gamification.Summarize(state), nil
}
