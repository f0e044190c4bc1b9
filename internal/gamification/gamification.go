package gamification

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Source string

const (
	SourceManual Source = "manual"
	SourcePhoto  Source = "photo"
)

// DateLayout is the calendar date format used for events and streaks.
const DateLayout = "2006-01-02"

// Storage collections owned by the engine. Documents are keyed by user id.
const (
	CollectionPoints       = "user_points"
	CollectionStreaks      = "user_streaks"
	CollectionAchievements = "user_achievements"
)

var ErrInvalidEvent = errors.New("invalid gamification event")

// Event is emitted every time a user saves a meal.
type Event struct {
	UserID string `json:"userId"`
	Date   string `json:"date"`
	Source Source `json:"source"`
}

// Normalize validates the event and returns a copy with a canonical date and
// a defaulted source.
func (e Event) Normalize() (Event, error) {
	e.UserID = strings.TrimSpace(e.UserID)
	if e.UserID == "" {
		return Event{}, fmt.Errorf("%w: user id is required", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Date) == "" {
		return Event{}, fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	d, err := time.Parse(DateLayout, strings.TrimSpace(e.Date))
	if err != nil {
		return Event{}, fmt.Errorf("%w: date must be YYYY-MM-DD: %v", ErrInvalidEvent, err)
	}
	e.Date = d.Format(DateLayout)
	if e.Source == "" {
		e.Source = SourceManual
	}
	return e, nil
}

type PointsAggregate struct {
	UserID    string    `json:"userId" firestore:"userId"`
	Points    int       `json:"points" firestore:"points"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

type StreakAggregate struct {
	UserID    string    `json:"userId" firestore:"userId"`
	Current   int       `json:"current" firestore:"current"`
	Best      int       `json:"best" firestore:"best"`
	LastDate  *string   `json:"lastDate" firestore:"lastDate"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

type AchievementsAggregate struct {
	UserID    string    `json:"userId" firestore:"userId"`
	Items     []string  `json:"items" firestore:"items"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

func (a *AchievementsAggregate) Has(code string) bool {
	if a == nil {
		return false
	}
	for _, item := range a.Items {
		if item == code {
			return true
		}
	}
	return false
}

// State is the persisted view of a single user. A nil aggregate means the
// document does not exist yet.
type State struct {
	Points       *PointsAggregate
	Streak       *StreakAggregate
	Achievements *AchievementsAggregate
}

// Result is returned to the meal-save workflow.
type Result struct {
	PointsToAdd   int      `json:"pointsToAdd"`
	BonusPoints   int      `json:"bonusPoints"`
	TotalPoints   int      `json:"totalPoints"`
	CurrentStreak int      `json:"currentStreak"`
	BestStreak    int      `json:"bestStreak"`
	UnlockedNow   []string `json:"unlockedNow"`
}

type StreakSummary struct {
	Current  int     `json:"current"`
	Best     int     `json:"best"`
	LastDate *string `json:"lastDate"`
}

type Summary struct {
	Points       int           `json:"points"`
	Streak       StreakSummary `json:"streak"`
	Achievements []string      `json:"achievements"`
}

// Summarize reads a state with zero defaults for missing aggregates.
func Summarize(s State) Summary {
	summary := Summary{Achievements: []string{}}
	if s.Points != nil {
		summary.Points = s.Points.Points
	}
	if s.Streak != nil {
		summary.Streak = StreakSummary{
			Current:  s.Streak.Current,
			Best:     s.Streak.Best,
			LastDate: s.Streak.LastDate,
		}
	}
	if s.Achievements != nil && len(s.Achievements.Items) > 0 {
		summary.Achievements = append(summary.Achievements, s.Achievements.Items...)
	}
	return summary
}
