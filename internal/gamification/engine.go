package gamification

import (
	"time"
)

const (
	PointsMealManual = 10
	PointsMealPhoto  = 15
)

const (
	AchievementFirstMeal      = "first_meal"
	AchievementFirstPhotoMeal = "first_photo_meal"
	AchievementStreak7        = "streak_7"
	AchievementStreak30       = "streak_30"
)

type achievementRule struct {
	code    string
	bonus   int
	unlocks func(ev Event, streak int) bool
}

// Evaluated in order; unlockedNow preserves this order.
var achievementRules = []achievementRule{
	{
		code:    AchievementFirstMeal,
		unlocks: func(Event, int) bool { return true },
	},
	{
		code:    AchievementFirstPhotoMeal,
		unlocks: func(ev Event, _ int) bool { return ev.Source == SourcePhoto },
	},
	{
		code:    AchievementStreak7,
		bonus:   100,
		unlocks: func(_ Event, streak int) bool { return streak >= 7 },
	},
	{
		code:    AchievementStreak30,
		bonus:   300,
		unlocks: func(_ Event, streak int) bool { return streak >= 30 },
	},
}

// PointsFor returns the base award for a meal source.
func PointsFor(source Source) int {
	if source == SourcePhoto {
		return PointsMealPhoto
	}
	return PointsMealManual
}

// Apply computes the next state for a meal event. The input state is not
// mutated. Callers must persist every aggregate of the returned state in a
// single atomic write.
func Apply(state State, ev Event, now time.Time) (State, Result, error) {
	ev, err := ev.Normalize()
	if err != nil {
		return State{}, Result{}, err
	}

	// points
	total := 0
	if state.Points != nil {
		total = state.Points.Points
	}
	award := PointsFor(ev.Source)
	total += award

	// streak
	current, best := 1, 1
	if state.Streak != nil {
		current, best = state.Streak.Current, state.Streak.Best
		switch lastDateOf(state.Streak) {
		case previousDay(ev.Date):
			current++
		case ev.Date:
		default:
			current = 1
		}
		if current > best {
			best = current
		}
	}
	lastDate := ev.Date

	// achievements
	var items []string
	if state.Achievements != nil {
		items = append(items, state.Achievements.Items...)
	}
	unlocked := []string{}
	bonus := 0
	have := &AchievementsAggregate{Items: items}
	for _, r := range achievementRules {
		if have.Has(r.code) || !r.unlocks(ev, current) {
			continue
		}
		have.Items = append(have.Items, r.code)
		unlocked = append(unlocked, r.code)
		bonus += r.bonus
	}
	total += bonus

	next := State{
		Points: &PointsAggregate{
			UserID:    ev.UserID,
			Points:    total,
			UpdatedAt: now,
		},
		Streak: &StreakAggregate{
			UserID:    ev.UserID,
			Current:   current,
			Best:      best,
			LastDate:  &lastDate,
			UpdatedAt: now,
		},
		Achievements: &AchievementsAggregate{
			UserID:    ev.UserID,
			Items:     have.Items,
			UpdatedAt: now,
		},
	}

	return next, Result{
		PointsToAdd:   award,
		BonusPoints:   bonus,
		TotalPoints:   total,
		CurrentStreak: current,
		BestStreak:    best,
		UnlockedNow:   unlocked,
	}, nil
}

func lastDateOf(s *StreakAggregate) string {
	if s.LastDate == nil {
		return ""
	}
	return *s.LastDate
}

// previousDay expects a date already validated against DateLayout.
func previousDay(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, -1).Format(DateLayout)
}
