package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RecognitionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognition_requests_total",
			Help: "Total number of meal photo recognition requests",
		},
		[]string{"mode"},
	)
	RecognitionFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognition_fallbacks_total",
			Help: "Recognition requests answered with the fixed fallback plate",
		},
		[]string{"stage"},
	)
	ClassifierDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classifier_call_duration_seconds",
			Help:    "Duration of external classifier calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"stage"},
	)
	GamificationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_events_total",
			Help: "Meal events applied to gamification state",
		},
		[]string{"source"},
	)
	AchievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Achievements unlocked by code",
		},
		[]string{"code"},
	)
	PushNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_total",
			Help: "Achievement push notifications by outcome",
		},
		[]string{"outcome"},
	)
)

// Register adds the domain collectors to reg. Call this from main.go.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RecognitionRequests,
		RecognitionFallbacks,
		ClassifierDuration,
		GamificationEvents,
		AchievementsUnlocked,
		PushNotifications,
	)
}
