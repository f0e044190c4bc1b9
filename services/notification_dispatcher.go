package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mealTrackAPI/internal/gamification"
	"mealTrackAPI/internal/metrics"
	"mealTrackAPI/internal/types/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

var achievementMessages = map[string]string{
	gamification.AchievementFirstMeal:      "You logged your first meal!",
	gamification.AchievementFirstPhotoMeal: "You logged your first meal from a photo!",
	gamification.AchievementStreak7:        "7 days in a row! +100 bonus points",
	gamification.AchievementStreak30:       "30 days in a row! +300 bonus points",
}

// NotificationDispatcher sends achievement pushes from a small worker pool so
// that request handlers never wait on FCM.
type NotificationDispatcher struct {
	devices      *NotificationService
	pushProvider PushNotificationProvider
	logger       *slog.Logger
	workers      int
	jobQueue     chan notification.AchievementJob
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewNotificationDispatcher(devices *NotificationService, workers int, logger *slog.Logger) *NotificationDispatcher {
	if workers <= 0 {
		workers = 1
	}
	d := &NotificationDispatcher{
		devices:  devices,
		logger:   logger,
		workers:  workers,
		jobQueue: make(chan notification.AchievementJob, 100),
		stopChan: make(chan struct{}),
	}
	d.startWorkers()
	return d
}

// Allow injecting the real FCM provider from main.go
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			// drain what was queued before shutdown
			for {
				select {
				case job := <-d.jobQueue:
					d.processJob(job)
				default:
					return
				}
			}
		}
	}
}

// NotifyAchievements queues a job without blocking. The job is dropped when
// the queue is full.
func (d *NotificationDispatcher) NotifyAchievements(job notification.AchievementJob) {
	select {
	case d.jobQueue <- job:
	default:
		metrics.PushNotifications.WithLabelValues("dropped").Inc()
		d.logger.Warn("achievement push dropped: queue full", "user_id", job.UserID)
	}
}

func (d *NotificationDispatcher) processJob(job notification.AchievementJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if d.pushProvider == nil {
		metrics.PushNotifications.WithLabelValues("skipped").Inc()
		d.logger.Debug("skipping push: no provider", "user_id", job.UserID, "achievements", job.Achievements)
		return
	}

	tokens, err := d.devices.DeviceTokens(ctx, job.UserID)
	if err != nil {
		metrics.PushNotifications.WithLabelValues("failed").Inc()
		d.logger.Error("failed to load device tokens", "user_id", job.UserID, "error", err)
		return
	}
	if len(tokens) == 0 {
		metrics.PushNotifications.WithLabelValues("skipped").Inc()
		return
	}

	for _, code := range job.Achievements {
		body, ok := achievementMessages[code]
		if !ok {
			body = code
		}
		data := map[string]any{
			"type":        "achievement",
			"code":        code,
			"totalPoints": job.TotalPoints,
		}
		if err := d.pushProvider.SendPush(ctx, tokens, "Achievement unlocked", body, data); err != nil {
			metrics.PushNotifications.WithLabelValues("failed").Inc()
			d.logger.Warn("achievement push failed", "user_id", job.UserID, "code", code, "error", err)
			continue
		}
		metrics.PushNotifications.WithLabelValues("sent").Inc()
	}
}

// Stop the dispatcher gracefully
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("stopping notification dispatcher")
		close(d.stopChan)
		d.wg.Wait()
		d.logger.Info("notification dispatcher stopped")
	})
}
