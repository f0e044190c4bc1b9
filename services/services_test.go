package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"mealTrackAPI/internal/store"
	"mealTrackAPI/internal/types/notification"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []notification.AchievementJob
}

func (r *recordingNotifier) NotifyAchievements(job notification.AchievementJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

// failingStore rejects every write while delegating reads.
type failingStore struct {
	*store.MemoryStore
	err error
}

func (f *failingStore) Set(ctx context.Context, collection, id string, doc any) error {
	return f.err
}

func (f *failingStore) Get(ctx context.Context, collection, id string, dst any) error {
	return f.err
}

func (f *failingStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return f.err
}

type pushCall struct {
	tokens []notification.DeviceToken
	title  string
	body   string
	data   map[string]any
}

type fakePushProvider struct {
	mu    sync.Mutex
	calls []pushCall
	err   error
}

func (f *fakePushProvider) SendPush(_ context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushCall{tokens: tokens, title: title, body: body, data: data})
	return f.err
}
