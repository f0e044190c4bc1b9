package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notiftypes "mealTrackAPI/internal/types/notification"
)

type fakeSender struct {
	sent []*messaging.Message
	fail map[string]bool
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	if f.fail[m.Token] {
		return "", errors.New("unregistered")
	}
	f.sent = append(f.sent, m)
	return "msg-" + m.Token, nil
}

func newTestFCM(sender *fakeSender) *FCMService {
	return &FCMService{client: sender, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSendPushPerPlatform(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestFCM(sender)

	err := svc.SendPush(context.Background(), []notiftypes.DeviceToken{
		{Token: "a", Platform: "android"},
		{Token: "i", Platform: "ios"},
	}, "Achievement unlocked", "body", map[string]any{"totalPoints": 110})
	require.NoError(t, err)

	require.Len(t, sender.sent, 2)
	assert.NotNil(t, sender.sent[0].Android)
	assert.Nil(t, sender.sent[0].APNS)
	assert.NotNil(t, sender.sent[1].APNS)
	assert.Equal(t, "110", sender.sent[0].Data["totalPoints"])
}

func TestSendPushPartialAndTotalFailure(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{"bad": true}}
	svc := newTestFCM(sender)

	err := svc.SendPush(context.Background(), []notiftypes.DeviceToken{{Token: "bad"}, {Token: "good"}}, "t", "b", nil)
	assert.NoError(t, err)

	err = svc.SendPush(context.Background(), []notiftypes.DeviceToken{{Token: "bad"}}, "t", "b", nil)
	assert.ErrorIs(t, err, ErrAllPushesFailed)
}

func TestSendPushNoTokens(t *testing.T) {
	sender := &fakeSender{}
	assert.NoError(t, newTestFCM(sender).SendPush(context.Background(), nil, "t", "b", nil))
	assert.Empty(t, sender.sent)
}
