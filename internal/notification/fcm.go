package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	notiftypes "mealTrackAPI/internal/types/notification"
)

var ErrAllPushesFailed = errors.New("all push notifications failed")

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FCMService struct {
	client messageSender
	logger *slog.Logger
}

func NewFCMService(ctx context.Context, app *firebase.App, logger *slog.Logger) (*FCMService, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &FCMService{client: client, logger: logger}, nil
}

// SendPush sends one message per token. The batch endpoint is not used.
func (s *FCMService) SendPush(ctx context.Context, tokens []notiftypes.DeviceToken, title, body string, data map[string]any) error {
	if len(tokens) == 0 {
		return nil
	}

	stringData := make(map[string]string, len(data))
	for k, v := range data {
		stringData[k] = fmt.Sprintf("%v", v)
	}

	successCount, failureCount := 0, 0
	for _, t := range tokens {
		message := &messaging.Message{
			Token: t.Token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: stringData,
		}
		switch t.Platform {
		case "ios":
			message.APNS = &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
			}
		case "web":
		default:
			message.Android = &messaging.AndroidConfig{
				Priority:     "high",
				Notification: &messaging.AndroidNotification{Sound: "default"},
			}
		}

		if _, err := s.client.Send(ctx, message); err != nil {
			s.logger.Warn("fcm send failed", "platform", t.Platform, "error", err)
			failureCount++
			continue
		}
		successCount++
	}

	s.logger.Debug("fcm batch finished", "sent", successCount, "failed", failureCount)
	if successCount == 0 && failureCount > 0 {
		return ErrAllPushesFailed
	}
	return nil
}
