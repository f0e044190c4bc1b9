package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mealTrackAPI/internal/store"
	"mealTrackAPI/internal/types/notification"
)

var ErrInvalidDevice = errors.New("invalid device registration")

var supportedPlatforms = map[string]bool{
	"android": true,
	"ios":     true,
	"web":     true,
}

type NotificationService struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewNotificationService(st store.Store, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterDevice adds a push token to the user's device list. Registering a
// known token again only updates its platform.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req notification.RegisterDeviceRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidDevice)
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform == "" {
		platform = "android"
	}
	if !supportedPlatforms[platform] {
		return fmt.Errorf("%w: unsupported platform %q", ErrInvalidDevice, req.Platform)
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		var devices notification.UserDevices
		if err := tx.Get(notification.CollectionDevices, userID, &devices); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		devices.UserID = userID
		devices.UpdatedAt = s.now().UTC()

		replaced := false
		for i := range devices.Tokens {
			if devices.Tokens[i].Token == token {
				devices.Tokens[i].Platform = platform
				replaced = true
				break
			}
		}
		if !replaced {
			devices.Tokens = append(devices.Tokens, notification.DeviceToken{Token: token, Platform: platform})
		}

		return tx.Set(notification.CollectionDevices, userID, devices)
	})
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}

	s.logger.Debug("device registered", "user_id", userID, "platform", platform)
	return nil
}

// DeviceTokens returns the registered push tokens of a user.
func (s *NotificationService) DeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	var devices notification.UserDevices
	if err := s.store.Get(ctx, notification.CollectionDevices, userID, &devices); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}
	return devices.Tokens, nil
}
