package firebaseapp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"mealTrackAPI/internal/config"
)

var ErrNoCredentials = errors.New("firebase credentials not configured")

// New initializes the shared Firebase app. Credentials are resolved from the
// base64 encoded FIREBASE_SERVICE_ACCOUNT_JSON first, then the credentials
// file, then application default credentials when a project id is set.
func New(ctx context.Context, cfg config.FirebaseConfig, logger *slog.Logger) (*firebase.App, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	logger.Info("firebase app initialized", "project_id", cfg.ProjectID, "credentials", credentialSource(cfg))
	return app, nil
}

func clientOptions(cfg config.FirebaseConfig) ([]option.ClientOption, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.ServiceAccountJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials from FIREBASE_SERVICE_ACCOUNT_JSON: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsJSON(decoded)}, nil
	case cfg.CredentialsFile != "":
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s: %w", cfg.CredentialsFile, err)
		}
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, nil
	case cfg.ProjectID != "":
		return nil, nil
	default:
		return nil, ErrNoCredentials
	}
}

func credentialSource(cfg config.FirebaseConfig) string {
	switch {
	case cfg.ServiceAccountJSON != "":
		return "env"
	case cfg.CredentialsFile != "":
		return "file"
	default:
		return "adc"
	}
}
