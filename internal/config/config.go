package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig
	Logging  LoggingConfig
	Store    StoreConfig
	Firebase FirebaseConfig
	Auth     AuthConfig
	Vision   VisionConfig
	Push     PushConfig
}

type HTTPConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	MetricsUser     string
	MetricsPass     string
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // text|json
}

type StoreConfig struct {
	Driver      string // memory|firestore|postgres|sqlite
	DatabaseURL string
	SQLitePath  string
}

type FirebaseConfig struct {
	ProjectID string
	// Base64 encoded service account JSON. Takes precedence over CredentialsFile.
	ServiceAccountJSON string
	CredentialsFile    string
}

type AuthConfig struct {
	Provider       string // firebase|clerk
	ClerkSecretKey string
}

// VisionConfig selects and configures the meal photo recognition pipeline.
type VisionConfig struct {
	Provider     string // mock|live
	Validator    string // huggingface|rekognition
	HFToken      string
	HFBaseURL    string
	FoodModel    string
	VitModel     string
	CaptionModel string
	AWSRegion    string
	Timeout      time.Duration
	CacheTTL     time.Duration
}

type PushConfig struct {
	Enabled bool
	Workers int
}

const (
	VisionMock = "mock"
	VisionLive = "live"

	ValidatorHuggingFace = "huggingface"
	ValidatorRekognition = "rekognition"

	AuthFirebase = "firebase"
	AuthClerk    = "clerk"
)

const (
	defaultPort            = "3333"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 45 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultVisionTimeout   = 20 * time.Second
	defaultVisionCacheTTL  = 10 * time.Minute
	defaultHFBaseURL       = "https://api-inference.huggingface.co/models"
	defaultFoodModel       = "nateraw/food101"
	defaultVitModel        = "google/vit-base-patch16-224"
	defaultCaptionModel    = "Salesforce/blip-image-captioning-base"
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Port:           valueOrDefault("PORT", defaultPort),
			RateLimitRPS:   parseFloatWithDefault("RATE_LIMIT_RPS", 5),
			RateLimitBurst: parseIntWithDefault("RATE_LIMIT_BURST", 30),
			MetricsUser:    os.Getenv("METRICS_USER"),
			MetricsPass:    os.Getenv("METRICS_PASS"),
		},
		Logging: LoggingConfig{
			Level:  valueOrDefault("LOG_LEVEL", "info"),
			Format: valueOrDefault("LOG_FORMAT", "text"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(valueOrDefault("STORE_DRIVER", "memory")),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			SQLitePath:  valueOrDefault("SQLITE_PATH", "mealtrack.db"),
		},
		Firebase: FirebaseConfig{
			ProjectID:          os.Getenv("FIREBASE_PROJECT_ID"),
			ServiceAccountJSON: os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"),
			CredentialsFile:    os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		},
		Auth: AuthConfig{
			Provider:       strings.ToLower(valueOrDefault("AUTH_PROVIDER", AuthFirebase)),
			ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),
		},
		Vision: VisionConfig{
			Provider:     strings.ToLower(valueOrDefault("VISION_PROVIDER", VisionMock)),
			Validator:    strings.ToLower(valueOrDefault("VISION_VALIDATOR", ValidatorHuggingFace)),
			HFToken:      os.Getenv("HUGGINGFACE_API_TOKEN"),
			HFBaseURL:    strings.TrimRight(valueOrDefault("HF_API_BASE_URL", defaultHFBaseURL), "/"),
			FoodModel:    firstNonEmpty(os.Getenv("HF_FOOD_MODEL"), os.Getenv("HF_FOOD_MODEL_URL"), defaultFoodModel),
			VitModel:     firstNonEmpty(os.Getenv("HF_VIT_MODEL"), os.Getenv("HF_VIT_MODEL_URL"), defaultVitModel),
			CaptionModel: firstNonEmpty(os.Getenv("HF_CAPTION_MODEL"), os.Getenv("HF_CAPTION_MODEL_URL"), defaultCaptionModel),
			AWSRegion:    valueOrDefault("AWS_REGION", "us-east-1"),
		},
		Push: PushConfig{
			Enabled: parseBoolWithDefault("PUSH_ENABLED", true),
			Workers: parseIntWithDefault("PUSH_WORKERS", 5),
		},
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"VISION_TIMEOUT", defaultVisionTimeout, &cfg.Vision.Timeout},
		{"VISION_CACHE_TTL", defaultVisionCacheTTL, &cfg.Vision.CacheTTL},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "memory", "firestore", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
	}

	switch c.Auth.Provider {
	case AuthFirebase:
	case AuthClerk:
		if c.Auth.ClerkSecretKey == "" {
			return fmt.Errorf("CLERK_SECRET_KEY is required when AUTH_PROVIDER=clerk")
		}
	default:
		return fmt.Errorf("invalid AUTH_PROVIDER %q", c.Auth.Provider)
	}

	switch c.Vision.Provider {
	case VisionMock, VisionLive:
	default:
		return fmt.Errorf("invalid VISION_PROVIDER %q", c.Vision.Provider)
	}
	switch c.Vision.Validator {
	case ValidatorHuggingFace, ValidatorRekognition:
	default:
		return fmt.Errorf("invalid VISION_VALIDATOR %q", c.Vision.Validator)
	}
	if c.Vision.Timeout <= 0 {
		return fmt.Errorf("VISION_TIMEOUT must be positive")
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
