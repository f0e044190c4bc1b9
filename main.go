package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mealTrackAPI/handlers"
	"mealTrackAPI/internal/classifier"
	"mealTrackAPI/internal/config"
	"mealTrackAPI/internal/firebaseapp"
	"mealTrackAPI/internal/logging"
	"mealTrackAPI/internal/metrics"
	"mealTrackAPI/internal/notification"
	"mealTrackAPI/internal/store"
	"mealTrackAPI/middleware"
	"mealTrackAPI/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Firebase is optional unless the store or auth provider needs it.
	app, err := firebaseapp.New(ctx, cfg.Firebase, logger)
	if err != nil {
		if !errors.Is(err, firebaseapp.ErrNoCredentials) {
			return err
		}
		logger.Warn("firebase disabled", "reason", err)
		app = nil
	}

	st, err := openStore(ctx, cfg.Store, app, logger)
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("closing store")
		if err := st.Close(); err != nil {
			logger.Error("store close failed", "error", err)
		}
	}()

	verifier, err := newVerifier(ctx, cfg.Auth, app)
	if err != nil {
		return err
	}

	recognitionService, err := newRecognitionService(ctx, cfg.Vision, logger)
	if err != nil {
		return err
	}

	notificationService := services.NewNotificationService(st, logger)
	dispatcher := services.NewNotificationDispatcher(notificationService, cfg.Push.Workers, logger)
	defer dispatcher.Stop()

	if cfg.Push.Enabled && app != nil {
		fcmService, err := notification.NewFCMService(ctx, app, logger)
		if err != nil {
			logger.Warn("could not initialize FCM", "error", err)
		} else {
			dispatcher.SetPushProvider(fcmService)
			logger.Info("FCM push provider initialized")
		}
	}

	gamificationService := services.NewGamificationService(st, logger)
	gamificationService.SetAchievementNotifier(dispatcher)
	mealService := services.NewMealService(st, gamificationService, logger)

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	metrics.Register(prometheus.DefaultRegisterer)

	imageHandler := handlers.NewImageHandler(recognitionService)
	mealHandler := handlers.NewMealHandler(mealService)
	gamificationHandler := handlers.NewGamificationHandler(gamificationService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	healthHandler := handlers.NewHealthHandler(st)

	rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	go rateLimiter.CleanupVisitors(ctx)

	r := mux.NewRouter()
	r.Use(rateLimiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.HTTP.MetricsUser, cfg.HTTP.MetricsPass)(promhttp.Handler()))
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(verifier, logger))

	protected.HandleFunc("/image/recognize", imageHandler.Recognize).Methods("POST")

	protected.HandleFunc("/user/meals", mealHandler.CreateMeal).Methods("POST")
	protected.HandleFunc("/user/meals", mealHandler.ListMeals).Methods("GET")
	protected.HandleFunc("/user/insights", mealHandler.GetInsights).Methods("GET")

	protected.HandleFunc("/gamification/summary", gamificationHandler.GetMySummary).Methods("GET")
	protected.HandleFunc("/gamification/{userId}/summary", gamificationHandler.GetUserSummary).Methods("GET")

	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.HTTP.Port, "vision", cfg.Vision.Provider, "store", cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, app *firebase.App, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case store.DriverFirestore:
		if app == nil {
			return nil, errors.New("STORE_DRIVER=firestore requires firebase credentials")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		return store.NewFirestoreStore(client), nil
	case store.DriverPostgres:
		return store.NewPostgresStore(ctx, cfg.DatabaseURL, logger)
	case store.DriverSQLite:
		return store.NewSQLiteStore(cfg.SQLitePath)
	default:
		logger.Warn("using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, app *firebase.App) (middleware.TokenVerifier, error) {
	if cfg.Provider == config.AuthClerk {
		return middleware.NewClerkVerifier(cfg.ClerkSecretKey), nil
	}
	if app == nil {
		return nil, errors.New("AUTH_PROVIDER=firebase requires firebase credentials")
	}
	return middleware.NewFirebaseVerifier(ctx, app)
}

func newRecognitionService(ctx context.Context, cfg config.VisionConfig, logger *slog.Logger) (*services.RecognitionService, error) {
	if cfg.Provider != config.VisionLive {
		return services.NewRecognitionService(config.VisionMock, services.Classifiers{}, 0, logger), nil
	}

	hf := classifier.NewHuggingFace(cfg.HFBaseURL, cfg.HFToken, cfg.Timeout)
	models := services.Classifiers{
		Primary:   hf.Labeler(cfg.FoodModel),
		Validator: hf.Labeler(cfg.VitModel),
		Captioner: hf.Captioner(cfg.CaptionModel),
	}
	if cfg.Validator == config.ValidatorRekognition {
		rek, err := classifier.NewRekognition(ctx, cfg.AWSRegion, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		models.Validator = rek
	}
	if cfg.HFToken == "" {
		logger.Warn("HUGGINGFACE_API_TOKEN is empty; live recognition will likely fall back")
	}
	return services.NewRecognitionService(config.VisionLive, models, cfg.CacheTTL, logger), nil
}
