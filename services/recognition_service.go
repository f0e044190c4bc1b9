package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"mealTrackAPI/internal/classifier"
	"mealTrackAPI/internal/config"
	"mealTrackAPI/internal/metrics"
	"mealTrackAPI/internal/nutrition"
	"mealTrackAPI/internal/types/recognition"
)

const (
	stagePrimary   = "primary"
	stageValidator = "validator"
	stageCaptioner = "captioner"

	captionConfidence = 0.5
	mockCaption       = "prato com arroz e frango"
)

var captionFoodPattern = regexp.MustCompile(`(?i)rice|chicken|salad|egg|pasta`)

// Classifiers bundles the three external models used in live mode.
type Classifiers struct {
	Primary   classifier.Labeler
	Validator classifier.Labeler
	Captioner classifier.Captioner
}

type RecognitionService struct {
	mode   string
	models Classifiers
	cache  *cache.Cache
	logger *slog.Logger
}

// NewRecognitionService builds the recognition pipeline. A cacheTTL of zero
// disables result caching.
func NewRecognitionService(mode string, models Classifiers, cacheTTL time.Duration, logger *slog.Logger) *RecognitionService {
	s := &RecognitionService{
		mode:   mode,
		models: models,
		logger: logger,
	}
	if cacheTTL > 0 {
		s.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return s
}

type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// RecognizeImage never fails: any live pipeline error yields the fixed
// fallback plate with Fallback set.
func (s *RecognitionService) RecognizeImage(ctx context.Context, image []byte) recognition.Result {
	metrics.RecognitionRequests.WithLabelValues(s.mode).Inc()
	if s.mode != config.VisionLive {
		return MockRecognition()
	}

	key := imageKey(image)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached.(recognition.Result)
		}
	}

	result, err := s.recognizeLive(ctx, image)
	if err != nil {
		stage := "unknown"
		var se *stageError
		if errors.As(err, &se) {
			stage = se.stage
		}
		metrics.RecognitionFallbacks.WithLabelValues(stage).Inc()
		s.logger.Warn("recognition fell back to mock plate", "stage", stage, "error", err)

		fallback := MockRecognition()
		fallback.Fallback = true
		return fallback
	}

	if s.cache != nil {
		s.cache.Set(key, result, cache.DefaultExpiration)
	}
	return result
}

func (s *RecognitionService) recognizeLive(ctx context.Context, image []byte) (recognition.Result, error) {
	var (
		primary   []classifier.Label
		validator []classifier.Label
		caption   string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		labels, err := timedClassify(gctx, stagePrimary, s.models.Primary, image)
		primary = labels
		return err
	})
	g.Go(func() error {
		labels, err := timedClassify(gctx, stageValidator, s.models.Validator, image)
		validator = labels
		return err
	})
	g.Go(func() error {
		start := time.Now()
		text, err := s.models.Captioner.Caption(gctx, image)
		metrics.ClassifierDuration.WithLabelValues(stageCaptioner).Observe(time.Since(start).Seconds())
		if err != nil {
			return &stageError{stage: stageCaptioner, err: err}
		}
		caption = text
		return nil
	})
	if err := g.Wait(); err != nil {
		return recognition.Result{}, err
	}

	candidates := FuseCandidates(CrossValidate(NormalizeLabels(primary), validator), caption)
	items := make([]recognition.Item, 0, len(candidates))
	for _, c := range candidates {
		confidence := c.Confidence
		items = append(items, enrichItem(c.Label, &confidence))
	}

	return recognition.Result{
		Success: true,
		Caption: caption,
		Items:   items,
		Totals:  totalsOf(items),
	}, nil
}

func timedClassify(ctx context.Context, stage string, l classifier.Labeler, image []byte) ([]classifier.Label, error) {
	start := time.Now()
	labels, err := l.Classify(ctx, image)
	metrics.ClassifierDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &stageError{stage: stage, err: err}
	}
	return labels, nil
}

// NormalizeLabels replaces underscores with spaces in classifier labels.
func NormalizeLabels(labels []classifier.Label) []recognition.Candidate {
	out := make([]recognition.Candidate, 0, len(labels))
	for _, l := range labels {
		out = append(out, recognition.Candidate{
			Label:      strings.ReplaceAll(l.Label, "_", " "),
			Confidence: l.Score,
		})
	}
	return out
}

// CrossValidate keeps the candidates that share a substring relation with at
// least one validator label, case-insensitively.
func CrossValidate(candidates []recognition.Candidate, validator []classifier.Label) []recognition.Candidate {
	kept := make([]recognition.Candidate, 0, len(candidates))
	for _, c := range candidates {
		for _, v := range validator {
			if similar(c.Label, v.Label) {
				kept = append(kept, c)
				break
			}
		}
	}
	return kept
}

func similar(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// FuseCandidates appends caption food words and deduplicates by lower-cased
// label. A duplicate keeps the position of its first occurrence and the value
// of its last.
func FuseCandidates(validated []recognition.Candidate, caption string) []recognition.Candidate {
	combined := append([]recognition.Candidate(nil), validated...)
	for _, word := range strings.Fields(caption) {
		if !captionFoodPattern.MatchString(word) {
			continue
		}
		label := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		combined = append(combined, recognition.Candidate{Label: label, Confidence: captionConfidence})
	}

	index := make(map[string]int, len(combined))
	fused := make([]recognition.Candidate, 0, len(combined))
	for _, c := range combined {
		key := strings.ToLower(c.Label)
		if i, ok := index[key]; ok {
			fused[i] = c
			continue
		}
		index[key] = len(fused)
		fused = append(fused, c)
	}
	return fused
}

func enrichItem(label string, confidence *float64) recognition.Item {
	grams := nutrition.EstimatePortion(label)
	prep := nutrition.InferPreparation(label)
	return recognition.Item{
		Label:            label,
		Confidence:       confidence,
		Preparation:      prep,
		EstimatedServing: grams,
		ServingUnit:      recognition.ServingUnitGrams,
		Nutrition:        nutrition.CorrectNutrition(label, prep, grams),
	}
}

func totalsOf(items []recognition.Item) nutrition.Totals {
	macros := make([]nutrition.Macros, 0, len(items))
	for _, it := range items {
		macros = append(macros, it.Nutrition)
	}
	return nutrition.SumTotals(macros)
}

// MockRecognition is the fixed two-item plate served in mock mode and on
// fallback.
func MockRecognition() recognition.Result {
	items := []recognition.Item{
		mockItem("Frango grelhado", "frango", nutrition.Grilled, 150),
		mockItem("Arroz branco", "arroz", nutrition.Boiled, 120),
	}
	return recognition.Result{
		Success: true,
		Caption: mockCaption,
		Items:   items,
		Totals:  totalsOf(items),
	}
}

func mockItem(label, key string, prep nutrition.Preparation, grams float64) recognition.Item {
	return recognition.Item{
		Label:            label,
		Preparation:      prep,
		EstimatedServing: grams,
		ServingUnit:      recognition.ServingUnitGrams,
		Nutrition:        nutrition.CorrectNutrition(key, prep, grams),
	}
}

func imageKey(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
