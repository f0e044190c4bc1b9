package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealTrackAPI/internal/classifier"
	"mealTrackAPI/internal/config"
	"mealTrackAPI/internal/nutrition"
	"mealTrackAPI/internal/types/recognition"
)

func staticLabels(labels ...classifier.Label) classifier.Labeler {
	return classifier.LabelerFunc(func(context.Context, []byte) ([]classifier.Label, error) {
		return labels, nil
	})
}

func staticCaption(text string) classifier.Captioner {
	return classifier.CaptionerFunc(func(context.Context, []byte) (string, error) {
		return text, nil
	})
}

func failingLabeler(err error) classifier.Labeler {
	return classifier.LabelerFunc(func(context.Context, []byte) ([]classifier.Label, error) {
		return nil, err
	})
}

func labelsOf(items []recognition.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func TestMockRecognition(t *testing.T) {
	svc := NewRecognitionService(config.VisionMock, Classifiers{}, 0, testLogger())
	res := svc.RecognizeImage(context.Background(), []byte("img"))

	assert.True(t, res.Success)
	assert.False(t, res.Fallback)
	assert.Equal(t, "prato com arroz e frango", res.Caption)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Frango grelhado", res.Items[0].Label)
	assert.Equal(t, nutrition.Grilled, res.Items[0].Preparation)
	assert.Equal(t, 150.0, res.Items[0].EstimatedServing)
	assert.Equal(t, "Arroz branco", res.Items[1].Label)
	assert.Equal(t, nutrition.Boiled, res.Items[1].Preparation)
	assert.Nil(t, res.Items[0].Confidence)

	// 165*1.5*1.15 + 130*1.2
	assert.InDelta(t, 284.625+156, res.TotalCalories, 1e-9)
	assert.InDelta(t, 31*1.5*1.15+2.7*1.2, res.TotalProtein, 1e-9)
}

func TestLiveRecognitionFusion(t *testing.T) {
	svc := NewRecognitionService(config.VisionLive, Classifiers{
		Primary: staticLabels(
			classifier.Label{Label: "fried_rice", Score: 0.8},
			classifier.Label{Label: "sushi", Score: 0.1},
		),
		Validator: staticLabels(classifier.Label{Label: "rice", Score: 0.4}),
		Captioner: staticCaption("a plate of fried rice with grilled chicken."),
	}, 0, testLogger())

	res := svc.RecognizeImage(context.Background(), []byte("img"))
	assert.True(t, res.Success)
	assert.False(t, res.Fallback)
	assert.Equal(t, "a plate of fried rice with grilled chicken.", res.Caption)
	assert.Equal(t, []string{"fried rice", "rice", "chicken"}, labelsOf(res.Items))

	fried := res.Items[0]
	require.NotNil(t, fried.Confidence)
	assert.Equal(t, 0.8, *fried.Confidence)
	assert.Equal(t, nutrition.Fried, fried.Preparation)
	assert.Equal(t, 120.0, fried.EstimatedServing)
	assert.Equal(t, "g", fried.ServingUnit)
	assert.InDelta(t, 130*1.2*1.35, fried.Nutrition.Calories, 1e-9)

	chicken := res.Items[2]
	assert.Equal(t, 0.5, *chicken.Confidence)
	assert.Equal(t, nutrition.Boiled, chicken.Preparation)
	// unknown to the reference table keys, so rice baseline applies
	assert.InDelta(t, 130*1.5, chicken.Nutrition.Calories, 1e-9)

	var sum float64
	for _, it := range res.Items {
		sum += it.Nutrition.Calories
	}
	assert.InDelta(t, sum, res.TotalCalories, 1e-9)
}

func TestLiveRecognitionNoValidatedItems(t *testing.T) {
	svc := NewRecognitionService(config.VisionLive, Classifiers{
		Primary:   staticLabels(classifier.Label{Label: "sushi", Score: 0.9}),
		Validator: staticLabels(classifier.Label{Label: "plate", Score: 0.9}),
		Captioner: staticCaption(""),
	}, 0, testLogger())

	res := svc.RecognizeImage(context.Background(), nil)
	assert.True(t, res.Success)
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Items)
	assert.Equal(t, nutrition.Totals{}, res.Totals)
}

func TestLiveRecognitionFallsBackOnAnyStageFailure(t *testing.T) {
	boom := errors.New("503")
	ok := staticLabels(classifier.Label{Label: "rice", Score: 1})
	cases := map[string]Classifiers{
		"primary":   {Primary: failingLabeler(boom), Validator: ok, Captioner: staticCaption("rice")},
		"validator": {Primary: ok, Validator: failingLabeler(boom), Captioner: staticCaption("rice")},
		"captioner": {Primary: ok, Validator: ok, Captioner: classifier.CaptionerFunc(func(context.Context, []byte) (string, error) {
			return "", boom
		})},
	}
	for name, models := range cases {
		t.Run(name, func(t *testing.T) {
			res := NewRecognitionService(config.VisionLive, models, 0, testLogger()).RecognizeImage(context.Background(), []byte("img"))
			assert.True(t, res.Fallback)
			assert.True(t, res.Success)
			assert.Equal(t, "prato com arroz e frango", res.Caption)
			assert.Len(t, res.Items, 2)
		})
	}
}

func TestLiveRecognitionFailureCancelsSiblings(t *testing.T) {
	slow := classifier.LabelerFunc(func(ctx context.Context, _ []byte) ([]classifier.Label, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return nil, nil
		}
	})
	svc := NewRecognitionService(config.VisionLive, Classifiers{
		Primary:   slow,
		Validator: failingLabeler(errors.New("down")),
		Captioner: staticCaption("rice"),
	}, 0, testLogger())

	start := time.Now()
	res := svc.RecognizeImage(context.Background(), nil)
	assert.True(t, res.Fallback)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLiveRecognitionCachesSuccessfulResults(t *testing.T) {
	var calls atomic.Int32
	primary := classifier.LabelerFunc(func(context.Context, []byte) ([]classifier.Label, error) {
		calls.Add(1)
		return []classifier.Label{{Label: "omelette_egg", Score: 0.7}}, nil
	})
	svc := NewRecognitionService(config.VisionLive, Classifiers{
		Primary:   primary,
		Validator: staticLabels(classifier.Label{Label: "egg", Score: 0.5}),
		Captioner: staticCaption("an egg"),
	}, time.Minute, testLogger())

	first := svc.RecognizeImage(context.Background(), []byte("same"))
	second := svc.RecognizeImage(context.Background(), []byte("same"))
	svc.RecognizeImage(context.Background(), []byte("other"))

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"omelette egg", "egg"}, labelsOf(first.Items))
}

func TestNormalizeLabelsReplacesEveryUnderscore(t *testing.T) {
	got := NormalizeLabels([]classifier.Label{{Label: "chicken_quesadilla_plate", Score: 0.3}})
	assert.Equal(t, []recognition.Candidate{{Label: "chicken quesadilla plate", Confidence: 0.3}}, got)
}

func TestCrossValidateSubstringEitherWay(t *testing.T) {
	candidates := []recognition.Candidate{{Label: "Fried Rice"}, {Label: "egg"}, {Label: "steak"}}
	validator := []classifier.Label{{Label: "rice"}, {Label: "scrambled egg"}}

	kept := CrossValidate(candidates, validator)
	assert.Equal(t, []recognition.Candidate{{Label: "Fried Rice"}, {Label: "egg"}}, kept)
}

func TestFuseCandidatesDedupLastValueWins(t *testing.T) {
	validated := []recognition.Candidate{
		{Label: "Rice", Confidence: 0.9},
		{Label: "chicken curry", Confidence: 0.6},
	}
	fused := FuseCandidates(validated, "Some rice, and an EGG on pasta")

	assert.Equal(t, []recognition.Candidate{
		{Label: "rice", Confidence: 0.5},
		{Label: "chicken curry", Confidence: 0.6},
		{Label: "EGG", Confidence: 0.5},
		{Label: "pasta", Confidence: 0.5},
	}, fused)
}

func TestFuseCandidatesPunctuatedCaptionWordMergesWithLabel(t *testing.T) {
	validated := []recognition.Candidate{
		{Label: "chicken", Confidence: 0.8},
		{Label: "salad", Confidence: 0.7},
	}
	fused := FuseCandidates(validated, "grilled chicken. (Salad)")

	assert.Equal(t, []recognition.Candidate{
		{Label: "chicken", Confidence: 0.5},
		{Label: "Salad", Confidence: 0.5},
	}, fused)
}

func TestFuseCandidatesEmpty(t *testing.T) {
	assert.Empty(t, FuseCandidates(nil, ""))
}
