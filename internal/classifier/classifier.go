package classifier

import (
	"context"
	"errors"
	"strings"
)

// ErrUpstream marks a failed call to an external model (non-2xx, unreachable).
var ErrUpstream = errors.New("classifier upstream failure")

// Label is one ranked prediction returned by an image classifier.
type Label struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Labeler interface {
	Classify(ctx context.Context, image []byte) ([]Label, error)
}

type Captioner interface {
	Caption(ctx context.Context, image []byte) (string, error)
}

// LabelerFunc adapts a function to the Labeler interface.
type LabelerFunc func(ctx context.Context, image []byte) ([]Label, error)

func (f LabelerFunc) Classify(ctx context.Context, image []byte) ([]Label, error) {
	return f(ctx, image)
}

// CaptionerFunc adapts a function to the Captioner interface.
type CaptionerFunc func(ctx context.Context, image []byte) (string, error)

func (f CaptionerFunc) Caption(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

func isURL(model string) bool {
	return strings.HasPrefix(model, "http://") || strings.HasPrefix(model, "https://")
}
