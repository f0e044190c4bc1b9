package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

const (
	rekognitionMaxLabels     = 10
	rekognitionMinConfidence = 55
)

type detectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Rekognition is a general-purpose labeler backed by AWS DetectLabels.
type Rekognition struct {
	client  detectLabelsAPI
	timeout time.Duration
}

func NewRekognition(ctx context.Context, region string, timeout time.Duration) (*Rekognition, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &Rekognition{client: rekognition.NewFromConfig(cfg), timeout: timeout}, nil
}

// Classify returns the detected labels with confidence scaled to 0..1.
func (r *Rekognition) Classify(ctx context.Context, image []byte) ([]Label, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(rekognitionMaxLabels),
		MinConfidence: aws.Float32(rekognitionMinConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: rekognition: %v", ErrUpstream, err)
	}

	labels := make([]Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		if l.Name == nil {
			continue
		}
		labels = append(labels, Label{
			Label: *l.Name,
			Score: float64(aws.ToFloat32(l.Confidence)) / 100,
		})
	}
	return labels, nil
}
