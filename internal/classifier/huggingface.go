package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// HuggingFace calls the hosted inference API. One client serves every model
// role; Labeler and Captioner bind it to a model id or a full endpoint URL.
type HuggingFace struct {
	httpClient *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
}

func NewHuggingFace(baseURL, token string, timeout time.Duration) *HuggingFace {
	return &HuggingFace{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		timeout:    timeout,
	}
}

func (h *HuggingFace) Labeler(model string) Labeler {
	return LabelerFunc(func(ctx context.Context, image []byte) ([]Label, error) {
		raw, err := h.infer(ctx, model, image)
		if err != nil {
			return nil, err
		}
		var labels []Label
		if err := json.Unmarshal(raw, &labels); err != nil {
			return nil, fmt.Errorf("failed to decode %s labels: %w", model, err)
		}
		return labels, nil
	})
}

func (h *HuggingFace) Captioner(model string) Captioner {
	return CaptionerFunc(func(ctx context.Context, image []byte) (string, error) {
		raw, err := h.infer(ctx, model, image)
		if err != nil {
			return "", err
		}
		var captions []struct {
			GeneratedText string `json:"generated_text"`
		}
		if err := json.Unmarshal(raw, &captions); err != nil {
			return "", fmt.Errorf("failed to decode %s caption: %w", model, err)
		}
		if len(captions) == 0 {
			return "", nil
		}
		return captions[0].GeneratedText, nil
	})
}

func (h *HuggingFace) endpoint(model string) string {
	if isURL(model) {
		return model
	}
	return h.baseURL + "/" + model
}

func (h *HuggingFace) infer(ctx context.Context, model string, image []byte) ([]byte, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint(model), bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", model, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, model, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %v", ErrUpstream, model, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d: %s", ErrUpstream, model, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
