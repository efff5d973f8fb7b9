// Package vision wraps the HTTP vision backend that provides image embeddings
// and subject detection. Both capabilities live behind small interfaces so the
// scorer and validator can be tested without a running backend.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"consistency-server/internal/config"
	"consistency-server/internal/models"
)

// Embedder produces a visual embedding for an image.
type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float64, error)
	// Available probes the backend once; callers select the scoring strategy
	// based on the answer and never probe per request.
	Available(ctx context.Context) bool
}

// Detector finds subject (face/body) regions in an image.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]models.Region, error)
}

type embedRequest struct {
	Image string `json:"image"` // base64-encoded bytes
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Subjects []struct {
		X          int     `json:"x"`
		Y          int     `json:"y"`
		Width      int     `json:"width"`
		Height     int     `json:"height"`
		Confidence float64 `json:"confidence"`
		Kind       string  `json:"kind"`
	} `json:"subjects"`
}

// HTTPClient talks to the vision backend over plain HTTP.
type HTTPClient struct {
	embedBaseURL  string
	detectBaseURL string
	httpClient    *http.Client
	logger        *zap.Logger
}

var _ Embedder = (*HTTPClient)(nil)
var _ Detector = (*HTTPClient)(nil)

// NewHTTPClient builds a client from the vision configuration.
func NewHTTPClient(cfg config.VisionConfig, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		embedBaseURL:  cfg.EmbedBaseURL,
		detectBaseURL: cfg.DetectBaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
		logger: logger.Named("VisionClient"),
	}
}

// Available reports whether the embedding backend answers its health probe.
func (c *HTTPClient) Available(ctx context.Context) bool {
	if c.embedBaseURL == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.embedBaseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Embedding backend health probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// Embed sends the image to the embedding endpoint and returns the vector.
func (c *HTTPClient) Embed(ctx context.Context, image []byte) ([]float64, error) {
	if c.embedBaseURL == "" {
		return nil, models.ErrBackendUnavailable
	}

	var out embedResponse
	err := c.post(ctx, c.embedBaseURL+"/embed", embedRequest{Image: base64.StdEncoding.EncodeToString(image)}, &out)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: backend returned empty embedding", models.ErrBackendUnavailable)
	}
	return out.Embedding, nil
}

// Detect sends the image to the detection endpoint and returns subject regions.
func (c *HTTPClient) Detect(ctx context.Context, image []byte) ([]models.Region, error) {
	var out detectResponse
	err := c.post(ctx, c.detectBaseURL+"/detect", detectRequest{Image: base64.StdEncoding.EncodeToString(image)}, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDetectionFailed, err)
	}

	regions := make([]models.Region, 0, len(out.Subjects))
	for _, s := range out.Subjects {
		regions = append(regions, models.Region{
			X:          s.X,
			Y:          s.Y,
			Width:      s.Width,
			Height:     s.Height,
			Confidence: s.Confidence,
			Kind:       s.Kind,
		})
	}
	c.logger.Debug("Subject detection completed", zap.Int("subjects", len(regions)))
	return regions, nil
}

func (c *HTTPClient) post(ctx context.Context, url string, payload any, out any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Vision backend returned non-OK status",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", body),
		)
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(body))
	}
	if readErr != nil {
		return fmt.Errorf("failed to read response body: %w", readErr)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
