// Package classifier calls the external image classifier that judges
// submission authenticity. The classifier's scoring model is opaque; only
// the shape of its response is validated here.
package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/verdant-network/reward-layer/internal/domain/submission"
	"github.com/verdant-network/reward-layer/internal/errors"
)

// Client submits image payloads for a validity judgment.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds classifier client configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewClient creates a classifier client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("classifier endpoint required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type classifyRequest struct {
	Image string `json:"image"`
	Model string `json:"model,omitempty"`
}

// Classify submits the image and returns the classifier's judgment.
// A response without a numeric validityFactor is a structural failure,
// never a low score.
func (c *Client) Classify(ctx context.Context, image []byte) (submission.ValidationResult, error) {
	if len(image) == 0 {
		return submission.ValidationResult{}, errors.Classifier("empty image payload", nil)
	}

	body, err := json.Marshal(classifyRequest{
		Image: base64.StdEncoding.EncodeToString(image),
		Model: c.model,
	})
	if err != nil {
		return submission.ValidationResult{}, errors.Classifier("marshal classify request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return submission.ValidationResult{}, errors.Classifier("create classify request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return submission.ValidationResult{}, errors.Classifier("classifier request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return submission.ValidationResult{}, errors.Classifier("read classifier response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return submission.ValidationResult{}, errors.Classifier(
			fmt.Sprintf("classifier returned status %d", resp.StatusCode), nil,
		).WithDetails("body", string(respBody))
	}

	return parseResult(respBody)
}

// parseResult validates the response structure and extracts the judgment.
func parseResult(body []byte) (submission.ValidationResult, error) {
	if !gjson.ValidBytes(body) {
		return submission.ValidationResult{}, errors.Classifier("malformed classifier response", nil)
	}

	factor := gjson.GetBytes(body, "validityFactor")
	if !factor.Exists() || factor.Type != gjson.Number {
		return submission.ValidationResult{}, errors.Classifier(
			"invalid validation result structure from image analysis", nil,
		)
	}

	score := factor.Float()
	if score < 0 || score > 1 {
		return submission.ValidationResult{}, errors.Classifier(
			fmt.Sprintf("validity factor %v outside [0,1]", score), nil,
		)
	}

	return submission.ValidationResult{
		ValidityFactor:        score,
		DescriptionOfAnalysis: gjson.GetBytes(body, "descriptionOfAnalysis").String(),
	}, nil
}
