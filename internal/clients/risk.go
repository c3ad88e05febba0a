package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vigilops/vigil-core/internal/config"
	"github.com/vigilops/vigil-core/internal/logging"
)

// RiskClient talks to the external risk-prediction service over HTTP. The
// engine only consumes the score; model training and feature plumbing live
// on the other side.
type RiskClient struct {
	endpoint string
	client   *http.Client
	logger   logging.Logger
}

func NewRiskClient(cfg config.RiskEngineConfig, log logging.Logger) *RiskClient {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RiskClient{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}
}

type scoreRequest struct {
	ClaimID  string             `json:"claim_id"`
	Features map[string]float64 `json:"features"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// Score returns the service's escalation-risk grade in [0, 1]. Callers
// treat any error as "no score": detection falls back to its static
// severity ladder.
func (c *RiskClient) Score(ctx context.Context, claimID string, features map[string]float64) (float64, error) {
	body, err := json.Marshal(scoreRequest{ClaimID: claimID, Features: features})
	if err != nil {
		return 0, fmt.Errorf("encode score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("risk engine call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("risk engine returned %d", resp.StatusCode)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode score response: %w", err)
	}
	if out.Score < 0 || out.Score > 1 {
		return 0, fmt.Errorf("risk engine score %f out of range", out.Score)
	}
	return out.Score, nil
}
