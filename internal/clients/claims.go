package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vigilops/vigil-core/internal/config"
	"github.com/vigilops/vigil-core/internal/logging"
	"github.com/vigilops/vigil-core/internal/services"
)

// ClaimsReader pulls open-claim and staffing snapshots from the claims
// read-model API. Detection adapters get a full snapshot per scan; there is
// no incremental feed.
type ClaimsReader struct {
	endpoint string
	client   *http.Client
	logger   logging.Logger
}

func NewClaimsReader(cfg config.ClaimsAPIConfig, log logging.Logger) *ClaimsReader {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ClaimsReader{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   log,
	}
}

type openClaimPayload struct {
	ID         string    `json:"id"`
	Team       string    `json:"team"`
	OpenedAt   time.Time `json:"opened_at"`
	Assigned   bool      `json:"assigned"`
	VIP        bool      `json:"vip"`
	ProductTag string    `json:"product_tag"`
}

type teamLoadPayload struct {
	Team       string `json:"team"`
	OpenClaims int    `json:"open_claims"`
	Adjusters  int    `json:"adjusters"`
}

// OpenClaims returns every claim currently open in the back office.
func (r *ClaimsReader) OpenClaims(ctx context.Context) ([]services.OpenClaim, error) {
	var payload struct {
		Claims []openClaimPayload `json:"claims"`
	}
	if err := r.get(ctx, "/v1/claims/open", &payload); err != nil {
		return nil, err
	}
	out := make([]services.OpenClaim, 0, len(payload.Claims))
	for _, c := range payload.Claims {
		out = append(out, services.OpenClaim{
			ID:         c.ID,
			Team:       c.Team,
			OpenedAt:   c.OpenedAt,
			Assigned:   c.Assigned,
			VIP:        c.VIP,
			ProductTag: c.ProductTag,
		})
	}
	return out, nil
}

// TeamLoads returns the per-team staffing snapshot.
func (r *ClaimsReader) TeamLoads(ctx context.Context) ([]services.TeamLoad, error) {
	var payload struct {
		Teams []teamLoadPayload `json:"teams"`
	}
	if err := r.get(ctx, "/v1/teams/load", &payload); err != nil {
		return nil, err
	}
	out := make([]services.TeamLoad, 0, len(payload.Teams))
	for _, t := range payload.Teams {
		out = append(out, services.TeamLoad{
			Team:       t.Team,
			OpenClaims: t.OpenClaims,
			Adjusters:  t.Adjusters,
		})
	}
	return out, nil
}

func (r *ClaimsReader) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("build claims request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("claims api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("claims api %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode claims response: %w", err)
	}
	return nil
}
