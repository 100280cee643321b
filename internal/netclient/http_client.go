package netclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"provwatch/internal/config"

	"github.com/rs/zerolog/log"
)

var (
	ErrBulkStatusRequest = errors.New("bulk status request failed")
	ErrTestRequest       = errors.New("provider test request failed")
	ErrUpstreamStatus    = errors.New("upstream returned non-200 status")
)

const maxResponseBytes = 1 << 20

// HTTPClient is the default Client implementation against the AI gateway's
// admin endpoints.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(cfg *config.UpstreamConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.TestTimeout,
		},
	}
}

// FetchBulkStatus retrieves the status of every provider in one call. This
// single bulk round-trip per scan cycle is what keeps the coordination
// layer's call volume bounded.
func (c *HTTPClient) FetchBulkStatus(ctx context.Context) (BulkStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/providers/status", nil)
	if err != nil {
		return nil, errors.Join(ErrBulkStatusRequest, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrBulkStatusRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("Bulk status call rejected by upstream")
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var payload BulkStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, errors.Join(ErrBulkStatusRequest, err)
	}

	return payload, nil
}

// TestProvider runs one verification prompt through a single provider. The
// caller's context carries the hard timeout; a fired deadline abandons the
// call and surfaces as a plain error here.
func (c *HTTPClient) TestProvider(ctx context.Context, providerID, prompt string) (TestOutcome, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return TestOutcome{}, errors.Join(ErrTestRequest, err)
	}

	url := c.baseURL + "/admin/providers/" + providerID + "/test"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return TestOutcome{}, errors.Join(ErrTestRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return TestOutcome{}, errors.Join(ErrTestRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TestOutcome{}, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var outcome TestOutcome
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&outcome); err != nil {
		return TestOutcome{}, errors.Join(ErrTestRequest, err)
	}

	if outcome.ResponseTimeMs == 0 {
		outcome.ResponseTimeMs = time.Since(started).Milliseconds()
	}

	return outcome, nil
}
