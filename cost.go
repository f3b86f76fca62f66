package revenium

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const costQueryPath = "/profitstream/v2/api/sources/metrics/ai/completions"

const (
	defaultCostAttempts = 3
	defaultCostDelay    = 2 * time.Second
	defaultCostTimeout  = 10 * time.Second
)

// CostStatus describes the outcome of a cost lookup.
type CostStatus string

const (
	// CostResolved means the metering service returned a computed cost.
	CostResolved CostStatus = "resolved"
	// CostPending means the cost has not been aggregated yet.
	CostPending CostStatus = "pending"
	// CostUnavailable means cost retrieval is not configured (no team id
	// or API key).
	CostUnavailable CostStatus = "unavailable"
)

// CostRecord is the externally-computed cost for one transaction, fetched on
// demand from the Revenium profitstream API.
type CostRecord struct {
	ID               string  `json:"id,omitempty"`
	TransactionID    string  `json:"transactionId,omitempty"`
	Model            string  `json:"model,omitempty"`
	Provider         string  `json:"provider,omitempty"`
	InputTokenCount  int     `json:"inputTokenCount,omitempty"`
	OutputTokenCount int     `json:"outputTokenCount,omitempty"`
	TotalTokenCount  int     `json:"totalTokenCount,omitempty"`
	InputTokenCost   float64 `json:"inputTokenCost,omitempty"`
	OutputTokenCost  float64 `json:"outputTokenCost,omitempty"`
	TotalCost        float64 `json:"totalCost,omitempty"`
	RequestDuration  int64   `json:"requestDuration,omitempty"`
}

// CostResult pairs a lookup status with the record, present only when
// resolved.
type CostResult struct {
	Status CostStatus
	Record *CostRecord
}

type costQueryResponse struct {
	Embedded struct {
		Completions []CostRecord `json:"aICompletionMetricResourceList"`
	} `json:"_embedded"`
}

// FetchCost queries the metering service for the computed cost of a
// transaction. Cost aggregation lags ingestion, so up to three attempts are
// made with a fixed two-second delay between them; each attempt carries an
// independent ten-second timeout. The function never returns an error:
// missing configuration yields an unavailable status without any network
// call, and exhausting all attempts yields pending. All transport and decode
// failures are logged and swallowed.
func (c *Client) FetchCost(ctx context.Context, transactionID string) *CostResult {
	if c.cfg.TeamID == "" {
		c.logger.Debug("team ID not configured, skipping cost retrieval")
		return &CostResult{Status: CostUnavailable}
	}
	if c.cfg.APIKey == "" {
		c.logger.Debug("API key not configured, skipping cost retrieval")
		return &CostResult{Status: CostUnavailable}
	}

	base := strings.TrimRight(c.cfg.BaseURL, "/")
	query := url.Values{}
	query.Set("teamId", strings.TrimSpace(c.cfg.TeamID))
	query.Set("transactionId", transactionID)
	queryURL := base + costQueryPath + "?" + query.Encode()

	c.logger.Debug("fetching completion metrics: %s", queryURL)

	for attempt := 0; attempt < c.costAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &CostResult{Status: CostPending}
			case <-time.After(c.costDelay):
			}
		}

		record, err := c.queryCost(ctx, queryURL)
		if err != nil {
			c.logger.Debug("cost query failed (attempt %d/%d): %v", attempt+1, c.costAttempts, err)
			continue
		}
		if record != nil {
			return &CostResult{Status: CostResolved, Record: record}
		}
		c.logger.Debug("waiting for metrics to aggregate (attempt %d/%d)", attempt+1, c.costAttempts)
	}

	return &CostResult{Status: CostPending}
}

// queryCost performs one bounded attempt. A nil record with nil error means
// the service responded but the transaction is not aggregated yet.
func (c *Client) queryCost(ctx context.Context, queryURL string) (*CostRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.costTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("cost query returned %d", resp.StatusCode)
	}

	var body costQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Embedded.Completions) == 0 {
		return nil, nil
	}
	return &body.Embedded.Completions[0], nil
}
