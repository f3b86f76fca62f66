package revenium

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

const (
	meteringEndpoint = "/ai/completions"
	meteringService  = "/meter"
	meteringVersion  = "/v2"

	// Detached sends carry their own deadline so metering survives the
	// caller's context ending.
	detachedSendTimeout = 30 * time.Second
)

// buildMeteringURL normalizes the configured base URL and appends the
// metering endpoint. The base may already carry the /meter/v2 suffix, a bare
// /meter service path (version gets inserted), or a bare /v2 segment;
// otherwise the full default /meter/v2 suffix is appended. Suffix checks are
// case-insensitive and trailing slashes are stripped first.
func buildMeteringURL(baseURL, endpoint string) string {
	base := strings.TrimRight(baseURL, "/")
	lower := strings.ToLower(base)

	switch {
	case strings.HasSuffix(lower, meteringService+meteringVersion):
		return base + endpoint
	case strings.HasSuffix(lower, meteringService):
		return base + meteringVersion + endpoint
	case strings.HasSuffix(lower, meteringVersion):
		return base + endpoint
	default:
		return base + meteringService + meteringVersion + endpoint
	}
}

// send posts a usage record to the metering API. A non-2xx response yields a
// classified error; callers inside the detached metering path log it and
// move on.
func (c *Client) send(ctx context.Context, record *UsageRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return newMeteringError("failed to marshal usage record", err)
	}

	url := buildMeteringURL(c.cfg.BaseURL, meteringEndpoint)
	c.logger.Debug("sending metering request: url=%s transaction=%s model=%s tokens=%d",
		url, record.TransactionID, record.Model, record.TotalTokenCount)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return newNetworkError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return newNetworkError("request failed", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Debug("metering request succeeded: transaction=%s", record.TransactionID)
		return nil
	}

	c.logger.Debug("metering API response (%d): %s", resp.StatusCode, string(respBody))
	msg := fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newConfigError(msg, nil)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return newNetworkError(msg, nil)
	default:
		return newMeteringError(msg, nil)
	}
}

// Flush waits for all pending async sends to complete.
func (c *Client) Flush() {
	c.wg.Wait()
}
