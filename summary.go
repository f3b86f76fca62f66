package revenium

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// jsonSummary is the single-line machine-readable summary shape.
type jsonSummary struct {
	Model            string   `json:"model"`
	Provider         string   `json:"provider"`
	DurationSeconds  float64  `json:"durationSeconds"`
	InputTokenCount  int      `json:"inputTokenCount"`
	OutputTokenCount int      `json:"outputTokenCount"`
	TotalTokenCount  int      `json:"totalTokenCount"`
	Cost             *float64 `json:"cost"`
	CostStatus       string   `json:"costStatus,omitempty"`
	TraceID          string   `json:"traceId,omitempty"`
}

// PrintSummary writes a usage summary for a delivered record to the
// configured summary writer, honoring the configured format. When a team id
// is configured the computed cost is fetched first; cost retrieval failures
// degrade to a pending/unavailable status and never raise.
func (c *Client) PrintSummary(ctx context.Context, record *UsageRecord) {
	format := c.cfg.PrintSummary
	if format == SummaryOff {
		return
	}

	var result *CostResult
	if c.cfg.TeamID != "" && record.TransactionID != "" {
		result = c.FetchCost(ctx, record.TransactionID)
	} else {
		result = &CostResult{Status: CostUnavailable}
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("failed to format usage summary: %v", r)
		}
	}()

	if format == SummaryJSON {
		c.printJSONSummary(record, result)
		return
	}
	c.printHumanSummary(record, result)
}

func (c *Client) printJSONSummary(record *UsageRecord, result *CostResult) {
	summary := jsonSummary{
		Model:            record.Model,
		Provider:         record.Provider,
		DurationSeconds:  float64(record.RequestDuration) / 1000,
		InputTokenCount:  record.InputTokenCount,
		OutputTokenCount: record.OutputTokenCount,
		TotalTokenCount:  record.TotalTokenCount,
		TraceID:          record.TraceID,
	}
	if result.Status == CostResolved && result.Record != nil {
		cost := result.Record.TotalCost
		summary.Cost = &cost
	} else {
		summary.CostStatus = string(result.Status)
	}

	data, err := json.Marshal(summary)
	if err != nil {
		c.logger.Debug("failed to marshal usage summary: %v", err)
		return
	}
	fmt.Fprintln(c.cfg.SummaryWriter, string(data))
}

func (c *Client) printHumanSummary(record *UsageRecord, result *CostResult) {
	w := c.cfg.SummaryWriter
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "REVENIUM USAGE SUMMARY")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Model:    %s\n", record.Model)
	fmt.Fprintf(w, "Provider: %s\n", record.Provider)
	fmt.Fprintf(w, "Duration: %.2fs\n", float64(record.RequestDuration)/1000)
	fmt.Fprintln(w, "\nToken Usage:")
	fmt.Fprintf(w, "  Input Tokens:  %d\n", record.InputTokenCount)
	fmt.Fprintf(w, "  Output Tokens: %d\n", record.OutputTokenCount)
	fmt.Fprintf(w, "  Total Tokens:  %d\n", record.TotalTokenCount)

	switch {
	case result.Status == CostResolved && result.Record != nil:
		fmt.Fprintf(w, "\nCost: $%s\n", formatCost(result.Record.TotalCost))
	case result.Status == CostPending:
		fmt.Fprintln(w, "\nCost: (pending aggregation)")
	default:
		fmt.Fprintln(w, "\nCost: Set REVENIUM_TEAM_ID to see pricing")
	}

	if record.TraceID != "" {
		fmt.Fprintf(w, "\nTrace ID: %s\n", record.TraceID)
	}
	fmt.Fprintln(w, rule)
}

// formatCost renders a dollar amount with exactly six decimal places using
// decimal arithmetic, so tiny per-request costs don't pick up binary float
// artifacts on the way to the terminal.
func formatCost(cost float64) string {
	var d apd.Decimal
	if _, err := d.SetFloat64(cost); err != nil {
		return fmt.Sprintf("%.6f", cost)
	}
	apdCtx := apd.BaseContext.WithPrecision(20)
	var quantized apd.Decimal
	if _, err := apdCtx.Quantize(&quantized, &d, -6); err != nil {
		return fmt.Sprintf("%.6f", cost)
	}
	return quantized.Text('f')
}
