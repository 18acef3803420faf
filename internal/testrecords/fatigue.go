package testrecords

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/okian/dutylog/pkg/logger"
)

// getFatigue computes fatigue scores as of now over the generated window.
func getFatigue(ctx context.Context, config *Config, now time.Time) (FatigueResponse, error) {
	q := url.Values{}
	q.Set("now", now.Format(timestampLayout))
	q.Set("days", fmt.Sprint(config.Days))

	var out FatigueResponse
	client := newHTTPClient(config.Timeout)
	if err := client.getJSON(ctx, config.BaseURL+"/api/fatigue?"+q.Encode(), &out); err != nil {
		return FatigueResponse{}, err
	}
	logger.Get().Info(ctx, "retrieved fatigue scores", logger.Int("entries", len(out.Scores)))
	return out, nil
}

// getSummary fetches participation counts over every stored record.
func getSummary(ctx context.Context, config *Config) (SummaryResponse, error) {
	var out SummaryResponse
	client := newHTTPClient(config.Timeout)
	if err := client.getJSON(ctx, config.BaseURL+"/api/summary?sort=doctor", &out); err != nil {
		return SummaryResponse{}, err
	}
	logger.Get().Info(ctx, "retrieved summary",
		logger.Int("records", out.Records),
		logger.Int("people", len(out.Counts)))
	return out, nil
}

// clearLogs removes every stored record.
func clearLogs(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Post(ctx, config.BaseURL+"/api/logs/clear", struct{}{})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	body, _ := readResponseBody(resp)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// addRoster registers people so each one gets a score even without records.
func addRoster(ctx context.Context, config *Config, people []string) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Post(ctx, config.BaseURL+"/api/doctors", map[string][]string{"names": people})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	body, _ := readResponseBody(resp)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
