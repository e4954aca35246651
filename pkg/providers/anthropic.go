package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

// Defaults for the Anthropic OAuth usage endpoint.
const (
	DefaultUsageURL = "https://api.anthropic.com/api/oauth/usage"
	DefaultBeta     = "oauth-2025-04-20"
)

// Anthropic implements UsageSource for the Anthropic OAuth usage API.
type Anthropic struct {
	usageURL string
	beta     string
	client   *http.Client
	logger   *slog.Logger
}

// NewAnthropic creates a usage client. Empty arguments select the defaults;
// a nil logger uses slog.Default.
func NewAnthropic(usageURL, beta string, timeout time.Duration, logger *slog.Logger) *Anthropic {
	if usageURL == "" {
		usageURL = DefaultUsageURL
	}
	if beta == "" {
		beta = DefaultBeta
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Anthropic{
		usageURL: usageURL,
		beta:     beta,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) FetchUsage(ctx context.Context, accessToken string) (model.UsageReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.usageURL, nil)
	if err != nil {
		return model.UsageReading{}, fmt.Errorf("create usage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("anthropic-beta", a.beta)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return model.UsageReading{}, fmt.Errorf("send usage request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.UsageReading{}, fmt.Errorf("read usage response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.UsageReading{}, fmt.Errorf("anthropic: usage returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(truncate(body, 512))))
	}

	reading, skipped, err := parseUsage(body)
	if err != nil {
		return model.UsageReading{}, err
	}
	for _, id := range skipped {
		a.logger.Debug("ignoring usage member", "member", id)
	}
	return reading, nil
}

// ParseUsage decodes a usage response body. The short and long windows are
// always present: a utilization that is not a number reads as 0 and a reset
// time that is empty or unparseable reads as unknown. Other members are kept
// only when they carry a numeric utilization.
func ParseUsage(body []byte) (model.UsageReading, error) {
	reading, _, err := parseUsage(body)
	return reading, err
}

func parseUsage(body []byte) (model.UsageReading, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.UsageReading{}, nil, fmt.Errorf("anthropic: decode usage: %w", err)
	}

	windows := make(map[string]model.Window, len(raw))
	var skipped []string
	for id, value := range raw {
		known := id == model.WindowFiveHour || id == model.WindowSevenDay

		var w usageWindow
		if err := json.Unmarshal(value, &w); err != nil || isNull(value) {
			if !known {
				skipped = append(skipped, id)
			}
			continue
		}

		util, ok := parseUtilization(w.Utilization)
		if !ok && !known {
			skipped = append(skipped, id)
			continue
		}
		windows[id] = model.Window{Utilization: util, ResetsAt: parseResetTime(w.ResetsAt)}
	}
	sort.Strings(skipped)
	return model.NewUsageReading(windows), skipped, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseUtilization reports false when raw is absent, null or not a number.
func parseUtilization(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

func parseResetTime(raw json.RawMessage) *time.Time {
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
