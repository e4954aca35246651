package alerts_test

import (
	"testing"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/alerts"
	"github.com/ogulcanaydogan/usagewatch/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var renderNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func stubPicker(c alerts.Category) string { return "quip:" + string(c) }

func newTestRenderer(pick alerts.QuipPicker) *alerts.Renderer {
	return alerts.NewRenderer(pick, alerts.WithClock(func() time.Time { return renderNow }))
}

func readingAt(util float64, resetsAt *time.Time) model.UsageReading {
	return model.NewUsageReading(map[string]model.Window{
		model.WindowFiveHour: {Utilization: util, ResetsAt: resetsAt},
	})
}

func TestCategoryFor_Bands(t *testing.T) {
	tests := []struct {
		util float64
		want alerts.Category
	}{
		{0, alerts.CategoryLow},
		{24.9, alerts.CategoryLow},
		{25, alerts.CategoryMedium},
		{49.99, alerts.CategoryMedium},
		{50, alerts.CategoryHigh},
		{74.9, alerts.CategoryHigh},
		{75, alerts.CategoryCritical},
		{100, alerts.CategoryCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, alerts.CategoryFor(tt.util), "utilization %v", tt.util)
	}
}

func TestRenderer_ThresholdCrossed(t *testing.T) {
	reset := renderNow.Add(2*time.Hour + 30*time.Minute)
	r := newTestRenderer(stubPicker)

	msg := r.Render(model.Event{Kind: model.EventThresholdCrossed, Threshold: 50}, readingAt(55.04, &reset))

	assert.Equal(t, alerts.CategoryHigh, msg.Category)
	assert.Equal(t, 55.04, msg.Utilization)
	assert.Equal(t,
		"*50% Usage Alert*\n\n5-hour: 55.0%\nResets: 6:30 AM PST (2h 30m)\n\n_quip:high_",
		msg.Text,
	)
}

func TestRenderer_CategoryFollowsUtilizationNotThreshold(t *testing.T) {
	r := newTestRenderer(stubPicker)
	msg := r.Render(model.Event{Kind: model.EventThresholdCrossed, Threshold: 50}, readingAt(91, nil))
	assert.Equal(t, alerts.CategoryCritical, msg.Category)
	assert.Contains(t, msg.Text, "_quip:critical_")
	assert.Contains(t, msg.Text, "Resets: unknown (unknown)")
}

func TestRenderer_WindowReset(t *testing.T) {
	reset := renderNow.Add(5 * time.Hour)
	r := newTestRenderer(stubPicker)

	msg := r.Render(model.Event{Kind: model.EventWindowReset}, readingAt(3, &reset))

	assert.Equal(t, alerts.CategoryReset, msg.Category)
	assert.Equal(t, "*Window Reset!* quip:reset\n\nNew window resets at 9:00 AM PST", msg.Text)
}

func TestRenderer_ReplacesResetTimePlaceholder(t *testing.T) {
	reset := renderNow.Add(45 * time.Minute)
	r := newTestRenderer(func(alerts.Category) string { return "Touch grass in {reset_time}." })

	msg := r.Render(model.Event{Kind: model.EventThresholdCrossed, Threshold: 90}, readingAt(92, &reset))
	assert.Contains(t, msg.Text, "_Touch grass in 45m._")
}

func TestRenderer_FormatCountdown(t *testing.T) {
	r := newTestRenderer(stubPicker)
	at := func(d time.Duration) *time.Time {
		ts := renderNow.Add(d)
		return &ts
	}

	assert.Equal(t, "unknown", r.FormatCountdown(nil))
	assert.Equal(t, "now", r.FormatCountdown(at(0)))
	assert.Equal(t, "now", r.FormatCountdown(at(-time.Minute)))
	assert.Equal(t, "0m", r.FormatCountdown(at(30*time.Second)))
	assert.Equal(t, "59m", r.FormatCountdown(at(59*time.Minute+59*time.Second)))
	assert.Equal(t, "1h 0m", r.FormatCountdown(at(time.Hour)))
	assert.Equal(t, "4h 12m", r.FormatCountdown(at(4*time.Hour+12*time.Minute)))
}

func TestRenderer_WithLocation(t *testing.T) {
	loc, err := time.LoadLocation("UTC")
	require.NoError(t, err)
	r := alerts.NewRenderer(stubPicker, alerts.WithLocation(loc))

	reset := time.Date(2025, 6, 1, 17, 5, 0, 0, time.UTC)
	assert.Equal(t, "5:05 PM UTC", r.FormatResetTime(&reset))
}

func TestRenderer_NilPicker(t *testing.T) {
	r := newTestRenderer(nil)
	msg := r.Render(model.Event{Kind: model.EventWindowReset}, readingAt(0, nil))
	assert.Equal(t, "*Window Reset!* \n\nNew window resets at unknown", msg.Text)
}
