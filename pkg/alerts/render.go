package alerts

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

// PacificStandard is the display zone used when none is configured.
var PacificStandard = time.FixedZone("PST", -8*60*60)

// Renderer turns policy events into human-readable notification text.
type Renderer struct {
	pick     QuipPicker
	location *time.Location
	now      func() time.Time
}

// RendererOption customizes a Renderer.
type RendererOption func(*Renderer)

// WithLocation sets the zone reset times are displayed in.
func WithLocation(loc *time.Location) RendererOption {
	return func(r *Renderer) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithClock sets the clock countdowns are measured from.
func WithClock(now func() time.Time) RendererOption {
	return func(r *Renderer) { r.now = now }
}

// NewRenderer creates a renderer drawing remarks from pick.
func NewRenderer(pick QuipPicker, opts ...RendererOption) *Renderer {
	r := &Renderer{
		pick:     pick,
		location: PacificStandard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the message for a single event.
func (r *Renderer) Render(ev model.Event, reading model.UsageReading) Message {
	short := reading.ShortWindow()
	resetTime := r.FormatResetTime(short.ResetsAt)
	countdown := r.FormatCountdown(short.ResetsAt)

	msg := Message{Event: ev, Utilization: short.Utilization}

	switch ev.Kind {
	case model.EventWindowReset:
		msg.Category = CategoryReset
		quip := r.quip(CategoryReset, countdown)
		msg.Text = fmt.Sprintf("*Window Reset!* %s\n\nNew window resets at %s", quip, resetTime)
	default:
		msg.Category = CategoryFor(short.Utilization)
		quip := r.quip(msg.Category, countdown)
		msg.Text = fmt.Sprintf("*%s%% Usage Alert*\n\n5-hour: %.1f%%\nResets: %s (%s)\n\n_%s_",
			strconv.FormatFloat(ev.Threshold, 'f', -1, 64),
			short.Utilization, resetTime, countdown, quip,
		)
	}
	return msg
}

func (r *Renderer) quip(c Category, countdown string) string {
	if r.pick == nil {
		return ""
	}
	return strings.ReplaceAll(r.pick(c), ResetTimePlaceholder, countdown)
}

// FormatResetTime renders a reset instant as a wall clock time, e.g.
// "3:04 PM PST".
func (r *Renderer) FormatResetTime(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.In(r.location).Format("3:04 PM MST")
}

// FormatCountdown renders the time left until t as "2h 15m" or "15m".
func (r *Renderer) FormatCountdown(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	left := t.Sub(r.now())
	if left <= 0 {
		return "now"
	}
	secs := int64(left / time.Second)
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
