package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Window identifiers as reported by the usage API.
const (
	WindowFiveHour = "five_hour" // Short window, subject to alert policy
	WindowSevenDay = "seven_day" // Long window
)

// Window is the utilization of a single metering window.
type Window struct {
	Utilization float64    `json:"utilization"`
	ResetsAt    *time.Time `json:"resets_at"`
}

// UsageReading is a normalized snapshot of all metering windows for one poll.
type UsageReading struct {
	Windows map[string]Window `json:"windows"`
}

// NewUsageReading builds a reading from the given windows. The map is copied.
func NewUsageReading(windows map[string]Window) UsageReading {
	w := make(map[string]Window, len(windows))
	for id, win := range windows {
		w[id] = win
	}
	return UsageReading{Windows: w}
}

// Window returns the named window, or the zero window when absent.
func (r UsageReading) Window(id string) Window {
	w, ok := r.Windows[id]
	if !ok {
		return Window{}
	}
	w.Utilization = sanitizeUtilization(w.Utilization)
	return w
}

// Utilization returns the utilization percentage of the named window.
func (r UsageReading) Utilization(id string) float64 {
	return r.Window(id).Utilization
}

// ShortWindow returns the window the alert policy runs against.
func (r UsageReading) ShortWindow() Window {
	return r.Window(WindowFiveHour)
}

func sanitizeUtilization(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Snapshot is one history entry. It serializes flat:
// {"timestamp": ..., "five_hour": {...}, "seven_day": {...}}.
type Snapshot struct {
	Timestamp time.Time
	Windows   map[string]Window
}

// NewSnapshot records the reading at the given time. The short and long
// windows are always present in the result; other windows are recorded as the
// usage source reported them.
func NewSnapshot(ts time.Time, reading UsageReading) Snapshot {
	windows := make(map[string]Window, len(reading.Windows)+2)
	for id := range reading.Windows {
		windows[id] = reading.Window(id)
	}
	for _, id := range []string{WindowFiveHour, WindowSevenDay} {
		if _, ok := windows[id]; !ok {
			windows[id] = Window{}
		}
	}
	return Snapshot{Timestamp: ts.UTC(), Windows: windows}
}

// Reading converts the snapshot back into a usage reading.
func (s Snapshot) Reading() UsageReading {
	return NewUsageReading(s.Windows)
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Windows)+1)
	for id, w := range s.Windows {
		out[id] = w
	}
	out["timestamp"] = s.Timestamp.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Windows = make(map[string]Window, len(raw))
	for key, value := range raw {
		if key == "timestamp" {
			var ts time.Time
			if err := json.Unmarshal(value, &ts); err != nil {
				return fmt.Errorf("parse snapshot timestamp: %w", err)
			}
			s.Timestamp = ts
			continue
		}
		var w Window
		if err := json.Unmarshal(value, &w); err != nil {
			return fmt.Errorf("parse snapshot window %q: %w", key, err)
		}
		s.Windows[key] = w
	}
	return nil
}

// State is the alerting state carried across runs.
type State struct {
	LastUtilization float64    `json:"last_five_hour_util"`
	AlertsSent      []float64  `json:"alerts_sent"`
	LastResetAt     *time.Time `json:"last_reset_at"`
}

// NewState returns the state used when nothing has been persisted yet.
func NewState() *State {
	return &State{AlertsSent: []float64{}}
}

// Alerted reports whether the threshold was already notified in this window.
func (s State) Alerted(threshold float64) bool {
	for _, t := range s.AlertsSent {
		if t == threshold {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		LastUtilization: s.LastUtilization,
		AlertsSent:      append([]float64{}, s.AlertsSent...),
	}
	if s.LastResetAt != nil {
		t := *s.LastResetAt
		out.LastResetAt = &t
	}
	return out
}

// DefaultThresholds are used when no valid thresholds are configured.
var DefaultThresholds = []float64{50, 75, 90}

// AlertConfig is the read-only input of the threshold policy.
type AlertConfig struct {
	Thresholds           []float64 `json:"thresholds"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
}

// NormalizedThresholds returns the configured thresholds deduplicated and in
// ascending order. Values outside (0,100] are ignored; if nothing remains the
// defaults apply.
func (c AlertConfig) NormalizedThresholds() []float64 {
	seen := make(map[float64]bool, len(c.Thresholds))
	out := make([]float64, 0, len(c.Thresholds))
	for _, t := range c.Thresholds {
		if math.IsNaN(t) || t <= 0 || t > 100 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		out = append(out, DefaultThresholds...)
	}
	sort.Float64s(out)
	return out
}

// EventKind distinguishes the notifications the policy can emit.
type EventKind string

const (
	EventWindowReset      EventKind = "window_reset"
	EventThresholdCrossed EventKind = "threshold_crossed"
)

// Event is a single notification decided by the policy.
type Event struct {
	Kind      EventKind `json:"kind"`
	Threshold float64   `json:"threshold,omitempty"`
}

func (e Event) String() string {
	if e.Kind == EventThresholdCrossed {
		return fmt.Sprintf("%s(%g)", e.Kind, e.Threshold)
	}
	return string(e.Kind)
}
