package alerts

import (
	"context"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

// Category is the tone of a notification, derived from utilization.
type Category string

const (
	CategoryLow      Category = "low"      // [0, 25)
	CategoryMedium   Category = "medium"   // [25, 50)
	CategoryHigh     Category = "high"     // [50, 75)
	CategoryCritical Category = "critical" // [75, 100]
	CategoryReset    Category = "reset"    // Window reset
)

// CategoryFor bands a utilization percentage. Band edges belong to the
// higher band.
func CategoryFor(utilization float64) Category {
	switch {
	case utilization < 25:
		return CategoryLow
	case utilization < 50:
		return CategoryMedium
	case utilization < 75:
		return CategoryHigh
	default:
		return CategoryCritical
	}
}

// Message is a rendered notification ready for delivery.
type Message struct {
	Event       model.Event `json:"event"`
	Category    Category    `json:"category"`
	Utilization float64     `json:"utilization"`
	Text        string      `json:"text"`
}

// Notifier sends rendered notifications to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a message. Delivery is best-effort; callers log errors.
	Send(ctx context.Context, msg Message) error
}
