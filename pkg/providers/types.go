package providers

import (
	"context"
	"encoding/json"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

// UsageSource fetches the current utilization of every metering window.
type UsageSource interface {
	// Name returns the provider identifier.
	Name() string

	// FetchUsage retrieves a fresh reading using the given access token.
	FetchUsage(ctx context.Context, accessToken string) (model.UsageReading, error)
}

// usageWindow is a window as it appears on the wire. Both fields are decoded
// leniently since either may be null, missing or of an unexpected type.
type usageWindow struct {
	Utilization json.RawMessage `json:"utilization"`
	ResetsAt    json.RawMessage `json:"resets_at"`
}
