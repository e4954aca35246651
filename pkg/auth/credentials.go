package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExpiryMargin is how close to expiry a token is treated as expired.
const ExpiryMargin = 5 * time.Minute

// ErrNoCredentials is returned when no source holds credentials.
var ErrNoCredentials = errors.New("no credentials found")

// Credentials is an OAuth token set. ExpiresAt is in Unix milliseconds.
type Credentials struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// Expired reports whether less than ExpiryMargin remains before expiry.
func (c Credentials) Expired(now time.Time) bool {
	return c.ExpiresAt-ExpiryMargin.Milliseconds() < now.UnixMilli()
}

// CanRefresh reports whether a refresh token is available.
func (c Credentials) CanRefresh() bool {
	return c.RefreshToken != ""
}

// Source supplies credentials. Load reports found=false when the source has
// nothing to offer; err is reserved for sources that exist but are unusable.
type Source interface {
	Name() string
	Load(ctx context.Context) (creds *Credentials, found bool, err error)
}

// Saver is implemented by sources that can persist refreshed credentials.
type Saver interface {
	Save(ctx context.Context, creds *Credentials) error
}

// Chain tries sources in order and returns the first that has credentials.
type Chain []Source

// Load returns the credentials and the source that supplied them.
func (c Chain) Load(ctx context.Context) (*Credentials, Source, error) {
	for _, src := range c {
		creds, found, err := src.Load(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load credentials from %s: %w", src.Name(), err)
		}
		if found {
			return creds, src, nil
		}
	}
	return nil, nil, ErrNoCredentials
}
