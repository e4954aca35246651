package auth

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

// DefaultTokenURL is the Anthropic OAuth token endpoint.
const DefaultTokenURL = "https://console.anthropic.com/v1/oauth/token"

const defaultExpiresIn = 3600

// Refresher exchanges a refresh token for a new token set.
type Refresher struct {
	tokenURL string
	client   *http.Client
	now      func() time.Time
}

// NewRefresher creates a refresher for tokenURL. An empty tokenURL selects
// DefaultTokenURL.
func NewRefresher(tokenURL string, timeout time.Duration) *Refresher {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &Refresher{
		tokenURL: tokenURL,
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// Refresh requests a new access token. The old refresh token is kept when the
// response does not rotate it.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("refresh response has no access_token")
	}

	creds := &Credentials{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = refreshToken
	}
	expiresIn := result.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	creds.ExpiresAt = r.now().UnixMilli() + expiresIn*1000
	return creds, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
