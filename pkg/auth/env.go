package auth

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

// Environment variable names read by EnvSource.
const (
	EnvAccessToken  = "CLAUDE_ACCESS_TOKEN"
	EnvRefreshToken = "CLAUDE_REFRESH_TOKEN"
	EnvExpiresAt    = "CLAUDE_TOKEN_EXPIRES_AT"
)

// EnvSource reads credentials from environment variables. It is present only
// when the access token variable is set.
type EnvSource struct {
	lookup func(string) (string, bool)
}

// NewEnvSource creates a source backed by the process environment.
func NewEnvSource() *EnvSource {
	return &EnvSource{lookup: os.LookupEnv}
}

// NewEnvSourceFromLookup creates a source backed by lookup.
func NewEnvSourceFromLookup(lookup func(string) (string, bool)) *EnvSource {
	return &EnvSource{lookup: lookup}
}

func (s *EnvSource) Name() string { return "environment" }

func (s *EnvSource) Load(_ context.Context) (*Credentials, bool, error) {
	access, ok := s.lookup(EnvAccessToken)
	if !ok || access == "" {
		return nil, false, nil
	}

	creds := &Credentials{AccessToken: access}
	creds.RefreshToken, _ = s.lookup(EnvRefreshToken)

	if raw, ok := s.lookup(EnvExpiresAt); ok && raw != "" {
		expiresAt, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse %s: %w", EnvExpiresAt, err)
		}
		creds.ExpiresAt = expiresAt
	}
	return creds, true, nil
}
