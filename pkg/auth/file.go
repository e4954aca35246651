package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const oauthKey = "claudeAiOauth"

// FileSource reads the Claude CLI credentials file.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the credentials file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// DefaultCredentialsPath returns ~/.claude/.credentials.json.
func DefaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".claude", ".credentials.json")
	}
	return filepath.Join(home, ".claude", ".credentials.json")
}

func (s *FileSource) Name() string { return "file " + s.path }

func (s *FileSource) Load(_ context.Context) (*Credentials, bool, error) {
	doc, err := s.read()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	raw, ok := doc[oauthKey]
	if !ok {
		return nil, false, nil
	}
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", oauthKey, err)
	}
	if creds.AccessToken == "" {
		return nil, false, nil
	}
	return &creds, true, nil
}

// Save writes the token fields back, keeping every other key in the file.
func (s *FileSource) Save(_ context.Context, creds *Credentials) error {
	doc, err := s.read()
	if err != nil {
		return err
	}

	oauth := map[string]any{}
	if raw, ok := doc[oauthKey]; ok {
		if err := json.Unmarshal(raw, &oauth); err != nil {
			return fmt.Errorf("parse %s: %w", oauthKey, err)
		}
	}
	oauth["accessToken"] = creds.AccessToken
	oauth["refreshToken"] = creds.RefreshToken
	oauth["expiresAt"] = creds.ExpiresAt

	encoded, err := json.Marshal(oauth)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	doc[oauthKey] = encoded

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

func (s *FileSource) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}
	return doc, nil
}
