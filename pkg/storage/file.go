package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

// File implements Storage with two indented JSON documents, one for state
// and one for history. The layout matches what a scheduled CI job commits
// back to its repository.
type File struct {
	statePath   string
	historyPath string
}

// NewFile creates a file store. Parent directories are created on demand.
func NewFile(statePath, historyPath string) (*File, error) {
	for _, p := range []string{statePath, historyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	return &File{statePath: statePath, historyPath: historyPath}, nil
}

func (f *File) LoadState(_ context.Context) (*model.State, error) {
	var state model.State
	found, err := readJSON(f.statePath, &state)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !found {
		return model.NewState(), nil
	}
	return normalizeState(&state), nil
}

func (f *File) SaveState(_ context.Context, state *model.State) error {
	if err := writeJSON(f.statePath, normalizeState(state)); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (f *File) LoadHistory(_ context.Context) ([]model.Snapshot, error) {
	var history []model.Snapshot
	if _, err := readJSON(f.historyPath, &history); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}

func (f *File) SaveHistory(_ context.Context, history []model.Snapshot) error {
	if history == nil {
		history = []model.Snapshot{}
	}
	if err := writeJSON(f.historyPath, history); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// writeJSON replaces path through a temporary file in the same directory.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
