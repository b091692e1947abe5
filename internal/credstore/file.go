package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pitchside/pitchside-go/internal/types"
)

// fileStore serializes the record to a single JSON file. Writes go to a
// temp file in the same directory followed by rename, so a crash mid-
// write leaves either the old record or the new one, never a mix.
type fileStore struct {
	mu   sync.Mutex
	path string
}

func (s *fileStore) Write(ctx context.Context, set *types.StoredCredentialSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("credstore: encode record: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credstore: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("credstore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("credstore: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("credstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("credstore: commit record: %w", err)
	}
	return nil
}

func (s *fileStore) Read(ctx context.Context) (*types.StoredCredentialSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credstore: read record: %w", err)
	}
	var set types.StoredCredentialSet
	if err := json.Unmarshal(data, &set); err != nil {
		// Undecodable on-disk data reads as an incomplete set; the
		// session manager treats it as corrupt and re-authenticates.
		return &types.StoredCredentialSet{}, nil
	}
	return &set, nil
}

func (s *fileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("credstore: clear record: %w", err)
	}
	return nil
}

func (s *fileStore) Close() error { return nil }
