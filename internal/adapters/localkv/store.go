// Package localkv provides a file-backed key-value store implementing
// the local persistence port. It holds the serialized session, device
// id, and trial-history entries in a single JSON document on disk.
package localkv

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store persists string keys to a JSON file. Writes go through a temp
// file and rename so a crash mid-write never corrupts existing state.
// A corrupt or unreadable file is treated as empty rather than fatal:
// the caller re-synthesizes a fresh guest session.
// Concurrency: methods are safe for concurrent use within one process.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger

	loaded bool
	items  map[string]json.RawMessage
}

// StoreOptions groups dependencies for New.
type StoreOptions struct {
	Path   string       // Required: file path for the backing JSON document
	Logger *slog.Logger // Optional: structured logger
}

// New creates a file-backed store. The file is loaded lazily on first use.
func New(opts StoreOptions) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("local store path is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "localkv")
	}

	return &Store{
		path:   opts.Path,
		logger: logger,
	}, nil
}

// Get returns the stored value for key, with ok=false when absent.
func (s *Store) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, false, err
	}

	raw, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}

	var value []byte
	if err := json.Unmarshal(raw, &value); err != nil {
		// A single unreadable entry is dropped, not propagated.
		if s.logger != nil {
			s.logger.Warn("discarding unreadable local entry", "key", key, "error", err)
		}
		delete(s.items, key)
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores value under key and flushes to disk.
func (s *Store) Set(key string, value []byte) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	s.items[key] = raw

	return s.flush()
}

// Delete removes key and flushes to disk. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	if _, ok := s.items[key]; !ok {
		return nil
	}
	delete(s.items, key)

	return s.flush()
}

// load reads the backing file once. Missing file means empty store;
// malformed content is discarded with a log line.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}

	s.items = make(map[string]json.RawMessage)
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read local store: %w", err)
	}

	var items map[string]json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		if s.logger != nil {
			s.logger.Warn("local store file corrupt, starting empty", "path", s.path, "error", err)
		}
		return nil
	}
	s.items = items
	return nil
}

// flush writes the full document via temp file + rename.
func (s *Store) flush() error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("marshal local store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create local store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".localkv-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}
