// Package file persists the key/value document as a single JSON file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"mergealert/internal/storage"
)

var ErrPathRequired = errors.New("storage path not provided")

// Store keeps every key in memory and rewrites the whole document on each
// mutation, so a batch of keys lands on disk in one rename.
type Store struct {
	mu     sync.RWMutex
	fs     afero.Fs
	path   string
	values map[string]string
	closed bool
}

// New opens (or creates on first write) the document at path on fs.
func New(fs afero.Fs, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	s := &Store{fs: fs, path: path, values: make(map[string]string)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, storage.ErrClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) SetMany(_ context.Context, values map[string]string) error {
	if err := storage.ValidateKeys(values); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	next := s.cloneLocked()
	for k, v := range values {
		next[k] = v
	}
	if err := s.writeLocked(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	next := s.cloneLocked()
	changed := false
	for _, k := range keys {
		if _, ok := next[k]; ok {
			delete(next, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := s.writeLocked(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) cloneLocked() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Store) load() error {
	file, err := s.fs.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open storage file: %w", err)
	}
	defer file.Close()

	var stored map[string]string
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode storage file: %w", err)
	}
	for k, v := range stored {
		if strings.TrimSpace(k) == "" {
			continue
		}
		s.values[k] = v
	}
	return nil
}

// writeLocked replaces the document atomically. Must be called with mu held.
func (s *Store) writeLocked(values map[string]string) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	tmp := s.path + ".tmp"
	file, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create storage temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(values); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("encode storage file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("sync storage file: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("close storage temp file: %w", err)
	}

	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}
