package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// FileStore keeps the subscriber list in a JSON file, mirroring it in memory.
// Good enough for a handful of subscribers mutated only by user commands.
type FileStore struct {
	path string
	log  *slog.Logger

	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewFileStore loads the subscriber file at path, treating a missing file as
// an empty list.
func NewFileStore(path string, log *slog.Logger) (*FileStore, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &FileStore{path: path, log: log, ids: make(map[int64]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("no subscribers file found, starting empty", slog.String("path", path))
			return s, nil
		}
		return nil, fmt.Errorf("read subscribers file: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode subscribers file: %w", err)
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}

	log.Info("loaded subscribers", slog.Int("count", len(s.ids)))
	return s, nil
}

func (s *FileStore) Add(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[chatID]; exists {
		return false, nil
	}

	s.ids[chatID] = struct{}{}
	if err := s.persist(); err != nil {
		delete(s.ids, chatID)
		return false, err
	}
	return true, nil
}

func (s *FileStore) Remove(_ context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[chatID]; !exists {
		return false, nil
	}

	delete(s.ids, chatID)
	if err := s.persist(); err != nil {
		s.ids[chatID] = struct{}{}
		return false, err
	}
	return true, nil
}

func (s *FileStore) Snapshot(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedIDs(s.ids), nil
}

// persist writes the list to a temporary file and renames it over the store
// file, so a crash mid-write cannot leave a truncated list behind.
func (s *FileStore) persist() error {
	data, err := json.Marshal(sortedIDs(s.ids))
	if err != nil {
		return fmt.Errorf("encode subscribers: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write subscribers file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace subscribers file: %w", err)
	}
	return nil
}

func sortedIDs(ids map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
