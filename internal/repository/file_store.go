package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var collectionName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// FileStore keeps each collection as a pretty-printed JSON array in
// <dir>/<collection>.json.
//
// Appends to the same collection are serialized by a per-collection mutex
// held across the whole read-modify-write cycle. The new array is written to
// a temp file and renamed over the old one, so readers see either the old or
// the new contents, never a partial write.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Path returns the file backing a collection.
func (s *FileStore) Path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *FileStore) lock(collection string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		s.locks[collection] = l
	}
	return l
}

func (s *FileStore) Append(ctx context.Context, collection string, record any) error {
	if err := checkName(collection); err != nil {
		return persistErr(collection, "append", err)
	}
	if err := ctx.Err(); err != nil {
		return persistErr(collection, "append", err)
	}

	entry, err := json.Marshal(record)
	if err != nil {
		return persistErr(collection, "append", fmt.Errorf("encode record: %w", err))
	}

	l := s.lock(collection)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(collection)
	if err != nil {
		return persistErr(collection, "append", err)
	}
	records = append(records, entry)

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return persistErr(collection, "append", fmt.Errorf("encode collection: %w", err))
	}
	if err := writeFileAtomic(s.Path(collection), out); err != nil {
		return persistErr(collection, "append", err)
	}
	return nil
}

func (s *FileStore) Read(ctx context.Context, collection string) ([]json.RawMessage, error) {
	if err := checkName(collection); err != nil {
		return nil, persistErr(collection, "read", err)
	}
	records, err := s.load(collection)
	if err != nil {
		return nil, persistErr(collection, "read", err)
	}
	return records, nil
}

func (s *FileStore) Raw(ctx context.Context, collection string) ([]byte, error) {
	if err := checkName(collection); err != nil {
		return nil, ErrCollectionNotFound
	}
	data, err := os.ReadFile(s.Path(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, persistErr(collection, "read", err)
	}
	return data, nil
}

// load returns the records currently persisted for collection. A missing
// or blank file is an empty collection; anything else that is not a JSON
// array is an error rather than silently discarded history.
func (s *FileStore) load(collection string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.Path(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []json.RawMessage{}, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace collection: %w", err)
	}
	return nil
}

func checkName(collection string) error {
	if !collectionName.MatchString(collection) {
		return fmt.Errorf("invalid collection name %q", collection)
	}
	return nil
}
