package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// entryFileExtension is the file extension of stored entries.
const entryFileExtension = ".json"

// bytesPerMB converts the configured size cap to bytes.
const bytesPerMB = 1 << 20

// Common store errors.
var (
	ErrNotFound   = errors.New("cache entry not found")
	ErrExpired    = errors.New("cache entry expired")
	ErrInvalidKey = errors.New("cache key cannot be empty")
	ErrDisabled   = errors.New("cache is disabled")
)

// Stats summarises the contents of a store.
type Stats struct {
	Directory string
	Entries   int
	Expired   int
	Bytes     int64
	TTL       time.Duration
	MaxBytes  int64
}

// FileStore keeps entries as JSON files in a single directory.
// It is safe for concurrent use.
type FileStore struct {
	directory  string
	enabled    bool
	ttlSeconds int
	maxSizeMB  int

	// mu serialises writers against readers of the directory.
	mu sync.RWMutex
}

// NewFileStore creates a store rooted at directory, creating it if needed.
// A disabled store is returned without touching the filesystem; every
// operation on it reports ErrDisabled.
func NewFileStore(directory string, enabled bool, ttlSeconds, maxSizeMB int) (*FileStore, error) {
	if !enabled {
		return &FileStore{enabled: false}, nil
	}

	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}

	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStore{
		directory:  directory,
		enabled:    true,
		ttlSeconds: ttlSeconds,
		maxSizeMB:  maxSizeMB,
	}, nil
}

// Get returns the live entry stored under key.
// It returns ErrNotFound for a missing entry and ErrExpired for a stale one;
// stale files are removed in the background.
func (s *FileStore) Get(key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}
	if key == "" {
		return nil, ErrInvalidKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.pathFor(key)
	entry, err := readEntry(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if entry.IsExpired() {
		go func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			_ = os.Remove(path)
		}()
		return nil, ErrExpired
	}

	return entry, nil
}

// Set writes data under key with the store's TTL, replacing any previous entry.
func (s *FileStore) Set(key string, data json.RawMessage) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}

	entryData, err := json.Marshal(NewEntry(key, data, s.ttlSeconds))
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.pathFor(key)
	tmp := path + ".tmp"
	if writeErr := os.WriteFile(tmp, entryData, 0600); writeErr != nil {
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}
	if renameErr := os.Rename(tmp, path); renameErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}

	return nil
}

// Delete removes the entry under key. Deleting a missing entry is not an error.
func (s *FileStore) Delete(key string) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.pathFor(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes every entry file and returns how many were removed.
func (s *FileStore) Clear() (int, error) {
	if !s.enabled {
		return 0, ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.entryFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, f := range files {
		if rmErr := os.Remove(f.path); rmErr != nil {
			return removed, fmt.Errorf("failed to remove cache file %s: %w", filepath.Base(f.path), rmErr)
		}
		removed++
	}
	return removed, nil
}

// Prune deletes expired and unreadable entries, then, when a size cap is set,
// deletes the oldest entries until the store fits. It returns the number of
// files removed.
func (s *FileStore) Prune() (int, error) {
	if !s.enabled {
		return 0, ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.entryFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	live := files[:0]
	for _, f := range files {
		entry, readErr := readEntry(f.path)
		if readErr != nil || entry.IsExpired() {
			if os.Remove(f.path) == nil {
				removed++
			}
			continue
		}
		f.created = entry.CreatedAt
		live = append(live, f)
	}

	if s.maxSizeMB <= 0 {
		return removed, nil
	}

	var total int64
	for _, f := range live {
		total += f.size
	}

	limit := int64(s.maxSizeMB) * bytesPerMB
	sort.Slice(live, func(i, j int) bool { return live[i].created.Before(live[j].created) })
	for _, f := range live {
		if total <= limit {
			break
		}
		if os.Remove(f.path) == nil {
			total -= f.size
			removed++
		}
	}

	return removed, nil
}

// Stats walks the store and reports entry counts and total size.
func (s *FileStore) Stats() (Stats, error) {
	if !s.enabled {
		return Stats{}, ErrDisabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.entryFiles()
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		Directory: s.directory,
		TTL:       time.Duration(s.ttlSeconds) * time.Second,
		MaxBytes:  int64(s.maxSizeMB) * bytesPerMB,
	}
	for _, f := range files {
		st.Entries++
		st.Bytes += f.size
		if entry, readErr := readEntry(f.path); readErr != nil || entry.IsExpired() {
			st.Expired++
		}
	}
	return st, nil
}

// IsEnabled reports whether the store is active.
func (s *FileStore) IsEnabled() bool {
	return s.enabled
}

// Directory returns the directory holding the entry files.
func (s *FileStore) Directory() string {
	return s.directory
}

// TTLSeconds returns the TTL applied to new entries.
func (s *FileStore) TTLSeconds() int {
	return s.ttlSeconds
}

type entryFile struct {
	path    string
	size    int64
	created time.Time
}

// entryFiles lists the entry files of the store. Callers hold mu.
func (s *FileStore) entryFiles() ([]entryFile, error) {
	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	files := make([]entryFile, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != entryFileExtension {
			continue
		}
		info, infoErr := de.Info()
		if infoErr != nil {
			continue
		}
		files = append(files, entryFile{
			path: filepath.Join(s.directory, de.Name()),
			size: info.Size(),
		})
	}
	return files, nil
}

// pathFor maps a key to its file, replacing path separators.
func (s *FileStore) pathFor(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(s.directory, safe+entryFileExtension)
}

func readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", unmarshalErr)
	}
	return &entry, nil
}
