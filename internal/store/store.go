package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/kondo/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketConfig  = []byte("config")
	bucketHistory = []byte("history")
)

const (
	configKey = "record"

	// Fixed width so that keys sort chronologically.
	historyKeyLayout = "2006-01-02T15:04:05.000000000Z"
)

// CleanRecord is one successful clean kept in the history bucket.
type CleanRecord struct {
	Path        string             `json:"path"`
	ProjectType domain.ProjectType `json:"projectType"`
	Freed       uint64             `json:"freed"`
	CleanedAt   time.Time          `json:"cleanedAt"`
}

// Store implements domain.ConfigStore using BoltDB.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// Open opens the database at path. An empty path gives a memory-only store.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketConfig, bucketHistory} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, cache: make(map[string][]byte)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) get(bucket []byte, key string, dest interface{}) (bool, error) {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return true, json.Unmarshal(data, dest)
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false, nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return true, json.Unmarshal(data, dest)
}

func (s *Store) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucket).Put([]byte(key), data)
		})
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cache[string(bucket)+":"+key] = data
	s.mu.Unlock()
	return nil
}

// === Configuration record ===

// GetConfig returns the stored record and whether one was found.
func (s *Store) GetConfig() (domain.Config, bool, error) {
	var cfg domain.Config
	ok, err := s.get(bucketConfig, configKey, &cfg)
	if err != nil {
		return domain.Config{}, false, fmt.Errorf("reading config record: %w", err)
	}
	return cfg, ok, nil
}

// PutConfig replaces the stored record.
func (s *Store) PutConfig(cfg domain.Config) error {
	if err := s.set(bucketConfig, configKey, cfg); err != nil {
		return fmt.Errorf("writing config record: %w", err)
	}
	return nil
}

// === Clean history (key: UTC timestamp + path) ===

// AppendHistory records a successful clean.
func (s *Store) AppendHistory(rec CleanRecord) error {
	if rec.CleanedAt.IsZero() {
		rec.CleanedAt = time.Now()
	}
	key := rec.CleanedAt.UTC().Format(historyKeyLayout) + "|" + rec.Path
	return s.set(bucketHistory, key, rec)
}

// History returns every recorded clean, oldest first.
func (s *Store) History() ([]CleanRecord, error) {
	if s.db == nil {
		return s.memoryHistory()
	}

	var records []CleanRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).ForEach(func(_, v []byte) error {
			var rec CleanRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

func (s *Store) memoryHistory() ([]CleanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := string(bucketHistory) + ":"
	var keys []string
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	records := make([]CleanRecord, 0, len(keys))
	for _, k := range keys {
		var rec CleanRecord
		if err := json.Unmarshal(s.cache[k], &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// TotalFreed sums the freed bytes of every recorded clean.
func (s *Store) TotalFreed() (uint64, error) {
	records, err := s.History()
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, r := range records {
		total += r.Freed
	}
	return total, nil
}
