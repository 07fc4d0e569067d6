package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/reloquent/parity/internal/validation"
)

var (
	summariesBucket = []byte("summaries")
	byTimeBucket    = []byte("by_time")
)

// BoltSink keeps a local history of summaries in a bbolt file. Summaries are
// keyed by ID; a second bucket indexes IDs by completion time.
type BoltSink struct {
	db *bolt.DB
}

// OpenBoltSink opens or creates the database at path.
func OpenBoltSink(path string) (*BoltSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{summariesBucket, byTimeBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history buckets: %w", err)
	}
	return &BoltSink{db: db}, nil
}

func timeKey(s *validation.Summary) []byte {
	return []byte(s.CompletedAt.UTC().Format("20060102T150405.000000000Z") + "|" + s.ID)
}

// Persist implements validation.Sink.
func (b *BoltSink) Persist(_ context.Context, s *validation.Summary) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", &Error{Backend: "bolt", Op: "persist", Cause: fmt.Errorf("marshaling summary: %w", err)}
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(summariesBucket).Put([]byte(s.ID), data); err != nil {
			return err
		}
		return tx.Bucket(byTimeBucket).Put(timeKey(s), []byte(s.ID))
	})
	if err != nil {
		return "", &Error{Backend: "bolt", Op: "persist", Cause: err}
	}
	return "saved to " + b.db.Path(), nil
}

// List returns the most recent summaries first.
func (b *BoltSink) List(_ context.Context, limit int) ([]Entry, error) {
	limit = limitOrDefault(limit)
	entries := []Entry{}
	err := b.db.View(func(tx *bolt.Tx) error {
		summaries := tx.Bucket(summariesBucket)
		c := tx.Bucket(byTimeBucket).Cursor()
		for k, id := c.Last(); k != nil && len(entries) < limit; k, id = c.Prev() {
			data := summaries.Get(id)
			if data == nil {
				continue
			}
			var s validation.Summary
			if err := json.Unmarshal(data, &s); err != nil {
				return fmt.Errorf("parsing summary %s: %w", id, err)
			}
			entries = append(entries, EntryOf(&s))
		}
		return nil
	})
	if err != nil {
		return nil, &Error{Backend: "bolt", Op: "list", Cause: err}
	}
	return entries, nil
}

// Get returns the summary with the given ID.
func (b *BoltSink) Get(_ context.Context, id string) (*validation.Summary, error) {
	var data []byte
	b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(summariesBucket).Get([]byte(id)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if data == nil {
		return nil, ErrNotFound
	}
	s := &validation.Summary{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, &Error{Backend: "bolt", Op: "get", Cause: fmt.Errorf("parsing summary: %w", err)}
	}
	return s, nil
}

func (b *BoltSink) Close() error {
	return b.db.Close()
}
