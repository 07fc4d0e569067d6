package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/reloquent/parity/internal/validation"
)

// FileSink writes one JSON document per summary into a directory.
type FileSink struct {
	dir string
}

// NewFileSink creates a sink writing into dir. The directory is created on
// first use.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (f *FileSink) fail(op string, err error) error {
	return &Error{Backend: "file", Op: op, Cause: err}
}

// Persist implements validation.Sink.
func (f *FileSink) Persist(_ context.Context, s *validation.Summary) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", f.fail("persist", fmt.Errorf("creating results directory: %w", err))
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", f.fail("persist", fmt.Errorf("marshaling summary: %w", err))
	}
	name := fmt.Sprintf("%s-%s.json", s.CompletedAt.UTC().Format("20060102T150405Z"), s.ID)
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", f.fail("persist", fmt.Errorf("writing summary: %w", err))
	}
	return "saved to " + path, nil
}

// List returns the most recent summaries first.
func (f *FileSink) List(_ context.Context, limit int) ([]Entry, error) {
	files, err := os.ReadDir(f.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, f.fail("list", fmt.Errorf("reading results directory: %w", err))
	}

	entries := []Entry{}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		s, err := f.read(filepath.Join(f.dir, file.Name()))
		if err != nil {
			continue
		}
		entries = append(entries, EntryOf(s))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CompletedAt.After(entries[j].CompletedAt) })

	if limit = limitOrDefault(limit); len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the summary with the given ID.
func (f *FileSink) Get(_ context.Context, id string) (*validation.Summary, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	matches, err := filepath.Glob(filepath.Join(f.dir, "*-"+id+".json"))
	if err != nil {
		return nil, f.fail("get", err)
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	s, err := f.read(matches[0])
	if err != nil {
		return nil, f.fail("get", err)
	}
	return s, nil
}

func (f *FileSink) read(path string) (*validation.Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	s := &validation.Summary{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

func (f *FileSink) Close() error {
	return nil
}
