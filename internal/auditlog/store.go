package auditlog

import (
	"context"
	"encoding/json"

	"github.com/gyaneshwarpardhi/piwebhook/internal/jsonl"
)

// Store is the narrow append/scan surface the rest of the service depends on. The
// file implementation scans linearly; an indexed store can replace it without
// touching the fulfillment or dispatch code.
type Store interface {
	Append(ctx context.Context, ev Event) error
	// Scan visits events oldest first and stops when fn returns false. Lines that
	// do not parse as events are skipped.
	Scan(ctx context.Context, fn func(Event) bool) error
	// Tail returns up to n raw lines, newest first, regardless of tag.
	Tail(ctx context.Context, n int) ([]json.RawMessage, error)
	// Healthy reports whether the store accepts writes.
	Healthy() bool
}

// FileStore is a Store backed by a JSON-lines file.
type FileStore struct {
	f *jsonl.File
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{f: jsonl.Open(path)}
}

func (s *FileStore) Append(_ context.Context, ev Event) error {
	return s.f.Append(ev)
}

func (s *FileStore) Scan(ctx context.Context, fn func(Event) bool) error {
	return s.f.Scan(ctx, func(line []byte) bool {
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil || ev.Message == "" {
			return true
		}
		return fn(ev)
	})
}

func (s *FileStore) Tail(ctx context.Context, n int) ([]json.RawMessage, error) {
	lines, err := s.f.Tail(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(lines))
	for _, l := range lines {
		if json.Valid(l) {
			out = append(out, json.RawMessage(l))
		}
	}
	return out, nil
}

func (s *FileStore) Healthy() bool { return s.f.Writable() }
