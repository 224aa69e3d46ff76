// Package history rebuilds payment history from the audit log. Every query is a
// full linear scan of the log file; there is no index and no cache.
package history

import (
	"context"
	"encoding/json"

	"github.com/gyaneshwarpardhi/piwebhook/internal/auditlog"
)

// Defaults are applied by the HTTP layer when a query omits the limit; the
// Reader itself takes limits literally, capped at MaxLimit.
const (
	DefaultCompletionsLimit = 10
	DefaultEntriesLimit     = 50
	MaxLimit                = 1000
)

// Reader answers history queries from an audit store.
type Reader struct {
	store auditlog.Store
}

// NewReader returns a Reader over store.
func NewReader(store auditlog.Store) *Reader {
	return &Reader{store: store}
}

// RecentCompletions returns the payloads of the last limit completion_succeeded
// events, newest first. Lines that fail to parse are skipped. A limit of zero or
// less returns an empty result.
//
// This is deliberately not "first limit matches, reversed": the scan keeps the
// newest limit matches in a sliding window, so the result stays current as the
// log grows past limit completions.
func (r *Reader) RecentCompletions(ctx context.Context, limit int) ([]map[string]interface{}, error) {
	limit = clamp(limit)
	if limit == 0 {
		return []map[string]interface{}{}, nil
	}

	window := make([]map[string]interface{}, 0, limit)
	err := r.store.Scan(ctx, func(ev auditlog.Event) bool {
		if ev.Message != auditlog.TagCompletionSucceeded || ev.Data == nil {
			return true
		}
		if len(window) == limit {
			copy(window, window[1:])
			window = window[:limit-1]
		}
		window = append(window, ev.Data)
		return true
	})
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(window))
	for i := len(window) - 1; i >= 0; i-- {
		out = append(out, window[i])
	}
	return out, nil
}

// RecentEntries returns the last limit audit lines of any tag, newest first. A
// limit of zero or less returns an empty result.
func (r *Reader) RecentEntries(ctx context.Context, limit int) ([]json.RawMessage, error) {
	limit = clamp(limit)
	if limit == 0 {
		return []json.RawMessage{}, nil
	}
	return r.store.Tail(ctx, limit)
}

func clamp(limit int) int {
	if limit <= 0 {
		return 0
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
