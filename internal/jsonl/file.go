// Package jsonl implements an append-only file of JSON documents, one per line.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
)

// MaxLineSize bounds a single line, excluding the newline. Longer lines are
// refused by Append and skipped by Scan.
const MaxLineSize = 1 << 20

// ErrLineTooLong is returned by Append for documents over MaxLineSize.
var ErrLineTooLong = errors.New("jsonl: line exceeds MaxLineSize")

// File is an append-only JSON-lines file. Appends are serialized in-process and
// written with a single write on an O_APPEND descriptor, so concurrent writers in
// other processes never interleave partial lines.
type File struct {
	path string
	mu   sync.Mutex
}

// Open returns a File for path. The file is created lazily on first append.
func Open(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Append marshals v and writes it as one line.
func (f *File) Append(v interface{}) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("jsonl marshal: %w", err)
	}
	if len(line) > MaxLineSize {
		return fmt.Errorf("jsonl append %s (%d bytes): %w", f.path, len(line), ErrLineTooLong)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("jsonl open %s: %w", f.path, err)
	}
	if _, err := fh.Write(line); err != nil {
		fh.Close()
		return fmt.Errorf("jsonl write %s: %w", f.path, err)
	}
	return fh.Close()
}

// Scan calls fn for every non-empty line in file order, oldest first. fn returns
// false to stop early. A missing file scans as empty. Lines longer than
// MaxLineSize are skipped whole and scanning continues with the next line. The
// slice passed to fn is only valid until fn returns.
func (f *File) Scan(ctx context.Context, fn func(line []byte) bool) error {
	fh, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("jsonl open %s: %w", f.path, err)
	}
	defer fh.Close()

	br := bufio.NewReaderSize(fh, 64*1024)
	var line []byte
	oversized := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frag, err := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(frag) > MaxLineSize+1 {
				oversized = true
				line = line[:0]
			} else {
				line = append(line, frag...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("jsonl scan %s: %w", f.path, err)
		}

		if oversized {
			slog.WarnContext(ctx, "jsonl line exceeds limit, skipped", "path", f.path, "limit", MaxLineSize)
		} else if l := bytes.TrimRight(line, "\r\n"); len(l) > 0 {
			if !fn(l) {
				return nil
			}
		}
		line = line[:0]
		oversized = false

		if err != nil {
			return nil
		}
	}
}

// Tail returns up to n of the last non-empty lines, newest first.
func (f *File) Tail(ctx context.Context, n int) ([][]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	ring := make([][]byte, 0, n)
	start := 0
	err := f.Scan(ctx, func(line []byte) bool {
		cp := append([]byte(nil), line...)
		if len(ring) < n {
			ring = append(ring, cp)
		} else {
			ring[start] = cp
			start = (start + 1) % n
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(ring))
	for i := len(ring) - 1; i >= 0; i-- {
		out = append(out, ring[(start+i)%len(ring)])
	}
	return out, nil
}

// Writable reports whether the file can be opened for appending.
func (f *File) Writable() bool {
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false
	}
	fh.Close()
	return true
}

// Exists reports whether the file has been created.
func (f *File) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}
