package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/piwebhook/internal/metrics"
)

// Loader reads the product catalog YAML and watches it for changes. With an empty
// path it serves the built-in catalog and never reloads.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *Catalog
	onChange []func(*Catalog)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	if path == "" {
		l.current = Default()
		return l, nil
	}
	c, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = c
	return l, nil
}

// Catalog returns the current catalog.
func (l *Loader) Catalog() *Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked after every successful reload.
func (l *Loader) OnChange(fn func(*Catalog)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that reloads the catalog on file changes.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	if l.path == "" {
		return func() {}, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalog watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("catalog watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						// Keep serving the previous catalog.
						slog.Warn("catalog reload skipped", "path", l.path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("catalog watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the catalog file.
func (l *Loader) Reload() (*Catalog, error) {
	if l.path == "" {
		return l.Catalog(), nil
	}
	c, err := l.load()
	if err != nil {
		metrics.CatalogReloads.WithLabelValues("error").Inc()
		return nil, err
	}
	l.mu.Lock()
	l.current = c
	callbacks := make([]func(*Catalog), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	metrics.CatalogReloads.WithLabelValues("success").Inc()
	for _, fn := range callbacks {
		fn(c)
	}
	return c, nil
}

func (l *Loader) load() (*Catalog, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", l.path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", l.path, err)
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	if c.FallbackName == "" {
		c.FallbackName = DefaultFallbackName
	}
	c.index()
	return &c, nil
}
