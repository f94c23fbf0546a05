// Package importer loads threads into the local thread cache from JSON
// Lines files, where each line is one JSON-encoded thread and blank lines
// are skipped, and from single-message .eml files.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// Extension is the extension of JSON Lines thread files.
const Extension = ".jsonl"

const (
	batchSize      = 500
	maxLineSize    = 4 << 20
	dirConcurrency = 4
)

// DefaultDebounce is how long Watch waits after the last write to a file
// before importing it.
var DefaultDebounce = 200 * time.Millisecond

// Importer writes threads read from files into a thread store.
type Importer struct {
	store    driven.ThreadStore
	debounce time.Duration
}

// New creates an importer for store.
func New(store driven.ThreadStore) *Importer {
	return &Importer{store: store, debounce: DefaultDebounce}
}

// ImportFile imports every thread in path and returns how many were saved.
// Files ending in .eml are read as one message; anything else is read as
// JSON Lines. Threads are saved in batches, so a failure part-way leaves
// earlier batches in the store.
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	if strings.EqualFold(filepath.Ext(path), EMLExtension) {
		return im.importEML(ctx, path)
	}
	return im.importJSONL(ctx, path)
}

func (im *Importer) importJSONL(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		batch []domain.Thread
		total int
		line  int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := im.store.SaveThreads(ctx, batch); err != nil {
			return fmt.Errorf("saving threads from %s: %w", path, err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var t domain.Thread
		if err := json.Unmarshal([]byte(text), &t); err != nil {
			return total, fmt.Errorf("%s:%d: %w: %v", path, line, domain.ErrInvalidInput, err)
		}
		if t.ID == "" {
			return total, fmt.Errorf("%s:%d: %w: thread has no id", path, line, domain.ErrInvalidInput)
		}
		batch = append(batch, t)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := flush(); err != nil {
		return total, err
	}

	logger.Debug("Imported %d threads from %s", total, path)
	return total, nil
}

// ImportDir imports every .jsonl and .eml file in dir concurrently. The
// first error cancels the remaining imports.
func (im *Importer) ImportDir(ctx context.Context, dir string) (int, error) {
	files, err := threadFiles(dir)
	if err != nil {
		return 0, err
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dirConcurrency)
	for _, path := range files {
		g.Go(func() error {
			n, err := im.ImportFile(gctx, path)
			total.Add(int64(n))
			return err
		})
	}
	err = g.Wait()
	return int(total.Load()), err
}

// isThreadFile reports whether name has an importable extension.
func isThreadFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == Extension || ext == EMLExtension
}

func threadFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isThreadFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Watch re-imports .jsonl and .eml files in dir whenever they are created or
// written, until ctx is cancelled. onImport may be nil.
func (im *Importer) Watch(ctx context.Context, dir string, onImport func(domain.ImportResult)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("Closing watcher: %v", err)
		}
	}()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Debug("Watching %s for thread files", dir)

	due := make(chan string, 16)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isThreadFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path := event.Name
			if t, exists := timers[path]; exists {
				t.Reset(im.debounce)
				continue
			}
			timers[path] = time.AfterFunc(im.debounce, func() {
				select {
				case due <- path:
				case <-ctx.Done():
				}
			})

		case path := <-due:
			delete(timers, path)
			n, err := im.ImportFile(ctx, path)
			if err != nil {
				logger.Warn("Importing %s: %v", path, err)
			}
			if onImport != nil {
				onImport(domain.ImportResult{Path: path, Count: n, Err: err})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}
