package sedex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/datarocks/lwgs-searchindex-client/internal/log"
)

// ReceiptHandler consumes one parsed receipt.
type ReceiptHandler func(ctx context.Context, receipt *Receipt) error

// Watcher observes the Sedex receipt directory and hands every new
// receipt file to the handler.
type Watcher struct {
	dir     string
	handler ReceiptHandler
	logger  zerolog.Logger
}

// NewWatcher builds a watcher over dir, creating the directory if it does
// not exist.
func NewWatcher(dir string, handler ReceiptHandler) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create receipt directory: %w", err)
	}
	return &Watcher{
		dir:     dir,
		handler: handler,
		logger:  log.WithComponent("sedex-watcher"),
	}, nil
}

// Run watches the directory until ctx is cancelled. Receipts already
// present at startup are processed first so nothing that arrived while
// the client was down is missed.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	if err := w.processExisting(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				w.processFile(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("file watcher error")
		}
	}
}

// processExisting drains receipt files that predate the watch.
func (w *Watcher) processExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to list receipt directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.processFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

// processFile parses one receipt file and hands it to the handler. The
// file is removed after successful handling so a restart does not replay
// it; failures leave it in place for the next pass.
func (w *Watcher) processFile(ctx context.Context, path string) {
	if !strings.HasSuffix(strings.ToLower(path), ".xml") {
		return
	}
	receipt, err := ReadReceiptFromFile(path)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable receipt")
		return
	}
	if err := w.handler(ctx, receipt); err != nil {
		w.logger.Error().Err(err).Str("path", path).Msg("failed to process receipt")
		return
	}
	if err := os.Remove(path); err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("failed to remove processed receipt")
	}
}
