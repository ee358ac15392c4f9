// Package catalog – directory watching.
//
// Watch keeps a directory-backed catalog in sync with edits to its YAML
// files. Reloads are best-effort and debounced: editors tend to emit bursts
// of write events for a single save, and a failed reload keeps the previous
// registry rather than leaving the engine without a schema.
package catalog

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// watchDebounce coalesces bursts of filesystem events into one reload.
const watchDebounce = 500 * time.Millisecond

// Watch reloads the catalog whenever a file in its directory changes, until
// ctx is cancelled. It blocks; run it in its own goroutine. Returns an error
// only when the watcher cannot be established (a bad directory), never for
// individual reload failures, which are logged and skipped.
func (c *Catalog) Watch(ctx context.Context, log zerolog.Logger) error {
	if c.dir == "" {
		return nil // in-memory catalog, nothing to watch
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(c.dir); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("catalog watcher error")
		case <-timerC:
			timerC = nil
			timer = nil
			if err := c.Reload(); err != nil {
				log.Warn().Err(err).Str("dir", c.dir).Msg("catalog reload failed; keeping previous schema")
				continue
			}
			log.Info().Str("dir", c.dir).Strs("types", c.Types()).Msg("catalog reloaded")
		}
	}
}
