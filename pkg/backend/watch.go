package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-ingests files below dir as they change until ctx is done. New
// subdirectories are picked up as they appear.
func (in *Ingester) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	log := in.logger()
	log.Info("watching for changes", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			in.handleEvent(ctx, watcher, dir, event)
		}
	}
}

func (in *Ingester) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, dir string, event fsnotify.Event) {
	log := in.logger()

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := watcher.Add(event.Name); err != nil {
				log.Warn("failed to watch directory", "dir", event.Name, "error", err)
			}
			return
		}
	}
	if !Supported(event.Name) {
		return
	}

	rel, err := filepath.Rel(dir, event.Name)
	if err != nil {
		return
	}
	pageURL := filepath.ToSlash(rel)

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if err := in.Store.DeleteURL(ctx, pageURL); err != nil {
			log.Warn("failed to remove page", "url", pageURL, "error", err)
		}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if _, err := in.IngestFile(ctx, event.Name, pageURL); err != nil {
			log.Warn("failed to ingest page", "url", pageURL, "error", err)
		}
	}
}
