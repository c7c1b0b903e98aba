package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchDrawing перечитывает YAML-файл при изменении и отдаёт новые значения в fn.
// Следит за каталогом файла, чтобы ловить сохранение через rename.
// Невалидный файл логируется и пропускается, прежние значения остаются в силе.
func WatchDrawing(ctx context.Context, path string, fn func(DrawingConfig)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				d, err := LoadDrawing(target)
				if err != nil {
					log.Printf("[CONFIG] reload %s: %v", target, err)
					continue
				}
				log.Printf("[CONFIG] reloaded %s", target)
				fn(d)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[CONFIG] watcher error: %v", err)
			}
		}
	}()
	return nil
}
