package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/frame"
)

// watchConfig reloads the log level whenever path is written. The
// directory is watched so editors that replace the file are seen.
func watchConfig(ctx context.Context, path string, level *slog.LevelVar, log *slog.Logger) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	target := filepath.Clean(path)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloadLevel(path, level, log)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config watch", "error", err)
			}
		}
	}()

	return func() {
		watcher.Close()
		<-done
	}, nil
}

func reloadLevel(path string, level *slog.LevelVar, log *slog.Logger) {
	cfg, err := frame.LoadConfig(path)
	if err != nil {
		log.Warn("config reload", "error", err)
		return
	}
	if l := cfg.Log.SlogLevel(); l != level.Level() {
		level.Set(l)
		log.Info("log level changed", "level", l)
	}
}
