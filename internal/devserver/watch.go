package devserver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchScenario reloads the scenario at path whenever it changes, until ctx
// is done. The parent directory is watched so editors that replace the file
// are seen. A scenario that fails to parse is logged and the previous one
// stays active.
func (s *Server) WatchScenario(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating scenario watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving scenario path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	s.logger.Info(ctx, "watching scenario", zap.String("path", abs))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.reloadFrom(ctx, abs)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn(ctx, "scenario watcher error", zap.Error(err))
		}
	}
}

func (s *Server) reloadFrom(ctx context.Context, path string) {
	scenario, err := LoadScenario(path)
	if err != nil {
		s.metrics.ReloadsTotal.WithLabelValues("error").Inc()
		s.logger.Warn(ctx, "scenario reload failed", zap.String("path", path), zap.Error(err))
		return
	}
	s.Reload(scenario)
	s.logger.Info(ctx, "scenario reloaded",
		zap.String("path", path),
		zap.Int("tasks", len(scenario.Tasks)),
		zap.Int("documents", len(scenario.Documents)),
	)
}
