// ABOUTME: Config hot reload using fsnotify.
// ABOUTME: Re-reads and validates the file on every write, keeping the old config on failure.
package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch monitors path and calls onChange with each successfully reloaded and
// validated Config. It runs until ctx is canceled.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("config")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	logger.Info("watching for changes", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves show up as Create on the replaced file.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := LoadFile(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				logger.Error("reload failed, keeping previous config", zap.String("path", path), zap.Error(err))
				continue
			}

			logger.Info("reloaded", zap.String("path", path))
			onChange(cfg)

			// The inode changes on atomic save.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", zap.Error(err))
		}
	}
}
