package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch reloads the store when the config file changes on disk and calls fn
// with the new value. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, log zerolog.Logger, fn func(Config)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// editors replace the file, so watch the directory
	if err := watcher.Add(dir); err != nil {
		return err
	}

	log.Debug().Str("path", s.path).Msg("watching config")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			previous := s.Config()
			if err := s.Load(); err != nil {
				log.Warn().Err(err).Msg("config reload failed")
				continue
			}
			if current := s.Config(); current != previous {
				log.Info().Str("adb_path", current.AdbPath).Msg("config changed")
				fn(current)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watcher error")
		}
	}
}
