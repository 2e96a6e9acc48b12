package session

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Run follows the stream until ctx is canceled. File system events trigger a
// refresh; a ticker covers file systems without notifications. Refreshes are
// rate limited so a busy writer does not start a search per write.
func (s *Session) Run(ctx context.Context) error {
	watcher := s.watch()
	if watcher != nil {
		defer watcher.Close()
	}
	targets := map[string]struct{}{
		filepath.Clean(s.streamFile): {},
		filepath.Clean(s.searchFile): {},
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		events, errs = watcher.Events, watcher.Errors
	}

	_ = s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-s.wake:
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if _, tracked := targets[filepath.Clean(event.Name)]; !tracked || event.Op&watchOps == 0 {
				continue
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("file watcher error", slog.String("error", err.Error()))
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil
		}
		_ = s.refresh(ctx)
	}
}

// watch returns a watcher on the directories of the stream and search files,
// or nil when watching is unavailable and polling has to do.
func (s *Session) watch() *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("file watching unavailable, polling only", slog.String("error", err.Error()))
		return nil
	}
	dirs := map[string]struct{}{
		filepath.Dir(s.streamFile): {},
		filepath.Dir(s.searchFile): {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			s.logger.Warn("watch directory failed", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}
	return watcher
}
