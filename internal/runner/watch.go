package runner

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "schedbot/pkg/logx"
)

// watch runs the per-channel file watcher until ctx is cancelled.
//
// The watch is on the file's directory, not the file itself, so the atomic
// temp+rename writes the store performs (and external editors that replace
// the file) are still observed. Events are debounced so a multi-step edit
// triggers one reload for its final state.
//
// When fsnotify gets into a bad state the watcher may stop delivering events
// or close its channels. Self-heal by recreating the watcher with a small
// jittered exponential backoff.
func (s *Service) watch(ctx context.Context, ch *channel) {
	dir := filepath.Dir(ch.mapping.ConfigPath)
	file := filepath.Base(ch.mapping.ConfigPath)

	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		ch.log.Debug("schedule change detected; scheduling reload")
		timer = time.AfterFunc(s.cfg.Debounce, func() {
			if ctx.Err() != nil {
				return
			}
			s.reload(ch)
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	wait := func() bool {
		d := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			ch.log.Warn("schedule watch init failed", logx.Err(err), logx.String("dir", dir))
			if !wait() {
				return
			}
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			ch.log.Warn("schedule watch add failed", logx.Err(err), logx.String("dir", dir))
			if !wait() {
				return
			}
			continue
		}

		// success; reset backoff so transient issues don't cause long restart delays
		backoff = restartBackoffBase
		ch.log.Debug("schedule watcher started", logx.String("dir", dir))

		// Catch up on edits that landed while no watch was registered (between
		// the initial load and now, or while a broken watcher was restarting).
		// Redundant when nothing changed; the content hash makes that cheap.
		s.reload(ch)

		// inner loop: runs until the watcher breaks, then the outer loop recreates it.
		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				// Compare by basename (robust across absolute/relative paths
				// and OS quirks); this also ignores the store's .tmp files.
				if strings.EqualFold(filepath.Base(ev.Name), file) {
					if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
						debounce()
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// Overflow means we may have missed events; reload once and keep going.
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					ch.log.Warn("schedule watch overflow; forcing reload", logx.Err(err))
					debounce()
					continue
				}
				ch.log.Warn("schedule watch error", logx.Err(err))
				// Some fsnotify backends surface watcher closure via an error.
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
					break
				}
			}
		}

		_ = w.Close()
		if ctx.Err() != nil {
			return
		}
		ch.log.Warn("schedule watcher stopped; restarting", logx.String("dir", dir))
		if !wait() {
			return
		}
	}
}
