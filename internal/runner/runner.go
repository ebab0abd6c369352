package runner

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"schedbot/internal/eventbus"
	"schedbot/internal/schedule"
	logx "schedbot/pkg/logx"
)

func New(cfg Config, store *schedule.Store, exec Executor, bus *eventbus.Bus, log logx.Logger) *Service {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg,
		log:      log,
		store:    store,
		exec:     exec,
		bus:      bus,
		channels: map[string]*channel{},
	}
}

// Start begins watching every mapped channel and performs an initial load
// for each. Idempotent while running; safe to call again after Stop().
func (s *Service) Start(ctx context.Context, mappings []schedule.ChannelMapping) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.channels = map[string]*channel{}
	s.mu.Unlock()

	for _, m := range mappings {
		if err := s.AddChannel(m); err != nil {
			s.log.Warn("channel skipped",
				logx.String("channel", m.ChannelID), logx.Err(err))
		}
	}
	s.log.Info("runner started", logx.Int("channels", len(mappings)))
}

// AddChannel begins watching a single new channel without disturbing others.
// Adding an already-watched channel is a no-op.
func (s *Service) AddChannel(m schedule.ChannelMapping) error {
	if strings.TrimSpace(m.ChannelID) == "" {
		return errors.New("channel mapping missing channelId")
	}
	if strings.TrimSpace(m.ConfigPath) == "" {
		return errors.New("channel mapping missing configPath")
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return errors.New("runner not started")
	}
	if _, ok := s.channels[m.ChannelID]; ok {
		s.mu.Unlock()
		return nil
	}
	watchCtx, cancel := context.WithCancel(s.runCtx)
	ch := &channel{
		mapping: m,
		log: s.log.With(
			logx.String("channel", m.ChannelID),
			logx.String("path", m.ConfigPath),
		),
		cancel: cancel,
		// At most one load-failure log burst per file edit session; the
		// degraded state itself is visible via Snapshot and the event bus.
		parseLog: rate.NewLimiter(rate.Every(30*time.Second), 1),
		timers:   map[string]*time.Timer{},
		firing:   map[string]struct{}{},
	}
	s.channels[m.ChannelID] = ch
	s.wg.Add(1)
	s.mu.Unlock()

	// Initial load first so callers observe a fully built schedule; the
	// watcher only has to pick up later edits.
	s.reload(ch)

	go func() {
		defer s.wg.Done()
		s.watch(watchCtx, ch)
	}()

	ch.log.Debug("channel watching")
	return nil
}

// RemoveChannel stops the channel's watcher, cancels every timer it owns and
// drops it from the runner. Unknown channels are a no-op.
func (s *Service) RemoveChannel(channelID string) {
	s.mu.Lock()
	ch, ok := s.channels[channelID]
	if ok {
		delete(s.channels, channelID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	ch.cancel()
	ch.close()
	ch.log.Info("channel removed")
}

// Mapping returns the mapping for a watched channel. It is how the
// tool-facing mutation layer finds a channel's config path.
func (s *Service) Mapping(channelID string) (schedule.ChannelMapping, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[channelID]
	if !ok {
		return schedule.ChannelMapping{}, false
	}
	return ch.mapping, true
}

// Stop cancels all timers, closes all watchers and clears internal state.
// Safe to call repeatedly; a subsequent Start fully re-establishes state.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.runCancel
	chans := s.channels
	s.channels = map[string]*channel{}
	s.runCtx = nil
	s.runCancel = nil
	s.mu.Unlock()

	cancel()
	for _, ch := range chans {
		ch.close()
	}
	s.wg.Wait()
	s.log.Info("runner stopped")
}

// execute invokes the Executor, shielding the scheduler from panics in the
// external adapter.
func (s *Service) execute(ctx context.Context, task, channelID, threadID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("executor panic")
			s.log.Error("panic in executor",
				logx.String("channel", channelID), logx.Any("panic", r))
		}
	}()
	return s.exec.Execute(ctx, task, channelID, threadID)
}

func (s *Service) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
