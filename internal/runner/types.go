package runner

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"schedbot/internal/eventbus"
	"schedbot/internal/schedule"
	logx "schedbot/pkg/logx"
)

// Executor carries out a job's task text. What "execution" means (posting to
// a chat channel, querying an LLM) is outside this package; the runner only
// awaits completion for bookkeeping. threadID may be empty.
type Executor interface {
	Execute(ctx context.Context, task, channelID, threadID string) error
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task, channelID, threadID string) error

func (f ExecutorFunc) Execute(ctx context.Context, task, channelID, threadID string) error {
	return f(ctx, task, channelID, threadID)
}

// Config controls the runner.
type Config struct {
	// Debounce is how long to wait after a file event before reloading, so a
	// multi-step external edit does not cause a storm of rebuild cycles.
	// Defaults to 250ms.
	Debounce time.Duration
}

// Service is the reconciler. One instance owns all channel state; there is
// no global timer registry.
type Service struct {
	cfg   Config
	log   logx.Logger
	store *schedule.Store
	exec  Executor
	bus   *eventbus.Bus

	mu        sync.Mutex
	running   bool
	runCtx    context.Context
	runCancel context.CancelFunc
	channels  map[string]*channel

	wg sync.WaitGroup // watch goroutines
}

// channel is the per-channel timer registry. All fields behind mu are only
// touched by reload/clear and by fenced timer callbacks.
type channel struct {
	mapping schedule.ChannelMapping
	log     logx.Logger

	cancel   context.CancelFunc // stops the watch goroutine
	parseLog *rate.Limiter      // throttles repeated load-failure logs

	// reloadMu serializes whole load+rebuild cycles. Without it two
	// overlapping debounce callbacks could commit out of order and pin the
	// channel to a stale load until the next edit.
	reloadMu sync.Mutex

	mu sync.Mutex
	// gen fences stale timer callbacks: every rebuild bumps it and every
	// callback re-checks it before acting.
	gen      uint64
	cron     *cron.Cron
	timers   map[string]*time.Timer // one-time job id -> timer
	// firing holds one-time ids whose execution is in flight; a rebuild must
	// not schedule them again while the file still lists them. Survives
	// clearLocked on purpose.
	firing   map[string]struct{}
	recs     []recurringEntry
	oneTimes []schedule.OneTimeJob
	lastHash uint64
	loaded   bool
	degraded bool
	// closed marks a channel torn down by Stop/RemoveChannel; a late
	// debounced reload must not resurrect its timers.
	closed bool
}

type recurringEntry struct {
	job schedule.RecurringJob
	id  cron.EntryID
}

// clearLocked cancels every timer and drops the channel's schedule state.
// Call with c.mu held. After it returns no previously created timer can
// execute its job (the generation bump fences them).
func (c *channel) clearLocked() {
	c.gen++
	if c.cron != nil {
		c.cron.Stop()
		c.cron = nil
	}
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = map[string]*time.Timer{}
	c.recs = nil
	c.oneTimes = nil
	c.lastHash = 0
	c.loaded = false
}

// close tears the channel down for good.
func (c *channel) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	c.closed = true
}
