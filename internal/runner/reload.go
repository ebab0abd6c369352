package runner

import (
	"hash/fnv"
	"time"

	"github.com/robfig/cron/v3"
	yaml "go.yaml.in/yaml/v3"

	"schedbot/internal/schedule"
	logx "schedbot/pkg/logx"
)

// reload is the only place that mutates a channel's timer set. It always
// rebuilds from the file's current content: cancel everything, re-parse,
// re-schedule. A load failure degrades the channel to zero jobs; other
// channels are untouched.
//
// Load and rebuild run as one serialized cycle per channel, so a reload that
// starts after a write always commits that write's content last.
func (s *Service) reload(ch *channel) {
	ch.reloadMu.Lock()
	defer ch.reloadMu.Unlock()

	cfg, err := s.store.Load(ch.mapping.ConfigPath)
	if err != nil {
		ch.mu.Lock()
		if ch.closed {
			ch.mu.Unlock()
			return
		}
		ch.clearLocked()
		ch.degraded = true
		ch.mu.Unlock()
		if ch.parseLog.Allow() {
			ch.log.Error("schedule load failed; channel degraded to zero jobs", logx.Err(err))
		}
		s.publish(EventChannelDegraded, ChannelEvent{
			ChannelID: ch.mapping.ChannelID,
			Error:     err.Error(),
		})
		return
	}

	h := hashConfig(cfg)
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	if ch.loaded && h == ch.lastHash {
		ch.mu.Unlock()
		ch.log.Debug("schedule unchanged; skipping rebuild")
		return
	}
	s.rebuildLocked(ch, cfg, h)
	recurring := len(ch.recs)
	oneTime := len(ch.oneTimes)
	ch.mu.Unlock()

	ch.log.Info("schedule reloaded",
		logx.Int("recurring", recurring), logx.Int("onetime", oneTime))
	s.publish(EventChannelReloaded, ChannelEvent{
		ChannelID: ch.mapping.ChannelID,
		Recurring: recurring,
		OneTime:   oneTime,
	})
}

// rebuildLocked swaps the channel's timer set for one built from cfg.
// Call with ch.mu held. Old timers are cancelled (and fenced via the
// generation bump) before any new timer exists, so there is no window where
// both could fire.
func (s *Service) rebuildLocked(ch *channel, cfg *schedule.Config, h uint64) {
	ch.clearLocked()
	gen := ch.gen

	c := cron.New(cron.WithParser(schedule.CronParser))
	for _, job := range cfg.RecurringJobs {
		job := job
		// Each entry carries its own zone; one cron instance per channel.
		spec := "CRON_TZ=" + job.Timezone + " " + job.CronExpr
		id, err := c.AddFunc(spec, func() { s.runRecurring(ch, gen, job) })
		if err != nil {
			// Load-time validation uses the same parser, so this only
			// triggers if the two ever drift.
			ch.log.Error("cron register failed",
				logx.String("name", job.Name), logx.String("spec", job.CronExpr), logx.Err(err))
			continue
		}
		ch.recs = append(ch.recs, recurringEntry{job: job, id: id})
	}

	for _, job := range cfg.OneTimeJobs {
		job := job
		if _, inflight := ch.firing[job.ID]; inflight {
			// Executing right now; it will delete itself from the file.
			continue
		}
		delay := time.Until(job.TargetTime)
		if delay < 0 {
			// Already due (e.g. written just before a restart): fire on this
			// reconciliation tick.
			delay = 0
		}
		ch.timers[job.ID] = time.AfterFunc(delay, func() { s.fireOneTime(ch, gen, job) })
		ch.oneTimes = append(ch.oneTimes, job)
	}

	c.Start()
	ch.cron = c
	ch.lastHash = h
	ch.loaded = true
	ch.degraded = false
}

// runRecurring executes one firing of a recurring job. Execution errors are
// logged and swallowed; the schedule must survive to the next cycle.
func (s *Service) runRecurring(ch *channel, gen uint64, job schedule.RecurringJob) {
	ch.mu.Lock()
	stale := ch.gen != gen
	ch.mu.Unlock()
	if stale {
		return
	}

	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := s.execute(ctx, job.Task, job.ChannelID, job.ThreadID)
	dur := time.Since(start)
	if err != nil {
		ch.log.Warn("recurring job failed",
			logx.String("name", job.Name), logx.Duration("dur", dur), logx.Err(err))
		s.publish(EventJobFailed, JobEvent{
			ChannelID: job.ChannelID, Name: job.Name, Task: job.Task,
			At: start, Duration: dur, Error: err.Error(),
		})
		return
	}
	ch.log.Info("recurring job fired",
		logx.String("name", job.Name), logx.Duration("dur", dur))
	s.publish(EventJobFired, JobEvent{
		ChannelID: job.ChannelID, Name: job.Name, Task: job.Task,
		At: start, Duration: dur,
	})
}

// fireOneTime executes a one-time job exactly once and then deletes it from
// the channel's file, whatever the execution outcome. The deletion causes a
// watch event whose rebuild sees the job already gone.
func (s *Service) fireOneTime(ch *channel, gen uint64, job schedule.OneTimeJob) {
	ch.mu.Lock()
	if ch.gen != gen {
		ch.mu.Unlock()
		return
	}
	delete(ch.timers, job.ID)
	for i, j := range ch.oneTimes {
		if j.ID == job.ID {
			ch.oneTimes = append(ch.oneTimes[:i], ch.oneTimes[i+1:]...)
			break
		}
	}
	ch.firing[job.ID] = struct{}{}
	ch.mu.Unlock()
	defer func() {
		ch.mu.Lock()
		delete(ch.firing, job.ID)
		ch.mu.Unlock()
	}()

	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		// Runner stopping: leave the job in the file so the next Start
		// reschedules it instead of losing it unexecuted.
		return
	}

	start := time.Now()
	err := s.execute(ctx, job.Task, job.ChannelID, job.ThreadID)
	dur := time.Since(start)
	if err != nil {
		// One-time jobs never retry; log and fall through to removal.
		ch.log.Warn("one-time job failed",
			logx.String("id", job.ID), logx.Duration("dur", dur), logx.Err(err))
		s.publish(EventJobFailed, JobEvent{
			ChannelID: job.ChannelID, JobID: job.ID, Task: job.Task,
			At: start, Duration: dur, Error: err.Error(),
		})
	} else {
		ch.log.Info("one-time job fired",
			logx.String("id", job.ID), logx.Duration("dur", dur))
		s.publish(EventJobFired, JobEvent{
			ChannelID: job.ChannelID, JobID: job.ID, Task: job.Task,
			At: start, Duration: dur,
		})
	}

	if err := s.store.Mutate(ch.mapping.ConfigPath, func(cfg *schedule.Config) (bool, error) {
		// May already be gone if an agent edit raced us; that's fine.
		return cfg.RemoveOneTime(job.ID), nil
	}); err != nil {
		ch.log.Error("one-time job removal failed", logx.String("id", job.ID), logx.Err(err))
		return
	}
	s.publish(EventJobRemoved, JobEvent{ChannelID: job.ChannelID, JobID: job.ID})
}

// hashConfig fingerprints a parsed config so redundant watch events (editor
// double-writes, our own removal rebuild) skip the cancel/recreate cycle.
func hashConfig(cfg *schedule.Config) uint64 {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return 0
	}
	f := fnv.New64a()
	_, _ = f.Write(b)
	return f.Sum64()
}
