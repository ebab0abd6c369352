package runner

import (
	"sort"
	"time"
)

// JobInfo is one scheduled job as the runner currently sees it.
type JobInfo struct {
	Kind string // "recurring" or "onetime"
	// Key is the recurring job's name or the one-time job's id.
	Key  string
	Spec string // cron expression or the original natural-time text
	Task string
	Next time.Time
}

type ChannelSnapshot struct {
	ChannelID   string
	ChannelName string
	Degraded    bool
	Jobs        []JobInfo
}

type Snapshot struct {
	Running  bool
	Channels []ChannelSnapshot
}

// Snapshot returns the current set of scheduled jobs per channel, with next
// fire times. Read-only; for dashboards and tests.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	running := s.running
	chans := make([]*channel, 0, len(s.channels))
	for _, ch := range s.channels {
		chans = append(chans, ch)
	}
	s.mu.Unlock()

	snap := Snapshot{Running: running}
	for _, ch := range chans {
		ch.mu.Lock()
		cs := ChannelSnapshot{
			ChannelID:   ch.mapping.ChannelID,
			ChannelName: ch.mapping.ChannelName,
			Degraded:    ch.degraded,
		}
		for _, r := range ch.recs {
			info := JobInfo{Kind: "recurring", Key: r.job.Name, Spec: r.job.CronExpr, Task: r.job.Task}
			if ch.cron != nil {
				info.Next = ch.cron.Entry(r.id).Next
			}
			cs.Jobs = append(cs.Jobs, info)
		}
		for _, j := range ch.oneTimes {
			cs.Jobs = append(cs.Jobs, JobInfo{
				Kind: "onetime", Key: j.ID, Spec: j.NaturalTime, Task: j.Task, Next: j.TargetTime,
			})
		}
		ch.mu.Unlock()
		snap.Channels = append(snap.Channels, cs)
	}

	sort.Slice(snap.Channels, func(i, j int) bool {
		return snap.Channels[i].ChannelID < snap.Channels[j].ChannelID
	})
	return snap
}
