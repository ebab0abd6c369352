package runner

import "time"

// Event types published on the event bus.
const (
	EventChannelReloaded = "channel.reloaded"
	EventChannelDegraded = "channel.degraded"
	EventJobFired        = "job.fired"
	EventJobFailed       = "job.failed"
	EventJobRemoved      = "job.removed"
)

// JobEvent describes one firing (or removal) of a job. Name is set for
// recurring jobs, JobID for one-time jobs.
type JobEvent struct {
	ChannelID string
	JobID     string
	Name      string
	Task      string
	At        time.Time
	Duration  time.Duration
	Error     string
}

// ChannelEvent describes a reload or degradation of a channel's schedule.
type ChannelEvent struct {
	ChannelID string
	Recurring int
	OneTime   int
	Error     string
}
