// Package runner keeps live timers reconciled with per-channel schedule
// files.
//
// # Model
//
// Each channel owns one YAML schedule file (see internal/schedule). The
// runner watches every channel's file and, on any observed change, rebuilds
// that channel's timer set from scratch: cancel everything, re-parse the
// file, schedule whatever it now says. Reloads are never deltas; the file is
// the only truth. This makes the watch event caused by the runner's own
// one-time-job removal a harmless no-op rebuild.
//
// # Channel independence
//
// Channels are independent units of state: each has its own watch goroutine,
// its own cron instance and timer map, and its own lock. A malformed file
// degrades its channel to zero scheduled jobs and never disturbs the others.
//
// # Cancellation
//
// Timer sets carry a generation counter. Every timer callback re-checks the
// counter under the channel lock before doing anything, so a reload or
// removal that bumps the generation is guaranteed to fence off stale
// callbacks: once the rebuild returns, no old timer can fire.
//
// # Execution
//
// Firing invokes the injected Executor (the delivery/LLM boundary). Errors
// are logged and never stop a recurring schedule. A one-time job is removed
// from its file after its single invocation regardless of the outcome; it is
// never retried.
package runner
