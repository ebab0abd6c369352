// Package schedule defines the per-channel job model and its on-disk form.
//
// A channel's schedule lives in a single YAML file with two lists:
// oneTimeJobs and recurringJobs. The file is the source of truth; both the
// agent tool calls and the runner read-modify-write the whole file and never
// keep a long-lived mutable copy. A missing or empty file is a valid, empty
// schedule.
//
// Validation is fail-fast: one malformed entry invalidates the whole load so
// a bad edit can never silently drop jobs.
package schedule
