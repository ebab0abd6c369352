// Package tools is the agent-facing mutation surface for schedule files.
//
// Operations here write through the store and rely on the runner's file
// watch to pick the change up; they never touch runner timer state directly.
// Every operation returns a structured Result instead of propagating errors
// across the tool boundary.
package tools

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"schedbot/internal/naturaltime"
	"schedbot/internal/schedule"
	logx "schedbot/pkg/logx"
)

var (
	ErrDuplicateName  = errors.New("a recurring job with that name already exists in this channel")
	ErrNotFound       = errors.New("no job matches that identifier in this channel")
	ErrUnknownChannel = errors.New("unknown channel")
	ErrBadInput       = errors.New("invalid input")
)

// List filters.
const (
	FilterAll       = "all"
	FilterOneTime   = "onetime"
	FilterRecurring = "recurring"
)

// Result is what crosses the tool boundary: a success flag plus a
// human-readable message the agent can relay verbatim. Err carries the typed
// cause for programmatic callers; it is never "thrown".
type Result struct {
	OK      bool
	Message string
	Err     error
}

func success(format string, args ...any) Result {
	return Result{OK: true, Message: fmt.Sprintf(format, args...)}
}

func failure(err error, format string, args ...any) Result {
	return Result{OK: false, Message: fmt.Sprintf(format, args...), Err: err}
}

// Mapper resolves a channel id to its mapping (the runner implements this).
type Mapper interface {
	Mapping(channelID string) (schedule.ChannelMapping, bool)
}

type Service struct {
	log      logx.Logger
	store    *schedule.Store
	resolver *naturaltime.Resolver
	channels Mapper

	// now is swappable for tests.
	now func() time.Time
}

func New(store *schedule.Store, resolver *naturaltime.Resolver, channels Mapper, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:      log,
		store:    store,
		resolver: resolver,
		channels: channels,
		now:      time.Now,
	}
}

// AddRecurring creates a cron-driven job in the channel's file.
func (s *Service) AddRecurring(channelID, name, cronExpr, timezone, task, threadID string) Result {
	m, ok := s.channels.Mapping(channelID)
	if !ok {
		return failure(ErrUnknownChannel, "Channel %q is not managed by the scheduler.", channelID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return failure(ErrBadInput, "A recurring job needs a name.")
	}
	if strings.TrimSpace(task) == "" {
		return failure(ErrBadInput, "A recurring job needs a task description.")
	}
	if !schedule.ValidateCronExpr(cronExpr) {
		return failure(ErrBadInput,
			"%q is not a valid cron expression. Expected 5 fields: minute hour day month weekday (e.g. \"0 9 * * 1-5\").", cronExpr)
	}
	if _, err := naturaltime.LoadZone(timezone); err != nil {
		return failure(err, "%q is not a known IANA timezone (e.g. \"America/New_York\").", timezone)
	}

	job := schedule.RecurringJob{
		Name:      name,
		CronExpr:  strings.TrimSpace(cronExpr),
		Timezone:  strings.TrimSpace(timezone),
		Task:      task,
		ChannelID: channelID,
		ThreadID:  threadID,
		CreatedAt: s.now().UTC(),
	}

	err := s.store.Mutate(m.ConfigPath, func(cfg *schedule.Config) (bool, error) {
		if _, dup := cfg.FindRecurring(name); dup {
			return false, ErrDuplicateName
		}
		cfg.RecurringJobs = append(cfg.RecurringJobs, job)
		return true, nil
	})
	if errors.Is(err, ErrDuplicateName) {
		return failure(err, "A recurring job named %q already exists in this channel. Remove it first or pick another name.", name)
	}
	if err != nil {
		return failure(err, "Could not update the schedule file: %v", err)
	}

	s.log.Info("recurring job added",
		logx.String("channel", channelID), logx.String("name", name), logx.String("spec", job.CronExpr))
	return success("Scheduled recurring job %q: %s (%s).", name, job.CronExpr, job.Timezone)
}

// AddOneTime resolves naturalTime and creates a fire-once job in the
// channel's file.
func (s *Service) AddOneTime(channelID, naturalTime, timezone, task, threadID string) Result {
	m, ok := s.channels.Mapping(channelID)
	if !ok {
		return failure(ErrUnknownChannel, "Channel %q is not managed by the scheduler.", channelID)
	}
	if strings.TrimSpace(task) == "" {
		return failure(ErrBadInput, "A one-time job needs a task description.")
	}

	now := s.now()
	target, err := s.resolver.Resolve(naturalTime, timezone, now)
	if err != nil {
		switch {
		case errors.Is(err, naturaltime.ErrInvalidTimezone):
			return failure(err, "%q is not a known IANA timezone (e.g. \"America/New_York\").", timezone)
		case errors.Is(err, naturaltime.ErrPastTime):
			return failure(err, "%q resolves to a time that has already passed.", naturalTime)
		default:
			return failure(err, "Could not understand %q. Try something like: %s.",
				naturalTime, strings.Join(naturaltime.Examples(), ", "))
		}
	}

	job := schedule.OneTimeJob{
		ID:          newOneTimeID(now),
		NaturalTime: strings.TrimSpace(naturalTime),
		TargetTime:  target,
		Timezone:    strings.TrimSpace(timezone),
		Task:        task,
		ChannelID:   channelID,
		ThreadID:    threadID,
		CreatedAt:   now.UTC(),
	}

	err = s.store.Mutate(m.ConfigPath, func(cfg *schedule.Config) (bool, error) {
		cfg.OneTimeJobs = append(cfg.OneTimeJobs, job)
		return true, nil
	})
	if err != nil {
		return failure(err, "Could not update the schedule file: %v", err)
	}

	s.log.Info("one-time job added",
		logx.String("channel", channelID), logx.String("id", job.ID), logx.Time("at", target))
	loc, _ := naturaltime.LoadZone(job.Timezone)
	return success("Scheduled one-time job %s for %s (%s from now).",
		job.ID, target.In(loc).Format("2006-01-02 15:04 MST"), formatRemaining(target.Sub(now)))
}

// Remove deletes a job from the channel's file: one-time jobs by id first,
// then recurring jobs by name.
func (s *Service) Remove(channelID, identifier string) Result {
	m, ok := s.channels.Mapping(channelID)
	if !ok {
		return failure(ErrUnknownChannel, "Channel %q is not managed by the scheduler.", channelID)
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return failure(ErrBadInput, "Tell me which job to remove (one-time id or recurring name).")
	}

	var kind string
	err := s.store.Mutate(m.ConfigPath, func(cfg *schedule.Config) (bool, error) {
		if cfg.RemoveOneTime(identifier) {
			kind = "one-time"
			return true, nil
		}
		if cfg.RemoveRecurring(identifier) {
			kind = "recurring"
			return true, nil
		}
		return false, ErrNotFound
	})
	if errors.Is(err, ErrNotFound) {
		return failure(err, "No one-time job with id %q and no recurring job named %q in this channel.", identifier, identifier)
	}
	if err != nil {
		return failure(err, "Could not update the schedule file: %v", err)
	}

	s.log.Info("job removed",
		logx.String("channel", channelID), logx.String("identifier", identifier), logx.String("kind", kind))
	return success("Removed %s job %q.", kind, identifier)
}

// List renders the channel's schedule. Read-only.
func (s *Service) List(channelID, filter string) Result {
	m, ok := s.channels.Mapping(channelID)
	if !ok {
		return failure(ErrUnknownChannel, "Channel %q is not managed by the scheduler.", channelID)
	}
	switch filter {
	case FilterAll, FilterOneTime, FilterRecurring:
	case "":
		filter = FilterAll
	default:
		return failure(ErrBadInput, "Unknown filter %q; use %q, %q or %q.", filter, FilterOneTime, FilterRecurring, FilterAll)
	}

	cfg, err := s.store.Load(m.ConfigPath)
	if err != nil {
		return failure(err, "Could not read the schedule file: %v", err)
	}

	now := s.now()
	var b strings.Builder
	if filter == FilterAll || filter == FilterRecurring {
		if len(cfg.RecurringJobs) > 0 {
			b.WriteString("Recurring jobs:\n")
			for _, j := range cfg.RecurringJobs {
				fmt.Fprintf(&b, "  - %s: %s (%s): %s\n", j.Name, j.CronExpr, j.Timezone, j.Task)
			}
		}
	}
	if filter == FilterAll || filter == FilterOneTime {
		if len(cfg.OneTimeJobs) > 0 {
			b.WriteString("One-time jobs:\n")
			for _, j := range cfg.OneTimeJobs {
				loc, zerr := naturaltime.LoadZone(j.Timezone)
				at := j.TargetTime
				if zerr == nil {
					at = at.In(loc)
				}
				fmt.Fprintf(&b, "  - %s: %q at %s (%s from now): %s\n",
					j.ID, j.NaturalTime, at.Format("2006-01-02 15:04 MST"),
					formatRemaining(j.TargetTime.Sub(now)), j.Task)
			}
		}
	}
	if b.Len() == 0 {
		return success("No jobs scheduled in this channel.")
	}
	return success("%s", strings.TrimRight(b.String(), "\n"))
}

// newOneTimeID builds an id that is unique across the file and sorts by
// creation time (nanosecond prefix plus a short random suffix).
func newOneTimeID(now time.Time) string {
	return fmt.Sprintf("once-%d-%s", now.UnixNano(), uuid.NewString()[:8])
}

func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Round(time.Minute).String()
}
