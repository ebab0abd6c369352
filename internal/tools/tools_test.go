package tools

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"schedbot/internal/naturaltime"
	"schedbot/internal/schedule"
	logx "schedbot/pkg/logx"
)

var anchor = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

type mapperFunc func(channelID string) (schedule.ChannelMapping, bool)

func (f mapperFunc) Mapping(channelID string) (schedule.ChannelMapping, bool) { return f(channelID) }

func newTestService(t *testing.T) (*Service, *schedule.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	store := schedule.NewStore(logx.Nop())
	mapper := mapperFunc(func(channelID string) (schedule.ChannelMapping, bool) {
		if channelID != "c1" {
			return schedule.ChannelMapping{}, false
		}
		return schedule.ChannelMapping{ChannelID: "c1", ChannelName: "general", ConfigPath: path}, true
	})
	s := New(store, naturaltime.New(), mapper, logx.Nop())
	s.now = func() time.Time { return anchor }
	return s, store, path
}

func TestAddRecurring(t *testing.T) {
	t.Parallel()
	s, store, path := newTestService(t)

	res := s.AddRecurring("c1", "Daily", "0 9 * * 1-5", "America/New_York", "post the standup summary", "")
	if !res.OK {
		t.Fatalf("AddRecurring failed: %s (%v)", res.Message, res.Err)
	}

	cfg, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	job, ok := cfg.FindRecurring("Daily")
	if !ok {
		t.Fatal("job not written to file")
	}
	if job.CronExpr != "0 9 * * 1-5" || job.Timezone != "America/New_York" || job.ChannelID != "c1" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if !job.CreatedAt.Equal(anchor) {
		t.Fatalf("CreatedAt = %v, want %v", job.CreatedAt, anchor)
	}
}

func TestAddRecurringDuplicateLeavesFileUnchanged(t *testing.T) {
	t.Parallel()
	s, _, path := newTestService(t)

	if res := s.AddRecurring("c1", "Daily", "0 9 * * *", "UTC", "summarize", ""); !res.OK {
		t.Fatalf("first AddRecurring failed: %s", res.Message)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	res := s.AddRecurring("c1", "Daily", "0 12 * * *", "UTC", "something else", "")
	if res.OK {
		t.Fatal("duplicate AddRecurring unexpectedly succeeded")
	}
	if !errors.Is(res.Err, ErrDuplicateName) {
		t.Fatalf("Err = %v, want ErrDuplicateName", res.Err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatal("file changed by failed duplicate add")
	}
}

func TestAddRecurringRejectsBadInput(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestService(t)
	tests := []struct {
		name string
		res  Result
	}{
		{name: "bad cron", res: s.AddRecurring("c1", "x", "not a cron", "UTC", "t", "")},
		{name: "six fields", res: s.AddRecurring("c1", "x", "* * * * * *", "UTC", "t", "")},
		{name: "bad timezone", res: s.AddRecurring("c1", "x", "* * * * *", "Mars/Olympus", "t", "")},
		{name: "empty name", res: s.AddRecurring("c1", "  ", "* * * * *", "UTC", "t", "")},
		{name: "empty task", res: s.AddRecurring("c1", "x", "* * * * *", "UTC", "", "")},
		{name: "unknown channel", res: s.AddRecurring("nope", "x", "* * * * *", "UTC", "t", "")},
	}
	for _, tt := range tests {
		if tt.res.OK {
			t.Fatalf("%s: expected failure, got %q", tt.name, tt.res.Message)
		}
		if tt.res.Message == "" {
			t.Fatalf("%s: failure carries no message", tt.name)
		}
	}
}

func TestAddOneTime(t *testing.T) {
	t.Parallel()
	s, store, path := newTestService(t)

	res := s.AddOneTime("c1", "in 10 minutes", "UTC", "send the reminder", "thread-9")
	if !res.OK {
		t.Fatalf("AddOneTime failed: %s (%v)", res.Message, res.Err)
	}

	cfg, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.OneTimeJobs) != 1 {
		t.Fatalf("one-time jobs = %d, want 1", len(cfg.OneTimeJobs))
	}
	job := cfg.OneTimeJobs[0]
	if want := anchor.Add(10 * time.Minute); !job.TargetTime.Equal(want) {
		t.Fatalf("TargetTime = %v, want %v", job.TargetTime, want)
	}
	if job.NaturalTime != "in 10 minutes" {
		t.Fatalf("NaturalTime = %q, original input not preserved", job.NaturalTime)
	}
	if job.ThreadID != "thread-9" {
		t.Fatalf("ThreadID = %q", job.ThreadID)
	}
	if !strings.HasPrefix(job.ID, "once-") {
		t.Fatalf("ID = %q", job.ID)
	}
}

func TestAddOneTimeIDsAreUnique(t *testing.T) {
	t.Parallel()
	s, store, path := newTestService(t)

	for i := 0; i < 5; i++ {
		if res := s.AddOneTime("c1", "in 10 minutes", "UTC", "t", ""); !res.OK {
			t.Fatalf("AddOneTime #%d failed: %s", i, res.Message)
		}
	}
	cfg, err := store.Load(path)
	if err != nil {
		// A duplicate id would surface here as a ValidationError.
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.OneTimeJobs) != 5 {
		t.Fatalf("one-time jobs = %d, want 5", len(cfg.OneTimeJobs))
	}
}

func TestAddOneTimeResolverErrors(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestService(t)
	tests := []struct {
		name string
		res  Result
		want error
	}{
		{name: "past", res: s.AddOneTime("c1", "yesterday", "UTC", "t", ""), want: naturaltime.ErrPastTime},
		{name: "gibberish", res: s.AddOneTime("c1", "whenever you fancy it", "UTC", "t", ""), want: naturaltime.ErrUnparseable},
		{name: "bad zone", res: s.AddOneTime("c1", "in 10 minutes", "Mars/Olympus", "t", ""), want: naturaltime.ErrInvalidTimezone},
	}
	for _, tt := range tests {
		if tt.res.OK {
			t.Fatalf("%s: expected failure", tt.name)
		}
		if !errors.Is(tt.res.Err, tt.want) {
			t.Fatalf("%s: Err = %v, want %v", tt.name, tt.res.Err, tt.want)
		}
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()
	s, store, path := newTestService(t)

	if res := s.AddRecurring("c1", "Daily", "0 9 * * *", "UTC", "summarize", ""); !res.OK {
		t.Fatal(res.Message)
	}
	if res := s.AddOneTime("c1", "in 10 minutes", "UTC", "remind", ""); !res.OK {
		t.Fatal(res.Message)
	}
	cfg, _ := store.Load(path)
	onceID := cfg.OneTimeJobs[0].ID

	// One-time id wins over recurring name.
	if res := s.Remove("c1", onceID); !res.OK {
		t.Fatalf("Remove one-time failed: %s", res.Message)
	}
	if res := s.Remove("c1", "Daily"); !res.OK {
		t.Fatalf("Remove recurring failed: %s", res.Message)
	}

	res := s.Remove("c1", "Daily")
	if res.OK || !errors.Is(res.Err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got OK=%v Err=%v", res.OK, res.Err)
	}

	cfg, err := store.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Empty() {
		t.Fatalf("file not empty after removals: %+v", cfg)
	}
}

func TestList(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestService(t)

	if res := s.List("c1", FilterAll); !res.OK || !strings.Contains(res.Message, "No jobs") {
		t.Fatalf("empty list: %+v", res)
	}

	if res := s.AddRecurring("c1", "Daily", "0 9 * * *", "UTC", "summarize", ""); !res.OK {
		t.Fatal(res.Message)
	}
	if res := s.AddOneTime("c1", "in 2 hours", "UTC", "remind", ""); !res.OK {
		t.Fatal(res.Message)
	}

	all := s.List("c1", FilterAll)
	if !all.OK || !strings.Contains(all.Message, "Daily") || !strings.Contains(all.Message, "once-") {
		t.Fatalf("List(all) = %+v", all)
	}
	// Computed time remaining for one-time jobs.
	if !strings.Contains(all.Message, "from now") {
		t.Fatalf("List(all) missing time remaining: %s", all.Message)
	}

	rec := s.List("c1", FilterRecurring)
	if strings.Contains(rec.Message, "once-") {
		t.Fatalf("List(recurring) leaked one-time jobs: %s", rec.Message)
	}
	once := s.List("c1", FilterOneTime)
	if strings.Contains(once.Message, "Daily") {
		t.Fatalf("List(onetime) leaked recurring jobs: %s", once.Message)
	}

	if res := s.List("c1", "bogus"); res.OK {
		t.Fatal("List accepted a bogus filter")
	}
}
