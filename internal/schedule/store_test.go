package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	logx "schedbot/pkg/logx"
)

func testConfig(channelID string, n int) *Config {
	created := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	cfg := &Config{OneTimeJobs: []OneTimeJob{}, RecurringJobs: []RecurringJob{}}
	for i := 0; i < n; i++ {
		cfg.RecurringJobs = append(cfg.RecurringJobs, RecurringJob{
			Name:      "daily-" + string(rune('a'+i)),
			CronExpr:  "0 9 * * *",
			Timezone:  "America/New_York",
			Task:      "post the standup summary",
			ChannelID: channelID,
			CreatedAt: created,
		})
		cfg.OneTimeJobs = append(cfg.OneTimeJobs, OneTimeJob{
			ID:          "once-" + string(rune('a'+i)),
			NaturalTime: "tomorrow at 9pm",
			TargetTime:  created.Add(time.Duration(i+1) * time.Hour),
			Timezone:    "America/New_York",
			Task:        "remind about the release",
			ChannelID:   channelID,
			CreatedAt:   created,
		})
	}
	return cfg
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	s := NewStore(logx.Nop())
	cfg, err := s.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.OneTimeJobs == nil || cfg.RecurringJobs == nil {
		t.Fatal("expected non-nil empty slices")
	}
	if !cfg.Empty() {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadEmptyFileIsEmpty(t *testing.T) {
	t.Parallel()
	s := NewStore(logx.Nop())
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("\n  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Empty() {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	s := NewStore(logx.Nop())
	for _, n := range []int{0, 1, 3} {
		path := filepath.Join(t.TempDir(), "schedule.yaml")
		want := testConfig("chan-1", n)
		if err := s.Save(path, want); err != nil {
			t.Fatalf("Save(n=%d) error: %v", n, err)
		}
		got, err := s.Load(path)
		if err != nil {
			t.Fatalf("Load(n=%d) error: %v", n, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round-trip mismatch (n=%d):\n got %+v\nwant %+v", n, got, want)
		}
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	t.Parallel()
	s := NewStore(logx.Nop())
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	if err := os.WriteFile(path, []byte("invalid yaml {{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := s.Load(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestLoadFailsFastOnBadEntry(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		yaml      string
		wantList  string
		wantIndex int
		wantField string
	}{
		{
			name: "recurring missing cron expression",
			yaml: `recurringJobs:
  - name: Daily
    timezone: UTC
    task: summarize
    channelId: c1
`,
			wantList: "recurringJobs", wantIndex: 0, wantField: "cronExpression",
		},
		{
			name: "recurring bad timezone at index 1",
			yaml: `recurringJobs:
  - name: a
    cronExpression: "* * * * *"
    timezone: UTC
    task: t
    channelId: c1
  - name: b
    cronExpression: "* * * * *"
    timezone: Mars/Olympus
    task: t
    channelId: c1
`,
			wantList: "recurringJobs", wantIndex: 1, wantField: "timezone",
		},
		{
			name: "one-time missing task",
			yaml: `oneTimeJobs:
  - id: once-1
    naturalTime: tomorrow
    targetTime: 2026-08-25T09:00:00Z
    timezone: UTC
    channelId: c1
`,
			wantList: "oneTimeJobs", wantIndex: 0, wantField: "task",
		},
		{
			name: "duplicate one-time id",
			yaml: `oneTimeJobs:
  - id: once-1
    targetTime: 2026-08-25T09:00:00Z
    timezone: UTC
    task: t
    channelId: c1
  - id: once-1
    targetTime: 2026-08-26T09:00:00Z
    timezone: UTC
    task: t
    channelId: c1
`,
			wantList: "oneTimeJobs", wantIndex: 1, wantField: "id",
		},
		{
			name: "duplicate recurring name in channel",
			yaml: `recurringJobs:
  - name: Daily
    cronExpression: "* * * * *"
    timezone: UTC
    task: t
    channelId: c1
  - name: Daily
    cronExpression: "* * * * *"
    timezone: UTC
    task: t
    channelId: c1
`,
			wantList: "recurringJobs", wantIndex: 1, wantField: "name",
		},
	}

	s := NewStore(logx.Nop())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "schedule.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := s.Load(path)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if ve.List != tt.wantList || ve.Index != tt.wantIndex || ve.Field != tt.wantField {
				t.Fatalf("ValidationError = %v, want %s[%d].%s", ve, tt.wantList, tt.wantIndex, tt.wantField)
			}
		})
	}
}

func TestMutateSkipsSaveWhenUnchanged(t *testing.T) {
	t.Parallel()
	s := NewStore(logx.Nop())
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	if err := s.Save(path, testConfig("chan-1", 1)); err != nil {
		t.Fatal(err)
	}
	before, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	err = s.Mutate(path, func(cfg *Config) (bool, error) {
		return cfg.RemoveOneTime("no-such-id"), nil
	})
	if err != nil {
		t.Fatalf("Mutate error: %v", err)
	}
	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size() {
		t.Fatal("file rewritten despite no change")
	}
}

func TestMutateAbortsOnError(t *testing.T) {
	t.Parallel()
	s := NewStore(logx.Nop())
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	if err := s.Save(path, testConfig("chan-1", 1)); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err = s.Mutate(path, func(cfg *Config) (bool, error) {
		cfg.RecurringJobs = nil // would be visible if the save happened
		return true, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Mutate error = %v, want boom", err)
	}
	now, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(now) != string(raw) {
		t.Fatal("file changed despite fn error")
	}
}

func TestSaveIsDeterministic(t *testing.T) {
	t.Parallel()
	s := NewStore(logx.Nop())
	cfg := testConfig("chan-1", 3)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	if err := s.Save(a, cfg); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(b, cfg); err != nil {
		t.Fatal(err)
	}
	ab, _ := os.ReadFile(a)
	bb, _ := os.ReadFile(b)
	if string(ab) != string(bb) {
		t.Fatal("same config serialized differently")
	}
}
