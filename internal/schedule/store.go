package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	yaml "go.yaml.in/yaml/v3"

	logx "schedbot/pkg/logx"
)

// Store reads and writes per-channel schedule files.
//
// Every mutation goes through Mutate, which serializes read-modify-write
// cycles per path inside this process. Saves go write-to-temp-then-rename so
// a crash mid-write never leaves a torn file; readers (and the file watcher)
// only ever observe the old or the new content.
type Store struct {
	log logx.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{log: log, locks: map[string]*sync.Mutex{}}
}

// Load parses the file at path into a fresh Config.
//
// A missing or empty file is a valid empty schedule, not an error. Malformed
// YAML returns a *ParseError; a structurally valid file with one bad job
// entry returns a *ValidationError and nothing is applied.
func (s *Store) Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyConfig(), nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return emptyConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	// nil lists (e.g. only one key present) become empty slices so callers
	// never need to nil-check.
	if cfg.OneTimeJobs == nil {
		cfg.OneTimeJobs = []OneTimeJob{}
	}
	if cfg.RecurringJobs == nil {
		cfg.RecurringJobs = []RecurringJob{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save serializes cfg deterministically (struct field order, no anchors) and
// atomically replaces the file at path, creating the parent directory if
// needed.
func (s *Store) Save(path string, cfg *Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	s.log.Debug("schedule saved",
		logx.String("path", path),
		logx.Int("onetime", len(cfg.OneTimeJobs)),
		logx.Int("recurring", len(cfg.RecurringJobs)))
	return nil
}

// Mutate runs fn over the current content of path and saves the result when
// fn reports a change. Cycles for the same path are serialized, which is how
// the agent tool calls and the runner's post-execution removal avoid losing
// each other's writes (in-process single-writer; see DESIGN.md).
func (s *Store) Mutate(path string, fn func(cfg *Config) (changed bool, err error)) error {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := s.Load(path)
	if err != nil {
		return err
	}
	changed, err := fn(cfg)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.Save(path, cfg)
}

func (s *Store) pathLock(path string) *sync.Mutex {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

func emptyConfig() *Config {
	return &Config{OneTimeJobs: []OneTimeJob{}, RecurringJobs: []RecurringJob{}}
}
