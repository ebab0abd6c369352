package schedule

import "time"

// RecurringJob fires repeatedly on a 5-field cron expression until removed.
// Name is the removal key and must be unique within its channel.
type RecurringJob struct {
	Name      string    `yaml:"name"`
	CronExpr  string    `yaml:"cronExpression"`
	Timezone  string    `yaml:"timezone"` // IANA zone, e.g. "America/New_York"
	Task      string    `yaml:"task"`
	ChannelID string    `yaml:"channelId"`
	ThreadID  string    `yaml:"threadId,omitempty"`
	CreatedAt time.Time `yaml:"createdAt"`
}

// OneTimeJob fires once at TargetTime and is then deleted from the file.
// ID is the removal key and must be unique across the whole file.
// NaturalTime keeps the user's original wording for display; TargetTime is
// the resolved instant and is immutable once created.
type OneTimeJob struct {
	ID          string    `yaml:"id"`
	NaturalTime string    `yaml:"naturalTime"`
	TargetTime  time.Time `yaml:"targetTime"`
	Timezone    string    `yaml:"timezone"`
	Task        string    `yaml:"task"`
	ChannelID   string    `yaml:"channelId"`
	ThreadID    string    `yaml:"threadId,omitempty"`
	CreatedAt   time.Time `yaml:"createdAt"`
}

// Config is the whole-file unit of parse/write.
type Config struct {
	OneTimeJobs   []OneTimeJob   `yaml:"oneTimeJobs"`
	RecurringJobs []RecurringJob `yaml:"recurringJobs"`
}

// ChannelMapping tells the runner where a channel's schedule file lives.
// It is produced by the channel sync layer and consumed read-only here.
type ChannelMapping struct {
	ChannelID   string `yaml:"channelId"`
	ChannelName string `yaml:"channelName"`
	FolderPath  string `yaml:"folderPath,omitempty"`
	ConfigPath  string `yaml:"configPath"`
}

// FindOneTime returns the one-time job with the given id, if present.
func (c *Config) FindOneTime(id string) (OneTimeJob, bool) {
	for _, j := range c.OneTimeJobs {
		if j.ID == id {
			return j, true
		}
	}
	return OneTimeJob{}, false
}

// FindRecurring returns the recurring job with the given name, if present.
func (c *Config) FindRecurring(name string) (RecurringJob, bool) {
	for _, j := range c.RecurringJobs {
		if j.Name == name {
			return j, true
		}
	}
	return RecurringJob{}, false
}

// RemoveOneTime deletes the one-time job with the given id.
// It returns false when no such job exists.
func (c *Config) RemoveOneTime(id string) bool {
	for i, j := range c.OneTimeJobs {
		if j.ID == id {
			c.OneTimeJobs = append(c.OneTimeJobs[:i], c.OneTimeJobs[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveRecurring deletes the recurring job with the given name.
// It returns false when no such job exists.
func (c *Config) RemoveRecurring(name string) bool {
	for i, j := range c.RecurringJobs {
		if j.Name == name {
			c.RecurringJobs = append(c.RecurringJobs[:i], c.RecurringJobs[i+1:]...)
			return true
		}
	}
	return false
}

// Empty reports whether the config holds no jobs at all.
func (c *Config) Empty() bool {
	return len(c.OneTimeJobs) == 0 && len(c.RecurringJobs) == 0
}
