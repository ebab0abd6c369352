package schedule

import (
	"strconv"
	"strings"
	"time"
)

// Validate checks every entry and returns the first problem found.
// Fail-fast: a config with one bad entry is rejected as a whole.
func (c *Config) Validate() error {
	seenIDs := map[string]int{}
	for i := range c.OneTimeJobs {
		j := &c.OneTimeJobs[i]
		if field, reason := j.check(); field != "" {
			return &ValidationError{List: "oneTimeJobs", Index: i, Field: field, Reason: reason}
		}
		if prev, dup := seenIDs[j.ID]; dup {
			return &ValidationError{List: "oneTimeJobs", Index: i, Field: "id",
				Reason: "duplicate id (also used at index " + strconv.Itoa(prev) + ")"}
		}
		seenIDs[j.ID] = i
	}

	// Name uniqueness is per channel; one file normally holds one channel,
	// but we key on (channelId, name) so a shared file stays valid too.
	seenNames := map[[2]string]int{}
	for i := range c.RecurringJobs {
		j := &c.RecurringJobs[i]
		if field, reason := j.check(); field != "" {
			return &ValidationError{List: "recurringJobs", Index: i, Field: field, Reason: reason}
		}
		key := [2]string{j.ChannelID, j.Name}
		if prev, dup := seenNames[key]; dup {
			return &ValidationError{List: "recurringJobs", Index: i, Field: "name",
				Reason: "duplicate name in channel (also used at index " + strconv.Itoa(prev) + ")"}
		}
		seenNames[key] = i
	}
	return nil
}

func (j *OneTimeJob) check() (field, reason string) {
	switch {
	case strings.TrimSpace(j.ID) == "":
		return "id", "missing required field"
	case strings.TrimSpace(j.Task) == "":
		return "task", "missing required field"
	case strings.TrimSpace(j.ChannelID) == "":
		return "channelId", "missing required field"
	case j.TargetTime.IsZero():
		return "targetTime", "missing required field"
	}
	if !validZone(j.Timezone) {
		return "timezone", "unknown IANA timezone " + strconv.Quote(j.Timezone)
	}
	return "", ""
}

func (j *RecurringJob) check() (field, reason string) {
	switch {
	case strings.TrimSpace(j.Name) == "":
		return "name", "missing required field"
	case strings.TrimSpace(j.CronExpr) == "":
		return "cronExpression", "missing required field"
	case strings.TrimSpace(j.Task) == "":
		return "task", "missing required field"
	case strings.TrimSpace(j.ChannelID) == "":
		return "channelId", "missing required field"
	}
	if !ValidateCronExpr(j.CronExpr) {
		return "cronExpression", "not a valid 5-field cron expression: " + strconv.Quote(j.CronExpr)
	}
	if !validZone(j.Timezone) {
		return "timezone", "unknown IANA timezone " + strconv.Quote(j.Timezone)
	}
	return "", ""
}

// validZone rejects empty strings explicitly: time.LoadLocation("") silently
// returns UTC, which would hide a missing field.
func validZone(tz string) bool {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}
