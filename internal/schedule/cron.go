package schedule

import (
	"strings"

	"github.com/robfig/cron/v3"
)

// CronParser is the single 5-field parser shared by validation and the
// runner, so a job that validates can never fail to schedule.
// No Descriptor flag: "@hourly" style shortcuts are not part of the file
// format.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronExpr reports whether expr is a valid 5-field cron expression
// (minute hour day month weekday). It returns false rather than erroring on
// anything else, including the wrong number of fields.
func ValidateCronExpr(expr string) bool {
	if len(strings.Fields(strings.TrimSpace(expr))) != 5 {
		return false
	}
	_, err := CronParser.Parse(expr)
	return err == nil
}
