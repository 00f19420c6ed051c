package spending

import (
	"time"

	"github.com/lumastudio/server/internal/model"
)

// PeriodWindow returns the active [start, reset) window for the given period
// at the given instant, with start <= now < reset. Pure and total; an
// unrecognized period falls back to monthly.
func PeriodWindow(period model.LimitPeriod, now time.Time) (start, reset time.Time) {
	switch period {
	case model.LimitPeriodDaily:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		reset = start.AddDate(0, 0, 1)
	case model.LimitPeriodWeekly:
		// Weeks start on Sunday.
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		start = midnight.AddDate(0, 0, -int(now.Weekday()))
		reset = start.AddDate(0, 0, 7)
	case model.LimitPeriodYearly:
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		reset = start.AddDate(1, 0, 0)
	case model.LimitPeriodMonthly:
		fallthrough
	default:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		reset = start.AddDate(0, 1, 0)
	}
	return start, reset
}

// NextMonthStart returns the first instant of the month following now.
func NextMonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
}
