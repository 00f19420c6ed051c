package spending

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lumastudio/server/internal/model"
)

// DefaultApproachThreshold is the percentage at which a limit is considered
// approaching its cap.
const DefaultApproachThreshold = 80

// NewLimit creates a spending limit with a zero spend and a window computed
// from the period. Amount and period are assumed pre-validated by the caller.
func NewLimit(amount int64, period model.LimitPeriod, blockOnExceed bool, now time.Time) model.SpendingLimit {
	start, reset := PeriodWindow(period, now)
	return model.SpendingLimit{
		ID:            uuid.New(),
		Amount:        amount,
		Period:        period,
		CurrentSpend:  0,
		StartDate:     start,
		ResetDate:     reset,
		Enabled:       true,
		BlockOnExceed: blockOnExceed,
		Alerts:        []model.SpendingAlert{},
	}
}

// ShouldReset reports whether the limit's window has expired.
func ShouldReset(l *model.SpendingLimit, now time.Time) bool {
	return !now.Before(l.ResetDate)
}

// ResetLimit recomputes the window from the period, zeroes the spend, and
// restarts the throttle clock of every owned alert.
func ResetLimit(l *model.SpendingLimit, now time.Time) {
	l.StartDate, l.ResetDate = PeriodWindow(l.Period, now)
	l.CurrentSpend = 0
	for i := range l.Alerts {
		clearAlert(&l.Alerts[i])
	}
}

// CheckAndResetAll resets every expired limit and rolls the month/year
// running totals when their calendar keys change. Callers must run this
// before reading CurrentSpend or percentages; expiry is lazy and pull-based,
// there are no timers.
func CheckAndResetAll(cfg *model.SpendingLimitsConfig, now time.Time) {
	for i := range cfg.Limits {
		if ShouldReset(&cfg.Limits[i], now) {
			ResetLimit(&cfg.Limits[i], now)
		}
	}

	if mk := now.Format("2006-01"); cfg.MonthKey != mk {
		cfg.MonthKey = mk
		cfg.MonthTotal = 0
		for i := range cfg.GlobalAlerts {
			clearAlert(&cfg.GlobalAlerts[i])
		}
	}
	if y := now.Year(); cfg.YearKey != y {
		cfg.YearKey = y
		cfg.YearTotal = 0
	}
}

// Percentage returns spend as a percentage of cap, capped at 100.
// A zero cap resolves to 0, never a division error.
func Percentage(spend, cap int64) int {
	if cap <= 0 {
		return 0
	}
	pct := int(math.Round(float64(spend) / float64(cap) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

// IsExceeded reports whether the limit's spend has reached its cap.
func IsExceeded(l *model.SpendingLimit) bool {
	return l.CurrentSpend >= l.Amount
}

// IsApproaching reports whether the limit is near but not at its cap.
// Exceeded and approaching are mutually exclusive.
func IsApproaching(l *model.SpendingLimit, thresholdPct int) bool {
	pct := Percentage(l.CurrentSpend, l.Amount)
	return pct >= thresholdPct && pct < 100 && !IsExceeded(l)
}

// SpendCheck is the outcome of a pre-spend check.
type SpendCheck struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CanSpend scans enabled blocking limits and rejects on the first one the
// given amount would push past its cap. First-match policy: the scan stops
// at the first violation, not the tightest limit.
func CanSpend(limits []model.SpendingLimit, amount int64) SpendCheck {
	for i := range limits {
		l := &limits[i]
		if !l.Enabled || !l.BlockOnExceed {
			continue
		}
		if l.CurrentSpend+amount > l.Amount {
			return SpendCheck{
				Allowed: false,
				Reason: fmt.Sprintf("%s spending limit of $%.2f would be exceeded ($%.2f already spent)",
					l.Period, float64(l.Amount)/100, float64(l.CurrentSpend)/100),
			}
		}
	}
	return SpendCheck{Allowed: true}
}

// AddTransaction records a spend event against the config: the history entry
// is prepended, every enabled limit and both running totals are bumped, and
// all alerts are evaluated. Returns the alerts that fired during this call,
// collected in a single pass; callers must run CheckAndResetAll first, this
// function never expires windows itself.
func AddTransaction(cfg *model.SpendingLimitsConfig, amount int64, description string, category model.SpendCategory, now time.Time) []model.SpendingAlert {
	entry := model.SpendingHistoryEntry{
		ID:          uuid.New(),
		Amount:      amount,
		Description: description,
		Category:    category,
		Completed:   true,
		CreatedAt:   now,
	}
	cfg.History = append([]model.SpendingHistoryEntry{entry}, cfg.History...)

	cfg.MonthTotal += amount
	cfg.YearTotal += amount

	// Fired alerts are collected explicitly during the pass; never
	// re-derived afterwards by comparing LastTriggered timestamps.
	var fired []model.SpendingAlert

	for i := range cfg.Limits {
		l := &cfg.Limits[i]
		if !l.Enabled {
			continue
		}
		l.CurrentSpend += amount
		for j := range l.Alerts {
			a := &l.Alerts[j]
			if ShouldTrigger(a, l.CurrentSpend, l.Amount, now) {
				markTriggered(a, now)
				fired = append(fired, *a)
			}
		}
	}

	for i := range cfg.GlobalAlerts {
		a := &cfg.GlobalAlerts[i]
		if ShouldTrigger(a, cfg.MonthTotal, 0, now) {
			markTriggered(a, now)
			fired = append(fired, *a)
		}
	}

	cfg.UpdatedAt = now
	return fired
}

// LimitResponse derives the API view of a limit, including percentage and
// the mutually exclusive exceeded/approaching states.
func LimitResponse(l *model.SpendingLimit, approachThreshold int) *model.SpendingLimitResponse {
	return &model.SpendingLimitResponse{
		ID:            l.ID,
		Amount:        l.Amount,
		Period:        l.Period.String(),
		CurrentSpend:  l.CurrentSpend,
		Percentage:    Percentage(l.CurrentSpend, l.Amount),
		Exceeded:      IsExceeded(l),
		Approaching:   IsApproaching(l, approachThreshold),
		StartDate:     l.StartDate,
		ResetDate:     l.ResetDate,
		Enabled:       l.Enabled,
		BlockOnExceed: l.BlockOnExceed,
		Alerts:        l.Alerts,
	}
}
