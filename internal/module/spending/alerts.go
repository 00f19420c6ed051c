package spending

import (
	"time"

	"github.com/lumastudio/server/internal/model"
)

// Alert throttle intervals.
const (
	dailyThrottle  = 24 * time.Hour
	weeklyThrottle = 7 * 24 * time.Hour
)

// ShouldTrigger decides whether an alert fires for the given cumulative
// spend. cap is the owning limit's amount, or 0 for global (cap-less)
// alerts. The decision has no side effects; the engine applies
// LastTriggered/TriggerCount exactly once per qualifying alert per
// transaction pass.
func ShouldTrigger(alert *model.SpendingAlert, spend, cap int64, now time.Time) bool {
	if !alert.Enabled {
		return false
	}

	if !thresholdMet(alert, spend, cap) {
		return false
	}

	// First qualifying breach always fires.
	if alert.LastTriggered == nil {
		return true
	}

	elapsed := now.Sub(*alert.LastTriggered)
	switch alert.Frequency {
	case model.AlertFrequencyOnce:
		return false
	case model.AlertFrequencyDaily:
		return elapsed >= dailyThrottle
	case model.AlertFrequencyWeekly:
		return elapsed >= weeklyThrottle
	case model.AlertFrequencyAlways:
		return true
	default:
		return false
	}
}

// thresholdMet reports whether the alert's threshold condition holds.
// A percentage threshold requires a cap to compare against; otherwise the
// absolute threshold applies. An alert with neither configured never fires.
func thresholdMet(alert *model.SpendingAlert, spend, cap int64) bool {
	if alert.Percentage != nil && cap > 0 {
		return Percentage(spend, cap) >= *alert.Percentage
	}
	if alert.Threshold != nil {
		return spend >= *alert.Threshold
	}
	return false
}

// markTriggered applies the fire side effect to an alert.
func markTriggered(alert *model.SpendingAlert, now time.Time) {
	t := now
	alert.LastTriggered = &t
	alert.TriggerCount++
}

// clearAlert resets an alert's throttle state. Called on window reset so the
// alert restarts its clock with the period.
func clearAlert(alert *model.SpendingAlert) {
	alert.LastTriggered = nil
	alert.TriggerCount = 0
}
