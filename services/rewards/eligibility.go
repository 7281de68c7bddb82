package rewards

import (
	"time"
)

// RejectionReason identifies why a submission was denied. Rejections are
// structured results, not errors.
type RejectionReason string

const (
	ReasonCooldownActive      RejectionReason = "COOLDOWN_ACTIVE"
	ReasonDailyLimitReached   RejectionReason = "DAILY_LIMIT_REACHED"
	ReasonWeeklyLimitReached  RejectionReason = "WEEKLY_LIMIT_REACHED"
	ReasonMonthlyLimitReached RejectionReason = "MONTHLY_LIMIT_REACHED"
)

// EligibilityReport is the outcome of evaluating a member's history against
// an action policy. Remaining quotas are -1 for unlimited windows.
type EligibilityReport struct {
	Action             string          `json:"action"`
	Eligible           bool            `json:"eligible"`
	Reason             RejectionReason `json:"reason,omitempty"`
	RemainingToday     int             `json:"remaining_today"`
	RemainingThisWeek  int             `json:"remaining_this_week"`
	RemainingThisMonth int             `json:"remaining_this_month"`
	NextEligibleAt     *time.Time      `json:"next_eligible_at,omitempty"`
}

// Evaluator decides admit/deny for one submission given a point-in-time
// snapshot of the member's history for that action. The caller (the ledger
// transaction) is responsible for snapshot consistency.
//
// Windows are calendar-aligned in the configured timezone, not sliding
// durations: a member denied at 23:59 can be eligible again at 00:00.
// Weeks start on Sunday.
type Evaluator struct {
	loc *time.Location
}

func NewEvaluator(loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{loc: loc}
}

// Check evaluates, in order: cooldown, daily cap, weekly cap, monthly cap.
func (e *Evaluator) Check(policy ActionPolicy, history []*ActionRecord, now time.Time) EligibilityReport {
	report := EligibilityReport{Action: policy.Action, Eligible: true}

	dayStart := e.startOfDay(now)
	weekStart := e.startOfWeek(now)
	monthStart := e.startOfMonth(now)

	var latest time.Time
	var countDay, countWeek, countMonth int
	for _, rec := range history {
		if rec.CreatedAt.After(latest) {
			latest = rec.CreatedAt
		}
		if !rec.CreatedAt.Before(dayStart) {
			countDay++
		}
		if !rec.CreatedAt.Before(weekStart) {
			countWeek++
		}
		if !rec.CreatedAt.Before(monthStart) {
			countMonth++
		}
	}

	report.RemainingToday = remaining(policy.MaxPerDay, countDay)
	report.RemainingThisWeek = remaining(policy.MaxPerWeek, countWeek)
	report.RemainingThisMonth = remaining(policy.MaxPerMonth, countMonth)

	if policy.CooldownHours > 0 && !latest.IsZero() {
		next := latest.Add(time.Duration(policy.CooldownHours) * time.Hour)
		if now.Before(next) {
			report.Eligible = false
			report.Reason = ReasonCooldownActive
			report.NextEligibleAt = &next
			return report
		}
	}

	if policy.MaxPerDay > 0 && countDay >= policy.MaxPerDay {
		next := dayStart.AddDate(0, 0, 1)
		report.Eligible = false
		report.Reason = ReasonDailyLimitReached
		report.NextEligibleAt = &next
		return report
	}

	if policy.MaxPerWeek > 0 && countWeek >= policy.MaxPerWeek {
		next := weekStart.AddDate(0, 0, 7)
		report.Eligible = false
		report.Reason = ReasonWeeklyLimitReached
		report.NextEligibleAt = &next
		return report
	}

	if policy.MaxPerMonth > 0 && countMonth >= policy.MaxPerMonth {
		next := monthStart.AddDate(0, 1, 0)
		report.Eligible = false
		report.Reason = ReasonMonthlyLimitReached
		report.NextEligibleAt = &next
		return report
	}

	return report
}

// HistoryCutoff is the earliest CreatedAt the evaluator needs to see for a
// correct decision at time now: the oldest calendar window boundary, pushed
// back further when the cooldown reaches beyond it.
func (e *Evaluator) HistoryCutoff(policy ActionPolicy, now time.Time) time.Time {
	cutoff := e.startOfMonth(now)
	if ws := e.startOfWeek(now); ws.Before(cutoff) {
		cutoff = ws
	}
	if policy.CooldownHours > 0 {
		if cd := now.Add(-time.Duration(policy.CooldownHours) * time.Hour); cd.Before(cutoff) {
			cutoff = cd
		}
	}
	return cutoff
}

func (e *Evaluator) startOfDay(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.loc)
}

func (e *Evaluator) startOfWeek(t time.Time) time.Time {
	day := e.startOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func (e *Evaluator) startOfMonth(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, e.loc)
}

func remaining(limit, count int) int {
	if limit <= 0 {
		return -1
	}
	if count >= limit {
		return 0
	}
	return limit - count
}
