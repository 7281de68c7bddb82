package rewards

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recordAt(ts time.Time) *ActionRecord {
	return &ActionRecord{CreatedAt: ts}
}

func recordsAt(times ...time.Time) []*ActionRecord {
	out := make([]*ActionRecord, 0, len(times))
	for _, ts := range times {
		out = append(out, recordAt(ts))
	}
	return out
}

func TestEvaluatorCooldown(t *testing.T) {
	eval := NewEvaluator(time.UTC)
	policy := ActionPolicy{Action: "review-posted", BasePoints: 150, CooldownHours: 24}

	last := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("rejected inside cooldown", func(t *testing.T) {
		now := last.Add(1 * time.Hour)
		report := eval.Check(policy, recordsAt(last), now)
		require.False(t, report.Eligible)
		require.Equal(t, ReasonCooldownActive, report.Reason)
		require.NotNil(t, report.NextEligibleAt)
		require.Equal(t, last.Add(24*time.Hour), *report.NextEligibleAt)
	})

	t.Run("eligible after cooldown expires", func(t *testing.T) {
		now := last.Add(25 * time.Hour)
		report := eval.Check(policy, recordsAt(last), now)
		require.True(t, report.Eligible)
		require.Empty(t, report.Reason)
	})

	t.Run("no cooldown configured", func(t *testing.T) {
		policy := ActionPolicy{Action: "social-follow", BasePoints: 100}
		report := eval.Check(policy, recordsAt(last), last.Add(time.Second))
		require.True(t, report.Eligible)
	})
}

func TestEvaluatorWindowCaps(t *testing.T) {
	eval := NewEvaluator(time.UTC)
	// Tuesday 2026-03-10
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	t.Run("daily cap", func(t *testing.T) {
		policy := ActionPolicy{Action: "a", MaxPerDay: 2}
		history := recordsAt(
			now.Add(-1*time.Hour),
			now.Add(-2*time.Hour),
		)
		report := eval.Check(policy, history, now)
		require.False(t, report.Eligible)
		require.Equal(t, ReasonDailyLimitReached, report.Reason)
		require.Equal(t, 0, report.RemainingToday)
		require.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), *report.NextEligibleAt)
	})

	t.Run("weekly cap counts from Sunday", func(t *testing.T) {
		policy := ActionPolicy{Action: "a", MaxPerWeek: 2}
		// Sunday 2026-03-08 starts the week; Saturday 03-07 does not count
		history := recordsAt(
			time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC),
		)
		report := eval.Check(policy, history, now)
		require.False(t, report.Eligible)
		require.Equal(t, ReasonWeeklyLimitReached, report.Reason)
		require.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *report.NextEligibleAt)
	})

	t.Run("monthly cap", func(t *testing.T) {
		policy := ActionPolicy{Action: "a", MaxPerMonth: 1}
		history := recordsAt(time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC))
		report := eval.Check(policy, history, now)
		require.False(t, report.Eligible)
		require.Equal(t, ReasonMonthlyLimitReached, report.Reason)
		require.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *report.NextEligibleAt)
	})

	t.Run("cooldown checked before daily cap", func(t *testing.T) {
		policy := ActionPolicy{Action: "a", CooldownHours: 6, MaxPerDay: 1}
		history := recordsAt(now.Add(-1 * time.Hour))
		report := eval.Check(policy, history, now)
		require.Equal(t, ReasonCooldownActive, report.Reason)
	})

	t.Run("daily checked before weekly", func(t *testing.T) {
		policy := ActionPolicy{Action: "a", MaxPerDay: 1, MaxPerWeek: 1}
		history := recordsAt(now.Add(-1 * time.Hour))
		report := eval.Check(policy, history, now)
		require.Equal(t, ReasonDailyLimitReached, report.Reason)
	})
}

func TestEvaluatorCalendarRollover(t *testing.T) {
	eval := NewEvaluator(time.UTC)
	policy := ActionPolicy{Action: "a", MaxPerDay: 1}

	lateNight := time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)
	history := recordsAt(lateNight.Add(-1 * time.Minute))

	report := eval.Check(policy, history, lateNight)
	require.False(t, report.Eligible)

	// two seconds later the calendar day has turned over
	report = eval.Check(policy, history, time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC))
	require.True(t, report.Eligible)
	require.Equal(t, 1, report.RemainingToday)
}

func TestEvaluatorRemainingQuotas(t *testing.T) {
	eval := NewEvaluator(time.UTC)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	t.Run("unlimited windows report -1", func(t *testing.T) {
		policy := ActionPolicy{Action: "a"}
		report := eval.Check(policy, nil, now)
		require.True(t, report.Eligible)
		require.Equal(t, -1, report.RemainingToday)
		require.Equal(t, -1, report.RemainingThisWeek)
		require.Equal(t, -1, report.RemainingThisMonth)
	})

	t.Run("counts subtract from limits", func(t *testing.T) {
		policy := ActionPolicy{Action: "a", MaxPerDay: 3, MaxPerWeek: 10, MaxPerMonth: 30}
		history := recordsAt(now.Add(-1*time.Hour), now.Add(-2*time.Hour))
		report := eval.Check(policy, history, now)
		require.True(t, report.Eligible)
		require.Equal(t, 1, report.RemainingToday)
		require.Equal(t, 8, report.RemainingThisWeek)
		require.Equal(t, 28, report.RemainingThisMonth)
	})
}

func TestHistoryCutoff(t *testing.T) {
	eval := NewEvaluator(time.UTC)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	t.Run("month start when week is younger", func(t *testing.T) {
		policy := ActionPolicy{Action: "a", MaxPerMonth: 1}
		cutoff := eval.HistoryCutoff(policy, now)
		require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), cutoff)
	})

	t.Run("long cooldown pushes cutoff back", func(t *testing.T) {
		policy := ActionPolicy{Action: "a", CooldownHours: 24 * 30}
		cutoff := eval.HistoryCutoff(policy, now)
		require.Equal(t, now.Add(-24*30*time.Hour), cutoff)
	})

	t.Run("week start crossing month boundary", func(t *testing.T) {
		// Monday 2026-03-02: the week began Sunday 03-01, month start
		// and week start coincide on 03-01
		now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		policy := ActionPolicy{Action: "a", MaxPerWeek: 1}
		cutoff := eval.HistoryCutoff(policy, now)
		require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), cutoff)
	})
}
