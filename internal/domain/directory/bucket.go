package directory

import (
	"time"

	"github.com/travy/admin-hub/pkg/timeutil"
)

// Performance - уровень эффективности инфлюенсера по числу рефералов.
type Performance string

const (
	PerformanceTop    Performance = "top"
	PerformanceMedium Performance = "medium"
	PerformanceLow    Performance = "low"
)

// Пороги уровней эффективности.
const (
	TopReferralThreshold    = 10
	MediumReferralThreshold = 5
)

// PerformanceOf вычисляет уровень по числу рефералов.
func PerformanceOf(referralCount int) Performance {
	switch {
	case referralCount >= TopReferralThreshold:
		return PerformanceTop
	case referralCount >= MediumReferralThreshold:
		return PerformanceMedium
	default:
		return PerformanceLow
	}
}

// DateRange - корзина давности записи.
type DateRange string

const (
	DateAll     DateRange = All
	DateToday   DateRange = "today"
	DateWeek    DateRange = "week"
	DateMonth   DateRange = "month"
	DateQuarter DateRange = "quarter"
)

// Верхние границы (включительно) в целых сутках.
const (
	WeekDays    = 7
	MonthDays   = 30
	QuarterDays = 90
)

// MatchesDateRange проверяет, попадает ли момент ts в корзину давности.
// Границы включительные; "today" требует ровно 0 прошедших суток.
// Неизвестное значение совпадает всегда.
func MatchesDateRange(ts, now time.Time, rng DateRange) bool {
	days := timeutil.ElapsedDays(ts, now)
	switch rng {
	case DateToday:
		return days == 0
	case DateWeek:
		return days <= WeekDays
	case DateMonth:
		return days <= MonthDays
	case DateQuarter:
		return days <= QuarterDays
	default:
		return true
	}
}

// matchesDate - общая часть Matches для измерения dateRange.
// Отсутствующее время считается равным now.
func matchesDate(r Record, value string, now time.Time) bool {
	if value == All {
		return true
	}
	return MatchesDateRange(TimestampOr(r, now), now, DateRange(value))
}
