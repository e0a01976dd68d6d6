package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - Calendar date (sales are dated, not timestamped)
// =============================================================================

// TimePoint is a calendar day in UTC. Time is always midnight.
type TimePoint struct {
	Time time.Time
}

func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int            { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month    { return tp.Time.Month() }
func (tp TimePoint) Day() int             { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool         { return tp.Time.IsZero() }
func (tp TimePoint) YearMonth() YearMonth { return YearMonth{Year: tp.Year(), Month: tp.Month()} }

// EndOfMonth returns the last calendar day of the month containing tp.
func (tp TimePoint) EndOfMonth() TimePoint { return EndOfMonth(tp.Year(), tp.Month()) }

func (tp TimePoint) String() string { return tp.Time.Format("2006-01-02") }

// =============================================================================
// YEAR-MONTH - Calendar month used to bucket sales
// =============================================================================

// YearMonth identifies one calendar month. It is comparable and safe to use
// inside map keys.
type YearMonth struct {
	Year  int
	Month time.Month
}

func (ym YearMonth) String() string { return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month)) }

// ParseYearMonth parses the "2006-01" form produced by YearMonth.String.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// EndOfMonth handles month lengths and leap years: the day before the first
// of the following month.
func EndOfMonth(year int, month time.Month) TimePoint {
	return TimePoint{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}
