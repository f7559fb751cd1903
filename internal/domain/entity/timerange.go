package entity

import (
	"fmt"
	"time"
)

// DateLayout é o formato de data usado pelo Cost Explorer e pela CLI.
const DateLayout = "2006-01-02"

// Period identifica a qual período de comparação um dado pertence.
type Period int

const (
	PeriodCurrent Period = iota
	PeriodPrevious
)

func (p Period) String() string {
	switch p {
	case PeriodCurrent:
		return "current"
	case PeriodPrevious:
		return "previous"
	default:
		return fmt.Sprintf("period(%d)", int(p))
	}
}

// TimeRange is a half-open [Start, End) interval of calendar dates (UTC midnight).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeRange trunca os limites para datas e valida Start < End.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	tr := TimeRange{Start: TruncateDate(start), End: TruncateDate(end)}
	if !tr.Start.Before(tr.End) {
		return TimeRange{}, fmt.Errorf("%w: end %s must be after start %s",
			ErrInvalidTimeRange, tr.End.Format(DateLayout), tr.Start.Format(DateLayout))
	}
	return tr, nil
}

// Days returns the number of calendar days covered by the range.
func (t TimeRange) Days() int {
	return int(t.End.Sub(t.Start).Hours() / 24)
}

// Contains reports whether d falls inside [Start, End).
func (t TimeRange) Contains(d time.Time) bool {
	d = TruncateDate(d)
	return !d.Before(t.Start) && d.Before(t.End)
}

func (t TimeRange) String() string {
	return fmt.Sprintf("%s to %s", t.Start.Format(DateLayout), t.End.Format(DateLayout))
}

// PeriodPair holds the current interval and the comparison interval that precedes it.
type PeriodPair struct {
	Current      TimeRange `json:"current"`
	Previous     TimeRange `json:"previous"`
	CurrentName  string    `json:"current_name"`
	PreviousName string    `json:"previous_name"`
}

// Range devolve o intervalo correspondente ao período.
func (p PeriodPair) Range(period Period) TimeRange {
	if period == PeriodPrevious {
		return p.Previous
	}
	return p.Current
}

// Earliest is the first date covered by either period.
func (p PeriodPair) Earliest() time.Time {
	if p.Previous.Start.IsZero() || p.Current.Start.Before(p.Previous.Start) {
		return p.Current.Start
	}
	return p.Previous.Start
}

// TruncateDate drops the time-of-day component, normalizing to UTC.
func TruncateDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
