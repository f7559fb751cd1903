// Package aggregation implements the multi-profile cost aggregation and merge engine.
package aggregation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diillson/aws-costlens/internal/domain/entity"
)

// LastMonthSpec seleciona o mês anterior completo contra o mês antes dele.
const LastMonthSpec = "last-month"

// TimeRangeResolver turns a user time specification into a PeriodPair.
// It is a pure function of its input and the injected clock.
type TimeRangeResolver struct {
	now func() time.Time
}

// NewTimeRangeResolver cria um resolver; now nil usa o relógio do sistema.
func NewTimeRangeResolver(now func() time.Time) *TimeRangeResolver {
	if now == nil {
		now = time.Now
	}
	return &TimeRangeResolver{now: now}
}

// Resolve aceita "" (mês corrente), "N" (últimos N dias), "last-month"
// ou "YYYY-MM-DD:YYYY-MM-DD".
func (r *TimeRangeResolver) Resolve(spec string) (entity.PeriodPair, error) {
	spec = strings.TrimSpace(spec)
	today := entity.TruncateDate(r.now())

	switch {
	case spec == "":
		return monthToDate(today), nil
	case strings.EqualFold(spec, LastMonthSpec):
		return lastMonth(today), nil
	case strings.Contains(spec, ":"):
		return explicitRange(spec, today)
	}

	days, err := strconv.Atoi(spec)
	if err != nil {
		return entity.PeriodPair{}, fmt.Errorf("%w: %q is not a day count, %q or YYYY-MM-DD:YYYY-MM-DD",
			entity.ErrInvalidTimeRange, spec, LastMonthSpec)
	}
	return lastNDays(days, today)
}

func monthToDate(today time.Time) entity.PeriodPair {
	start := firstOfMonth(today)
	end := today
	// No primeiro dia do mês o intervalo ficaria vazio; inclui o dia corrente.
	if start.Equal(end) {
		end = end.AddDate(0, 0, 1)
	}
	prevStart := start.AddDate(0, -1, 0)

	return entity.PeriodPair{
		Current:      entity.TimeRange{Start: start, End: end},
		Previous:     entity.TimeRange{Start: prevStart, End: start},
		CurrentName:  fmt.Sprintf("%s (MTD)", today.Format("January 2006")),
		PreviousName: fmt.Sprintf("%s (full month)", prevStart.Format("January 2006")),
	}
}

func lastMonth(today time.Time) entity.PeriodPair {
	end := firstOfMonth(today)
	start := end.AddDate(0, -1, 0)
	prevStart := start.AddDate(0, -1, 0)

	return entity.PeriodPair{
		Current:      entity.TimeRange{Start: start, End: end},
		Previous:     entity.TimeRange{Start: prevStart, End: start},
		CurrentName:  fmt.Sprintf("%s (last month)", start.Format("January 2006")),
		PreviousName: fmt.Sprintf("%s (prior month)", prevStart.Format("January 2006")),
	}
}

func lastNDays(days int, today time.Time) (entity.PeriodPair, error) {
	if days <= 0 {
		return entity.PeriodPair{}, fmt.Errorf("%w: day count must be positive, got %d", entity.ErrInvalidTimeRange, days)
	}
	start := today.AddDate(0, 0, -days)

	return entity.PeriodPair{
		Current:      entity.TimeRange{Start: start, End: today},
		Previous:     entity.TimeRange{Start: start.AddDate(0, 0, -days), End: start},
		CurrentName:  fmt.Sprintf("Last %d days", days),
		PreviousName: fmt.Sprintf("Previous %d days", days),
	}, nil
}

func explicitRange(spec string, today time.Time) (entity.PeriodPair, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 2 {
		return entity.PeriodPair{}, fmt.Errorf("%w: invalid date range format %q, use YYYY-MM-DD:YYYY-MM-DD",
			entity.ErrInvalidTimeRange, spec)
	}

	start, err := time.Parse(entity.DateLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return entity.PeriodPair{}, fmt.Errorf("%w: invalid start date %q", entity.ErrInvalidTimeRange, parts[0])
	}
	end, err := time.Parse(entity.DateLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return entity.PeriodPair{}, fmt.Errorf("%w: invalid end date %q", entity.ErrInvalidTimeRange, parts[1])
	}

	current, err := entity.NewTimeRange(start, end)
	if err != nil {
		return entity.PeriodPair{}, err
	}
	if current.Start.After(today) {
		return entity.PeriodPair{}, fmt.Errorf("%w: start date %s is in the future",
			entity.ErrInvalidTimeRange, current.Start.Format(entity.DateLayout))
	}
	// End é exclusivo: hoje+1 ainda inclui o dia corrente.
	if current.End.After(today.AddDate(0, 0, 1)) {
		return entity.PeriodPair{}, fmt.Errorf("%w: end date %s is in the future",
			entity.ErrInvalidTimeRange, current.End.Format(entity.DateLayout))
	}

	previous := entity.TimeRange{
		Start: current.Start.AddDate(0, 0, -current.Days()),
		End:   current.Start,
	}

	return entity.PeriodPair{
		Current:      current,
		Previous:     previous,
		CurrentName:  current.String(),
		PreviousName: previous.String(),
	}, nil
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
