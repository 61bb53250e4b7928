package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

// Business counts business days skipping weekends and configured holidays.
type Business struct {
	location *time.Location
	holidays map[string]struct{}
}

// New parses holidays in domain.DateLayout.
func New(location *time.Location, holidays []string) (*Business, error) {
	if location == nil {
		location = time.UTC
	}
	set := make(map[string]struct{}, len(holidays))
	for _, raw := range holidays {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		day, err := time.ParseInLocation(domain.DateLayout, raw, location)
		if err != nil {
			return nil, fmt.Errorf("parse holiday %q: %w", raw, err)
		}
		set[day.Format(domain.DateLayout)] = struct{}{}
	}
	return &Business{location: location, holidays: set}, nil
}

// AddBusinessDays starts counting on the day after start; the result is
// always a business day.
func (b *Business) AddBusinessDays(ctx context.Context, start time.Time, days int) (time.Time, error) {
	if days < 0 {
		return time.Time{}, fmt.Errorf("negative business days: %d", days)
	}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, b.location)
	for added := 0; added < days; {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}
		day = day.AddDate(0, 0, 1)
		if b.IsBusinessDay(day) {
			added++
		}
	}
	return day, nil
}

func (b *Business) IsBusinessDay(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := b.holidays[day.Format(domain.DateLayout)]
	return !holiday
}
