package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/ports"
)

var acceptedDateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006"}

// DeadlineCalculator turns prazo rules into due dates. It never fails: a
// missing or invalid input yields no suggestion.
type DeadlineCalculator struct {
	calendar ports.BusinessCalendar
	location *time.Location
	logger   *slog.Logger
}

func NewDeadlineCalculator(calendar ports.BusinessCalendar, location *time.Location, logger *slog.Logger) *DeadlineCalculator {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeadlineCalculator{calendar: calendar, location: location, logger: logger}
}

// ComputeDueDate returns the due date formatted as YYYY-MM-DD, or ok=false.
func (c *DeadlineCalculator) ComputeDueDate(ctx context.Context, req domain.DeadlineRequest) (string, bool) {
	kind, valid := domain.ParseDeadlineKind(req.Kind)
	if !valid {
		c.logger.Warn("prazo_kind_invalid", "tipo_prazo", req.Kind)
		return "", false
	}

	if kind == domain.DeadlineFixed {
		raw := req.FixedDate
		if raw == "" && req.Days != nil {
			raw = strconv.Itoa(*req.Days)
		}
		fixed, ok := c.parseDate(raw)
		if !ok {
			c.logger.Warn("prazo_fixed_date_invalid", "fixed_date", req.FixedDate)
			return "", false
		}
		return fixed.Format(domain.DateLayout), true
	}

	days := positiveDays(req.Days)
	if req.StartDate == "" || days == 0 {
		return "", false
	}
	start, ok := c.parseDate(req.StartDate)
	if !ok {
		return "", false
	}

	if kind == domain.DeadlineBusiness {
		if c.calendar == nil {
			c.logger.Warn("prazo_calendar_unavailable", "start_date", req.StartDate, "dias", days)
			return "", false
		}
		due, err := c.calendar.AddBusinessDays(ctx, start, days)
		if err != nil {
			c.logger.Warn("prazo_calendar_failed", "start_date", req.StartDate, "dias", days, "error", err)
			return "", false
		}
		return due.Format(domain.DateLayout), true
	}

	return start.AddDate(0, 0, days).Format(domain.DateLayout), true
}

// BuildSuggestion wraps ComputeDueDate for the recommender.
func (c *DeadlineCalculator) BuildSuggestion(ctx context.Context, publicationDate string, days *int, rawKind, fixedDate string) *domain.DeadlineSuggestion {
	kind, valid := domain.ParseDeadlineKind(rawKind)
	if !valid {
		return nil
	}
	normalizedDays := positiveDays(days)
	if kind != domain.DeadlineFixed && (publicationDate == "" || normalizedDays == 0) {
		return nil
	}

	due, ok := c.ComputeDueDate(ctx, domain.DeadlineRequest{
		StartDate: publicationDate,
		Days:      days,
		Kind:      string(kind),
		FixedDate: fixedDate,
	})
	if !ok {
		return nil
	}

	suggestion := &domain.DeadlineSuggestion{Kind: kind, DueDate: due}
	if kind != domain.DeadlineFixed {
		suggestion.Days = &normalizedDays
	}
	return suggestion
}

func (c *DeadlineCalculator) parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedDateLayouts {
		parsed, err := time.ParseInLocation(layout, raw, c.location)
		if err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func positiveDays(days *int) int {
	if days == nil || *days <= 0 {
		return 0
	}
	return *days
}
