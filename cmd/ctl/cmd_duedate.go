package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/core/usecase"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/calendar"
	"github.com/kirillkom/legal-workflow/internal/observability/logging"
)

var dueDateFlags struct {
	start    string
	days     int
	kind     string
	fixed    string
	holidays []string
}

var dueDateCmd = &cobra.Command{
	Use:   "due-date",
	Short: "Compute a due date with the configured business calendar",
	Example: "  legalctl due-date --start 2025-03-07 --days 5 --kind util\n" +
		"  legalctl due-date --kind data_fixa --fixed 15/04/2025",
	RunE: runDueDate,
}

func init() {
	f := dueDateCmd.Flags()
	f.StringVar(&dueDateFlags.start, "start", "", "Start date (publication date)")
	f.IntVar(&dueDateFlags.days, "days", 0, "Number of days")
	f.StringVar(&dueDateFlags.kind, "kind", string(domain.DeadlineBusiness), "util, corrido or data_fixa")
	f.StringVar(&dueDateFlags.fixed, "fixed", "", "Fixed date for data_fixa")
	f.StringSliceVar(&dueDateFlags.holidays, "holiday", nil, "Extra holiday YYYY-MM-DD (repeatable)")
}

func runDueDate(cmd *cobra.Command, _ []string) error {
	location, err := time.LoadLocation(cfg.CalendarTimezone)
	if err != nil {
		return fmt.Errorf("load calendar timezone: %w", err)
	}
	holidays := append(append([]string{}, cfg.CalendarHolidays...), dueDateFlags.holidays...)
	business, err := calendar.New(location, holidays)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cmd.ErrOrStderr(), "ctl", cfg.LogLevel)
	calc := usecase.NewDeadlineCalculator(business, location, logger)

	req := domain.DeadlineRequest{
		StartDate: dueDateFlags.start,
		Kind:      dueDateFlags.kind,
		FixedDate: dueDateFlags.fixed,
	}
	if cmd.Flags().Changed("days") {
		days := dueDateFlags.days
		req.Days = &days
	}
	due, ok := calc.ComputeDueDate(cmd.Context(), req)
	if !ok {
		return fmt.Errorf("no due date for start=%q days=%d kind=%q fixed=%q",
			dueDateFlags.start, dueDateFlags.days, dueDateFlags.kind, dueDateFlags.fixed)
	}
	fmt.Fprintln(cmd.OutOrStdout(), due)
	return nil
}
