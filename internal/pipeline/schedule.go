package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is a parsed standard 5-field cron expression
// ("minute hour day-of-month month day-of-week"). Descriptors such as
// "@monthly" are accepted too. Times are evaluated in UTC.
type Schedule struct {
	expr  string
	sched cron.Schedule
}

// ParseSchedule parses a standard cron expression.
func ParseSchedule(expr string) (Schedule, error) {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("parse cron %q: %w", expr, err)
	}
	return Schedule{expr: expr, sched: s}, nil
}

// String returns the original expression.
func (s Schedule) String() string { return s.expr }

// Next returns the first activation strictly after after.
func (s Schedule) Next(after time.Time) (time.Time, error) {
	if s.sched == nil {
		return time.Time{}, errors.New("cron schedule not set")
	}
	next := s.sched.Next(after.UTC())
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("no matching cron time found for %q", s.expr)
	}
	return next, nil
}
