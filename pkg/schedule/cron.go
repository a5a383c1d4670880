// Package schedule runs a task on a cron schedule until it reports completion.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// CronParser handles cron expression parsing and next execution calculation.
// Besides the five standard fields it accepts descriptors such as "@hourly"
// and "@every 30s".
type CronParser struct {
	parser cron.Parser
}

// NewCronParser creates a new CronParser
func NewCronParser() *CronParser {
	return &CronParser{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Validate checks if a cron expression is valid
func (p *CronParser) Validate(cronExpr string) error {
	_, err := p.parser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// Next calculates the next execution time after the given time
func (p *CronParser) Next(cronExpr string, timezone string, from time.Time) (time.Time, error) {
	schedule, err := p.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}

	loc, err := loadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}

	return schedule.Next(from.In(loc)).UTC(), nil
}

func loadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	return loc, nil
}
