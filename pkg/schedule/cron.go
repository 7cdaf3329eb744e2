package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// specParser accepts five-field expressions and descriptors such as "@every 1m"
var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSpec parses a worker cadence
func ParseSpec(spec string) (cron.Schedule, error) {
	s, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule spec %q: %w", spec, err)
	}
	return s, nil
}

// NextRun returns the first run of spec after from
func NextRun(spec string, from time.Time) (time.Time, error) {
	s, err := ParseSpec(spec)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(from), nil
}
