package poller

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the delay between iterations when none is configured.
const DefaultInterval = 10 * time.Minute

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// Schedule decides when the next iteration starts.
//
// Supported forms:
//   - Go duration: "10m", "1h30m"
//   - HH:MM interval: "00:10" (ten minutes), "02:30"
//   - cron: "*/10 * * * *", "0 */5 * * * *", "@hourly", "@every 10m"
//
// "cron:" and "every:" prefixes force the interpretation.
type Schedule struct {
	raw   string
	every time.Duration
	cron  cron.Schedule
}

// Every returns a constant-delay schedule.
func Every(d time.Duration) Schedule {
	if d <= 0 {
		d = DefaultInterval
	}
	return Schedule{raw: d.String(), every: d}
}

// ParseSchedule parses an interval setting. An empty string selects DefaultInterval.
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Every(DefaultInterval), nil
	}
	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return parseCron(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "every:"):
		d, err := parseInterval(strings.TrimSpace(s[len("every:"):]))
		if err != nil {
			return Schedule{}, err
		}
		return Schedule{raw: s, every: d}, nil
	case strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@"):
		return parseCron(s)
	}
	d, err := parseInterval(s)
	if err != nil {
		return Schedule{}, fmt.Errorf(
			"invalid interval %q (use a duration like '10m', HH:MM like '00:10', or cron like '*/10 * * * *')", raw)
	}
	return Schedule{raw: s, every: d}, nil
}

func parseCron(expr string) (Schedule, error) {
	if expr == "" {
		return Schedule{}, fmt.Errorf("cron expression required")
	}
	sch, err := cronParser.Parse(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return Schedule{raw: expr, cron: sch}, nil
}

func parseInterval(v string) (time.Duration, error) {
	if v == "" {
		return 0, fmt.Errorf("interval required")
	}
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return 0, fmt.Errorf("invalid minutes in %q", v)
		}
		d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
		if d <= 0 {
			return 0, fmt.Errorf("interval must be > 0")
		}
		return d, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}

// Next returns the start of the iteration following one that finished at after.
func (s Schedule) Next(after time.Time) time.Time {
	if s.cron != nil {
		return s.cron.Next(after)
	}
	every := s.every
	if every <= 0 {
		every = DefaultInterval
	}
	return after.Add(every)
}

// Interval is the constant delay, or zero for cron schedules.
func (s Schedule) Interval() time.Duration {
	if s.cron != nil {
		return 0
	}
	if s.every <= 0 {
		return DefaultInterval
	}
	return s.every
}

func (s Schedule) String() string {
	if s.raw == "" {
		return DefaultInterval.String()
	}
	return s.raw
}
