// Package validation holds the pure helpers shared by the server, the client
// and the editors: cron humanization, price ranges, operator metadata and
// name rules.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// CronToHuman renders a standard 5-field cron expression as a short English
// phrase. Shapes it does not recognise are returned unchanged.
func CronToHuman(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return "Invalid cron expression"
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]

	if month != "*" {
		return expr
	}
	everyDay := dom == "*" && dow == "*"

	switch {
	case minute == "*" && hour == "*" && everyDay:
		return "Every minute"

	case strings.HasPrefix(minute, "*/") && hour == "*" && everyDay:
		n, ok := step(minute)
		if !ok {
			return expr
		}
		if n == 1 {
			return "Every minute"
		}
		return fmt.Sprintf("Every %d minutes", n)

	case minute == "0" && hour == "*" && everyDay:
		return "Every hour"

	case isNumber(minute) && hour == "*" && everyDay:
		return fmt.Sprintf("Every hour at minute %s", minute)

	case isNumber(minute) && strings.HasPrefix(hour, "*/") && everyDay:
		n, ok := step(hour)
		if !ok {
			return expr
		}
		if n == 1 {
			return "Every hour"
		}
		return fmt.Sprintf("Every %d hours", n)

	case isNumber(minute) && isNumber(hour):
		at := clock(hour, minute)
		switch {
		case everyDay && at == "00:00":
			return "Daily at midnight"
		case everyDay && at == "12:00":
			return "Daily at noon"
		case everyDay:
			return "Daily at " + at
		case dom == "*" && dow == "1-5":
			return "Weekdays at " + at
		case dom == "*" && isNumber(dow):
			d, _ := strconv.Atoi(dow)
			if d < 0 || d > 7 {
				return expr
			}
			return fmt.Sprintf("Weekly on %s at %s", weekdays[d], at)
		case isNumber(dom) && dow == "*":
			return fmt.Sprintf("Monthly on day %s at %s", dom, at)
		}
	}

	return expr
}

// ValidateCron checks that expr is a standard 5-field cron expression.
func ValidateCron(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("%w: cron expression is required", ErrInvalidCron)
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return nil
}

// NextRun returns the first activation of expr strictly after the given time.
func NextRun(expr string, after time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return sched.Next(after), nil
}

func step(field string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(field, "*/"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func clock(hour, minute string) string {
	h, _ := strconv.Atoi(hour)
	m, _ := strconv.Atoi(minute)
	return fmt.Sprintf("%02d:%02d", h, m)
}
