package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronToHuman(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"0 0 * * *", "Daily at midnight"},
		{"0 */6 * * *", "Every 6 hours"},
		{"* * * * *", "Every minute"},
		{"*/15 * * * *", "Every 15 minutes"},
		{"*/1 * * * *", "Every minute"},
		{"0 * * * *", "Every hour"},
		{"30 * * * *", "Every hour at minute 30"},
		{"0 */1 * * *", "Every hour"},
		{"0 12 * * *", "Daily at noon"},
		{"30 2 * * *", "Daily at 02:30"},
		{"0 9 * * 1-5", "Weekdays at 09:00"},
		{"0 8 * * 1", "Weekly on Monday at 08:00"},
		{"0 8 * * 0", "Weekly on Sunday at 08:00"},
		{"0 8 * * 7", "Weekly on Sunday at 08:00"},
		{"15 3 1 * *", "Monthly on day 1 at 03:15"},
		{"0 0 1 1 *", "0 0 1 1 *"},
		{"5,10 * * * *", "5,10 * * * *"},
		{"0 0 * *", "Invalid cron expression"},
		{"", "Invalid cron expression"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, CronToHuman(tt.expr))
		})
	}
}

func TestValidateCron(t *testing.T) {
	assert.NoError(t, ValidateCron("0 */6 * * *"))
	assert.NoError(t, ValidateCron("15 3 1 * *"))

	for _, bad := range []string{"", "   ", "0 0 * *", "61 * * * *", "every hour"} {
		err := ValidateCron(bad)
		assert.ErrorIs(t, err, ErrInvalidCron, "expr %q", bad)
	}
}

func TestNextRun(t *testing.T) {
	after := time.Date(2026, 3, 10, 5, 30, 0, 0, time.UTC)

	next, err := NextRun("0 */6 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC), next)

	_, err = NextRun("nope", after)
	assert.ErrorIs(t, err, ErrInvalidCron)
}
