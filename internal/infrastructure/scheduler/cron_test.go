package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "every five minutes", expr: "*/5 * * * *"},
		{name: "daily at two", expr: "0 2 * * *"},
		{name: "weekly sunday", expr: "0 2 * * 0"},
		{name: "list and range", expr: "0,30 9-17 * * 1-5"},
		{name: "too few fields", expr: "0 2 * *", wantErr: true},
		{name: "minute out of range", expr: "61 * * * *", wantErr: true},
		{name: "bad step", expr: "*/0 * * * *", wantErr: true},
		{name: "garbage", expr: "every day", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce, err := ParseCronExpression(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expr, ce.String())
		})
	}
}

func TestCronExpression_Next(t *testing.T) {
	ce, err := ParseCronExpression("0 2 * * *")
	require.NoError(t, err)

	next := ce.Next(time.Date(2025, 3, 10, 1, 15, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC), next)

	next = ce.Next(time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC), next)
}

func TestCronExpression_NextWeekly(t *testing.T) {
	ce, err := ParseCronExpression("0 2 * * 0")
	require.NoError(t, err)

	// 2025-03-10 is a Monday; the next Sunday is the 16th.
	next := ce.Next(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 16, 2, 0, 0, 0, time.UTC), next)
}

func TestNewCronSchedule(t *testing.T) {
	s, err := NewCronSchedule("0 2 * * *", nil)
	require.NoError(t, err)

	next := s.Next(time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC), next)
	assert.Equal(t, "@cron 0 2 * * * UTC", s.String())
}

func TestNewCronSchedule_InvalidExpression(t *testing.T) {
	_, err := NewCronSchedule("not a cron", nil)
	assert.Error(t, err)
}
