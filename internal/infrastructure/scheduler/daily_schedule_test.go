package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailySchedule_NextSameDay(t *testing.T) {
	s := NewDailySchedule(2, 30, nil)

	now := time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)
	next := s.Next(now)

	assert.Equal(t, time.Date(2025, 3, 10, 2, 30, 0, 0, time.UTC), next)
}

func TestDailySchedule_NextRollsToNextDay(t *testing.T) {
	s := NewDailySchedule(2, 30, nil)

	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	next := s.Next(now)

	assert.Equal(t, time.Date(2025, 3, 11, 2, 30, 0, 0, time.UTC), next)
}

func TestDailySchedule_NextIsStrictlyAfter(t *testing.T) {
	s := NewDailySchedule(2, 30, nil)

	exact := time.Date(2025, 3, 10, 2, 30, 0, 0, time.UTC)
	next := s.Next(exact)

	assert.Equal(t, exact.AddDate(0, 0, 1), next)
}

func TestDailySchedule_HonorsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)
	s := NewDailySchedule(2, 0, loc)

	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC) // 01:00 next day in Almaty
	next := s.Next(now)

	assert.Equal(t, time.Date(2025, 3, 11, 2, 0, 0, 0, loc), next.In(loc))
}

func TestDailySchedule_String(t *testing.T) {
	s := NewDailySchedule(2, 30, nil)
	assert.Equal(t, "@daily 02:30 UTC", s.String())
}
