package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(15*time.Minute), s.Next(now))
}

func TestIntervalSchedule_String(t *testing.T) {
	s := NewIntervalSchedule(30 * time.Second)
	assert.Equal(t, "@every 30s", s.String())
}
