package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classlens/classlens/config"
	"github.com/classlens/classlens/internal/infrastructure/scheduler"
)

func TestBatchSchedule_DefaultsToDaily(t *testing.T) {
	s, err := batchSchedule(config.SchedulerConfig{BatchHour: 2, BatchMinute: 30})

	require.NoError(t, err)
	assert.IsType(t, &scheduler.DailySchedule{}, s)
	assert.Equal(t, "@daily 02:30 UTC", s.String())
}

func TestBatchSchedule_CronExpression(t *testing.T) {
	s, err := batchSchedule(config.SchedulerConfig{Cron: "0 2 * * 0"})

	require.NoError(t, err)
	assert.IsType(t, &scheduler.CronSchedule{}, s)
}

func TestBatchSchedule_IntervalWinsOverCron(t *testing.T) {
	s, err := batchSchedule(config.SchedulerConfig{
		Interval: 10 * time.Minute,
		Cron:     "0 2 * * *",
	})

	require.NoError(t, err)
	assert.IsType(t, &scheduler.IntervalSchedule{}, s)
	assert.Equal(t, "@every 10m0s", s.String())
}

func TestBatchSchedule_InvalidCron(t *testing.T) {
	_, err := batchSchedule(config.SchedulerConfig{Cron: "bad"})
	assert.Error(t, err)
}
