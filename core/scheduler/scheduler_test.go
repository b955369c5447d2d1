package scheduler

import (
	"context"
	"errors"
	"testing"

	"backoffice/core/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTaskValidation(t *testing.T) {
	s := NewCronScheduler(logger.Nop())
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.RegisterTask(&CronTask{CronExpr: "* * * * *", Handler: noop}))
	assert.Error(t, s.RegisterTask(&CronTask{Name: "sync", CronExpr: "* * * * *"}))
	assert.Error(t, s.RegisterTask(&CronTask{Name: "sync", CronExpr: "not a cron", Handler: noop, Enabled: true}))

	require.NoError(t, s.RegisterTask(&CronTask{Name: "sync", CronExpr: "*/15 * * * *", Handler: noop, Enabled: true}))
	assert.Error(t, s.RegisterTask(&CronTask{Name: "sync", CronExpr: "*/15 * * * *", Handler: noop, Enabled: true}))
}

func TestRunNowRecordsStatus(t *testing.T) {
	s := NewCronScheduler(logger.Nop())
	runs := 0
	require.NoError(t, s.RegisterTask(&CronTask{
		Name:     "dataset_sync",
		CronExpr: "0 * * * *",
		Handler: func(ctx context.Context) error {
			runs++
			if runs == 2 {
				return errors.New("upstream down")
			}
			return ctx.Err()
		},
		Enabled: true,
	}))

	require.NoError(t, s.RunNow("dataset_sync"))
	assert.EqualError(t, s.RunNow("dataset_sync"), "upstream down")
	assert.Error(t, s.RunNow("missing"))

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "upstream down", status[0].LastError)
	assert.False(t, status[0].LastRun.IsZero())
}

func TestDisabledTaskIsNotScheduled(t *testing.T) {
	s := NewCronScheduler(logger.Nop())
	require.NoError(t, s.RegisterTask(&CronTask{
		Name:     "off",
		CronExpr: "garbage is fine when disabled",
		Handler:  func(context.Context) error { return nil },
	}))
	status := s.Status()
	require.Len(t, status, 1)
	assert.True(t, status[0].NextRun.IsZero())
}

func TestStartStop(t *testing.T) {
	s := NewCronScheduler(logger.Nop())
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
