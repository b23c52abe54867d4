package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNew_InvalidTimezone(t *testing.T) {
	_, err := New("Nowhere/Special", time.Minute, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestAddLoginJob(t *testing.T) {
	s, err := New("UTC", time.Minute, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.AddLoginJob("0 7 * * *", func(context.Context) error { return nil }))
	s.Start()
	defer func() { <-s.Stop().Done() }()

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, LoginJobName, jobs[0].Name)
	assert.Equal(t, 7, jobs[0].NextRun.In(time.UTC).Hour())
}

func TestAddJob_ReplacesSameName(t *testing.T) {
	s, err := New("UTC", time.Minute, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.AddLoginJob("0 7 * * *", func(context.Context) error { return nil }))
	require.NoError(t, s.AddLoginJob("0 19 * * *", func(context.Context) error { return nil }))

	s.Start()
	defer func() { <-s.Stop().Done() }()

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, 19, jobs[0].NextRun.In(time.UTC).Hour())
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s, err := New("UTC", time.Minute, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = s.AddLoginJob("whenever", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.ListJobs())
}

func TestRemoveJob(t *testing.T) {
	s, err := New("UTC", time.Minute, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.AddLoginJob("0 7 * * *", func(context.Context) error { return nil }))
	s.RemoveJob(LoginJobName)
	assert.Empty(t, s.ListJobs())
}

func TestRunNow_AppliesJobTimeout(t *testing.T) {
	s, err := New("UTC", 10*time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = s.RunNow(context.Background(), LoginJobName, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunNow_ReturnsJobError(t *testing.T) {
	s, err := New("UTC", 0, zaptest.NewLogger(t))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.RunNow(context.Background(), LoginJobName, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return boom
	})
	assert.ErrorIs(t, err, boom)
}
