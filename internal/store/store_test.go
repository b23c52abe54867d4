package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func attemptAt(email, device string, succeeded bool, started time.Time) *Attempt {
	outcome := "logged-in"
	if !succeeded {
		outcome = "failed"
	}
	return &Attempt{
		Email:      email,
		Device:     device,
		Outcome:    outcome,
		Succeeded:  succeeded,
		Challenge:  "none",
		StartedAt:  started,
		FinishedAt: started.Add(40 * time.Second),
	}
}

func TestRecordAttempt_AssignsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)

	a := attemptAt("a@x.com", "desktop", true, start)
	a.Recovered = "failed to enter password: element not interactable"
	a.Secondary = "skipped"
	a.Cycles = 3
	require.NoError(t, s.RecordAttempt(ctx, a))
	assert.NotEqual(t, uuid.Nil, a.ID)

	got, err := s.RecentAttempts(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, a.Recovered, got[0].Recovered)
	assert.Equal(t, "skipped", got[0].Secondary)
	assert.Equal(t, 3, got[0].Cycles)
	assert.True(t, start.Equal(got[0].StartedAt))
	assert.Equal(t, 40*time.Second, got[0].Duration())
}

func TestRecentAttempts_NewestFirstAndFiltered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordAttempt(ctx, attemptAt("a@x.com", "desktop", true, base)))
	require.NoError(t, s.RecordAttempt(ctx, attemptAt("b@x.com", "desktop", false, base.Add(time.Minute))))
	require.NoError(t, s.RecordAttempt(ctx, attemptAt("a@x.com", "mobile", true, base.Add(2*time.Minute))))

	all, err := s.RecentAttempts(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "mobile", all[0].Device)
	assert.Equal(t, "b@x.com", all[1].Email)

	onlyA, err := s.RecentAttempts(ctx, "A@X.com", 10)
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	limited, err := s.RecentAttempts(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLastSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)

	_, found, err := s.LastSuccess(ctx, "a@x.com", "desktop")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.RecordAttempt(ctx, attemptAt("a@x.com", "desktop", true, base)))
	failed := attemptAt("a@x.com", "desktop", false, base.Add(time.Hour))
	failed.Error = "login: account has been locked"
	require.NoError(t, s.RecordAttempt(ctx, failed))

	last, found, err := s.LastSuccess(ctx, "a@x.com", "desktop")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, base.Equal(last.StartedAt))

	_, found, err = s.LastSuccess(ctx, "a@x.com", "mobile")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNew_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordAttempt(context.Background(), attemptAt("a@x.com", "desktop", true, time.Now())))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.RecentAttempts(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
