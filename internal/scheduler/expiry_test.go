package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviezhub/moviezhub/internal/models"
)

type recordingDeleter struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDeleter) DeleteMessage(ctx context.Context, chatID int64, messageID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, jobKey(chatID, messageID))
	return nil
}

func (d *recordingDeleter) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func newTestScheduler(t *testing.T) (*ExpiryScheduler, *recordingDeleter, *models.Database) {
	t.Helper()

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	deleter := &recordingDeleter{}
	return NewExpiryScheduler(db, deleter, logger), deleter, db
}

func TestScheduleFiresOnce(t *testing.T) {
	sched, deleter, db := newTestScheduler(t)

	require.NoError(t, sched.Schedule(100, 42, time.Now().Add(30*time.Millisecond)))

	time.Sleep(200 * time.Millisecond)

	calls := deleter.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "100:42", calls[0])

	// The fired job must be retired from the store
	jobs, err := db.GetAllExpiryJobs()
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestScheduleSameKeyReplaces(t *testing.T) {
	sched, deleter, _ := newTestScheduler(t)

	require.NoError(t, sched.Schedule(100, 42, time.Now().Add(40*time.Millisecond)))
	require.NoError(t, sched.Schedule(100, 42, time.Now().Add(120*time.Millisecond)))

	// Past the first due time: the superseded job must not have fired
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, deleter.snapshot())

	time.Sleep(200 * time.Millisecond)
	calls := deleter.snapshot()
	require.Len(t, calls, 1, "a re-scheduled key must fire exactly once")
	assert.Equal(t, "100:42", calls[0])
}

func TestIndependentKeysBothFire(t *testing.T) {
	sched, deleter, _ := newTestScheduler(t)

	require.NoError(t, sched.Schedule(100, 1, time.Now().Add(20*time.Millisecond)))
	require.NoError(t, sched.Schedule(200, 1, time.Now().Add(20*time.Millisecond)))

	time.Sleep(200 * time.Millisecond)
	assert.ElementsMatch(t, []string{"100:1", "200:1"}, deleter.snapshot())
}

func TestStartRecoversPersistedJobs(t *testing.T) {
	sched, deleter, db := newTestScheduler(t)

	// A job persisted by a previous process whose due time has passed
	require.NoError(t, db.SaveExpiryJob(&models.ExpiryJob{
		Key:       jobKey(300, 7),
		ChatID:    300,
		MessageID: 7,
		DueAt:     time.Now().Add(-time.Minute),
	}))

	require.NoError(t, sched.Start())
	defer sched.Stop()

	time.Sleep(200 * time.Millisecond)
	calls := deleter.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "300:7", calls[0])
}

func TestStopDisarmsTimers(t *testing.T) {
	sched, deleter, _ := newTestScheduler(t)

	require.NoError(t, sched.Schedule(100, 42, time.Now().Add(50*time.Millisecond)))
	sched.Stop()

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, deleter.snapshot())
}
