package controllers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviezhub/moviezhub/internal/models"
)

type fakeTransport struct {
	copyErr    error
	nextCopyID int64

	copies []int64 // Source message ids copied
	sends  []string
}

func (f *fakeTransport) CopyMessage(ctx context.Context, fromChatID int64, messageID int64, toChatID int64) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.copies = append(f.copies, messageID)
	return f.nextCopyID, nil
}

func (f *fakeTransport) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.sends = append(f.sends, text)
	return nil
}

type fakeRegistrar struct {
	scheduled []string
}

func (f *fakeRegistrar) Schedule(chatID int64, messageID int64, dueAt time.Time) error {
	f.scheduled = append(f.scheduled, fmt.Sprintf("%d:%d", chatID, messageID))
	return nil
}

func newDeliveryFixture(t *testing.T, transport *fakeTransport) (*DeliveryController, *fakeRegistrar, *models.Database) {
	t.Helper()

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	registrar := &fakeRegistrar{}
	ctrl := NewDeliveryController(db, transport, registrar, testAdminChannel, 30*time.Minute, logger)
	return ctrl, registrar, db
}

func TestHandleStartDeliversMovieAndSchedulesExpiry(t *testing.T) {
	transport := &fakeTransport{nextCopyID: 9000}
	ctrl, registrar, db := newDeliveryFixture(t, transport)

	entry, err := db.MergeMovieFile(models.CanonicalMeta{TMDBID: 1, Title: "Inception"}, "720p", 555, nil)
	require.NoError(t, err)

	err = ctrl.HandleStart(context.Background(), 42, fmt.Sprintf("%d_720p", entry.ID))
	require.NoError(t, err)

	assert.Equal(t, []int64{555}, transport.copies)
	assert.Equal(t, []string{"42:9000"}, registrar.scheduled)
}

func TestHandleStartDeliversEpisode(t *testing.T) {
	transport := &fakeTransport{nextCopyID: 9001}
	ctrl, registrar, db := newDeliveryFixture(t, transport)

	entry, err := db.MergeEpisode(models.CanonicalMeta{TMDBID: 2, Title: "Show"}, 2, 5, 777, nil)
	require.NoError(t, err)

	err = ctrl.HandleStart(context.Background(), 42, fmt.Sprintf("%d_2_5", entry.ID))
	require.NoError(t, err)

	assert.Equal(t, []int64{777}, transport.copies)
	assert.Equal(t, []string{"42:9001"}, registrar.scheduled)
}

func TestHandleStartQualityMatchIsCaseInsensitive(t *testing.T) {
	transport := &fakeTransport{nextCopyID: 9002}
	ctrl, _, db := newDeliveryFixture(t, transport)

	entry, err := db.MergeMovieFile(models.CanonicalMeta{TMDBID: 3, Title: "Film"}, "720p", 555, nil)
	require.NoError(t, err)

	err = ctrl.HandleStart(context.Background(), 42, fmt.Sprintf("%d_720P", entry.ID))
	require.NoError(t, err)
	assert.Equal(t, []int64{555}, transport.copies)
}

func TestHandleStartContentNotFound(t *testing.T) {
	transport := &fakeTransport{}
	ctrl, registrar, _ := newDeliveryFixture(t, transport)

	err := ctrl.HandleStart(context.Background(), 42, "9999_720p")
	assert.ErrorIs(t, err, ErrContentNotFound)
	assert.Empty(t, transport.copies)
	assert.Empty(t, registrar.scheduled)
	assert.Equal(t, []string{contentNotFoundText}, transport.sends)
}

func TestHandleStartSelectorNotFoundLeavesRegistryUntouched(t *testing.T) {
	transport := &fakeTransport{}
	ctrl, registrar, db := newDeliveryFixture(t, transport)

	entry, err := db.MergeMovieFile(models.CanonicalMeta{TMDBID: 4, Title: "Film"}, "720p", 555, nil)
	require.NoError(t, err)

	err = ctrl.HandleStart(context.Background(), 42, fmt.Sprintf("%d_1080p", entry.ID))
	assert.ErrorIs(t, err, ErrSelectorNotFound)
	assert.Empty(t, transport.copies)
	assert.Empty(t, registrar.scheduled)
	assert.Equal(t, []string{selectorMissingText}, transport.sends)
}

func TestHandleStartSelectorShapeMustMatchKind(t *testing.T) {
	transport := &fakeTransport{}
	ctrl, _, db := newDeliveryFixture(t, transport)

	entry, err := db.MergeEpisode(models.CanonicalMeta{TMDBID: 5, Title: "Show"}, 1, 1, 555, nil)
	require.NoError(t, err)

	// Movie-shaped selector against a series entry
	err = ctrl.HandleStart(context.Background(), 42, fmt.Sprintf("%d_720p", entry.ID))
	assert.ErrorIs(t, err, ErrSelectorNotFound)
}

func TestHandleStartDeliveryFailureSchedulesNothing(t *testing.T) {
	transport := &fakeTransport{copyErr: errors.New("message to copy not found")}
	ctrl, registrar, db := newDeliveryFixture(t, transport)

	entry, err := db.MergeMovieFile(models.CanonicalMeta{TMDBID: 6, Title: "Film"}, "720p", 555, nil)
	require.NoError(t, err)

	err = ctrl.HandleStart(context.Background(), 42, fmt.Sprintf("%d_720p", entry.ID))
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Empty(t, registrar.scheduled, "no expiry job may be registered for a failed copy")
	assert.Equal(t, []string{deliveryFailedText}, transport.sends)
}

func TestHandleStartEmptyPayloadSendsWelcome(t *testing.T) {
	transport := &fakeTransport{}
	ctrl, registrar, _ := newDeliveryFixture(t, transport)

	err := ctrl.HandleStart(context.Background(), 42, "")
	require.NoError(t, err)
	assert.Equal(t, []string{welcomeText}, transport.sends)
	assert.Empty(t, registrar.scheduled)
}
