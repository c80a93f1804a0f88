package controllers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviezhub/moviezhub/internal/models"
	"github.com/moviezhub/moviezhub/internal/services/telegram"
	"github.com/moviezhub/moviezhub/internal/services/tmdb"
)

const testAdminChannel int64 = -1001234

type stubResolver struct {
	meta *models.CanonicalMeta
	err  error

	calls     int
	lastTitle string
	lastKind  models.ContentKind
	lastYear  string
}

func (s *stubResolver) Resolve(ctx context.Context, title string, kind models.ContentKind, year string) (*models.CanonicalMeta, error) {
	s.calls++
	s.lastTitle = title
	s.lastKind = kind
	s.lastYear = year
	if s.err != nil {
		return nil, s.err
	}
	return s.meta, nil
}

func newIngestFixture(t *testing.T, resolver *stubResolver) (*IngestController, *models.Database) {
	t.Helper()

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	return NewIngestController(db, resolver, testAdminChannel, logger), db
}

func channelPost(chatID int64, messageID int64, filename string) *telegram.ChannelPost {
	return &telegram.ChannelPost{
		MessageID: messageID,
		Chat:      telegram.Chat{ID: chatID},
		Video:     &telegram.Attachment{FileName: filename},
	}
}

func TestHandleChannelPostIngestsMovie(t *testing.T) {
	resolver := &stubResolver{meta: &models.CanonicalMeta{TMDBID: 27205, Title: "Inception"}}
	ctrl, db := newIngestFixture(t, resolver)

	err := ctrl.HandleChannelPost(context.Background(),
		channelPost(testAdminChannel, 555, "Inception.2010.1080p.BluRay.Hindi.mkv"))
	require.NoError(t, err)

	assert.Equal(t, "Inception", resolver.lastTitle)
	assert.Equal(t, models.KindMovie, resolver.lastKind)
	assert.Equal(t, "2010", resolver.lastYear)

	entry, err := db.GetEntryByTMDBID(27205)
	require.NoError(t, err)
	assert.Equal(t, []models.FileVersion{{Quality: "1080p", MessageID: 555}}, entry.Files)
	assert.Equal(t, []string{"Hindi"}, entry.Languages)
}

func TestHandleChannelPostIngestsEpisode(t *testing.T) {
	resolver := &stubResolver{meta: &models.CanonicalMeta{TMDBID: 1396, Title: "Show Name"}}
	ctrl, db := newIngestFixture(t, resolver)

	err := ctrl.HandleChannelPost(context.Background(),
		channelPost(testAdminChannel, 777, "Show.Name.S02E05.720p.WEB-DL.mkv"))
	require.NoError(t, err)

	assert.Equal(t, models.KindSeries, resolver.lastKind)
	assert.Empty(t, resolver.lastYear)

	entry, err := db.GetEntryByTMDBID(1396)
	require.NoError(t, err)
	assert.Equal(t, []models.Episode{{Season: 2, Episode: 5, MessageID: 777}}, entry.Episodes)
}

func TestHandleChannelPostReingestReplacesEpisodePointer(t *testing.T) {
	resolver := &stubResolver{meta: &models.CanonicalMeta{TMDBID: 1396, Title: "Show Name"}}
	ctrl, db := newIngestFixture(t, resolver)

	require.NoError(t, ctrl.HandleChannelPost(context.Background(),
		channelPost(testAdminChannel, 101, "Show.Name.S01E01.720p.mkv")))
	require.NoError(t, ctrl.HandleChannelPost(context.Background(),
		channelPost(testAdminChannel, 202, "Show.Name.S01E01.720p.mkv")))

	entry, err := db.GetEntryByTMDBID(1396)
	require.NoError(t, err)
	require.Len(t, entry.Episodes, 1, "re-ingesting the same episode must not duplicate it")
	assert.Equal(t, int64(202), entry.Episodes[0].MessageID)
}

func TestHandleChannelPostRejectsForeignChannel(t *testing.T) {
	resolver := &stubResolver{meta: &models.CanonicalMeta{TMDBID: 1}}
	ctrl, db := newIngestFixture(t, resolver)

	err := ctrl.HandleChannelPost(context.Background(),
		channelPost(-999, 1, "Inception.2010.mkv"))
	assert.ErrorIs(t, err, ErrNotFromAdminChannel)
	assert.Zero(t, resolver.calls)

	entries, err := db.GetAllEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleChannelPostSkipsPostsWithoutFile(t *testing.T) {
	resolver := &stubResolver{}
	ctrl, _ := newIngestFixture(t, resolver)

	err := ctrl.HandleChannelPost(context.Background(), &telegram.ChannelPost{
		MessageID: 1,
		Chat:      telegram.Chat{ID: testAdminChannel},
	})
	assert.ErrorIs(t, err, ErrNoFile)
	assert.Zero(t, resolver.calls)
}

func TestHandleChannelPostAbandonsUnparsableFilename(t *testing.T) {
	resolver := &stubResolver{}
	ctrl, db := newIngestFixture(t, resolver)

	err := ctrl.HandleChannelPost(context.Background(),
		channelPost(testAdminChannel, 1, "1080p.BluRay.x264"))
	assert.ErrorIs(t, err, ErrParseFailure)
	assert.Zero(t, resolver.calls)

	entries, err := db.GetAllEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleChannelPostAbandonsOnResolverMiss(t *testing.T) {
	resolver := &stubResolver{err: tmdb.ErrNotFound}
	ctrl, db := newIngestFixture(t, resolver)

	err := ctrl.HandleChannelPost(context.Background(),
		channelPost(testAdminChannel, 1, "Totally.Unknown.Film.2020.mkv"))
	assert.ErrorIs(t, err, tmdb.ErrNotFound)

	entries, err := db.GetAllEntries()
	require.NoError(t, err)
	assert.Empty(t, entries, "a resolver miss must not mutate the catalog")
}

func TestHandleChannelPostSurfacesKindMismatch(t *testing.T) {
	resolver := &stubResolver{meta: &models.CanonicalMeta{TMDBID: 42, Title: "Ambiguous"}}
	ctrl, _ := newIngestFixture(t, resolver)

	require.NoError(t, ctrl.HandleChannelPost(context.Background(),
		channelPost(testAdminChannel, 1, "Ambiguous.2020.720p.mkv")))

	err := ctrl.HandleChannelPost(context.Background(),
		channelPost(testAdminChannel, 2, "Ambiguous.S01E01.720p.mkv"))
	assert.ErrorIs(t, err, models.ErrKindMismatch)
}
