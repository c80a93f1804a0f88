package models

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ErrKindMismatch is returned when an ingestion resolves to an existing
// entry of the other kind (a movie file for a stored series, or vice versa)
var ErrKindMismatch = errors.New("catalog entry kind mismatch")

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// CanonicalMeta is the metadata-provider view of a title, used to seed or
// refresh a catalog entry during a merge
type CanonicalMeta struct {
	TMDBID      int64
	Title       string
	Overview    string
	PosterURL   string
	ReleaseDate string
	Genres      []string
	Rating      float64
}

// Catalog merge operations
//
// Both merges run inside a single bbolt write transaction, so the
// remove-then-add on the pointer list is never observable half-done and
// two concurrent ingestions for the same TMDB id cannot drop an update.

// MergeMovieFile creates or updates the catalog entry for meta.TMDBID with a
// file pointer for the given quality label. An existing pointer under the
// same label is replaced, and languages are unioned into the entry's set.
func (db *Database) MergeMovieFile(meta CanonicalMeta, quality string, messageID int64, languages []string) (*CatalogEntry, error) {
	quality = NormalizeQuality(quality)
	var merged *CatalogEntry

	err := db.store.Bolt().Update(func(tx *bbolt.Tx) error {
		var entry CatalogEntry
		err := db.store.TxFindOne(tx, &entry, bolthold.Where("TMDBID").Eq(meta.TMDBID))
		if errors.Is(err, bolthold.ErrNotFound) {
			entry = newEntry(meta, KindMovie, languages)
			entry.Files = []FileVersion{{Quality: quality, MessageID: messageID}}
			if err := db.store.TxInsert(tx, bolthold.NextSequence(), &entry); err != nil {
				return fmt.Errorf("failed to insert catalog entry: %w", err)
			}
			merged = &entry
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up catalog entry: %w", err)
		}
		if entry.Kind != KindMovie {
			return ErrKindMismatch
		}

		files := make([]FileVersion, 0, len(entry.Files)+1)
		for _, f := range entry.Files {
			if f.Quality != quality {
				files = append(files, f)
			}
		}
		entry.Files = append(files, FileVersion{Quality: quality, MessageID: messageID})
		entry.Languages = unionLanguages(entry.Languages, languages)
		entry.UpdatedAt = time.Now()

		if err := db.store.TxUpdate(tx, entry.ID, &entry); err != nil {
			return fmt.Errorf("failed to update catalog entry: %w", err)
		}
		merged = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// MergeEpisode creates or updates the catalog entry for meta.TMDBID with an
// episode pointer for the (season, episode) pair. An existing pointer for
// the same pair is replaced, and languages are unioned into the entry's set.
func (db *Database) MergeEpisode(meta CanonicalMeta, season, episode int, messageID int64, languages []string) (*CatalogEntry, error) {
	var merged *CatalogEntry

	err := db.store.Bolt().Update(func(tx *bbolt.Tx) error {
		var entry CatalogEntry
		err := db.store.TxFindOne(tx, &entry, bolthold.Where("TMDBID").Eq(meta.TMDBID))
		if errors.Is(err, bolthold.ErrNotFound) {
			entry = newEntry(meta, KindSeries, languages)
			entry.Episodes = []Episode{{Season: season, Episode: episode, MessageID: messageID}}
			if err := db.store.TxInsert(tx, bolthold.NextSequence(), &entry); err != nil {
				return fmt.Errorf("failed to insert catalog entry: %w", err)
			}
			merged = &entry
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up catalog entry: %w", err)
		}
		if entry.Kind != KindSeries {
			return ErrKindMismatch
		}

		episodes := make([]Episode, 0, len(entry.Episodes)+1)
		for _, ep := range entry.Episodes {
			if ep.Season != season || ep.Episode != episode {
				episodes = append(episodes, ep)
			}
		}
		entry.Episodes = append(episodes, Episode{Season: season, Episode: episode, MessageID: messageID})
		entry.Languages = unionLanguages(entry.Languages, languages)
		entry.UpdatedAt = time.Now()

		if err := db.store.TxUpdate(tx, entry.ID, &entry); err != nil {
			return fmt.Errorf("failed to update catalog entry: %w", err)
		}
		merged = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func newEntry(meta CanonicalMeta, kind ContentKind, languages []string) CatalogEntry {
	now := time.Now()
	return CatalogEntry{
		TMDBID:      meta.TMDBID,
		Kind:        kind,
		Title:       meta.Title,
		Overview:    meta.Overview,
		PosterURL:   meta.PosterURL,
		ReleaseDate: meta.ReleaseDate,
		Genres:      meta.Genres,
		Rating:      meta.Rating,
		Languages:   unionLanguages(nil, languages),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// unionLanguages merges two language lists into a sorted set
func unionLanguages(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, l := range existing {
		seen[l] = struct{}{}
	}
	for _, l := range incoming {
		seen[l] = struct{}{}
	}
	union := make([]string, 0, len(seen))
	for l := range seen {
		union = append(union, l)
	}
	sort.Strings(union)
	return union
}

// NormalizeQuality lower-cases and trims a quality label so "720P" and
// "720p" address the same file slot
func NormalizeQuality(quality string) string {
	return strings.ToLower(strings.TrimSpace(quality))
}

// Catalog queries

// GetEntryByID retrieves a catalog entry by its internal id
func (db *Database) GetEntryByID(id uint64) (*CatalogEntry, error) {
	var entry CatalogEntry
	if err := db.store.Get(id, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetEntryByTMDBID retrieves a catalog entry by its TMDB id
func (db *Database) GetEntryByTMDBID(tmdbID int64) (*CatalogEntry, error) {
	var entry CatalogEntry
	if err := db.store.FindOne(&entry, bolthold.Where("TMDBID").Eq(tmdbID)); err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetAllEntries retrieves all catalog entries
func (db *Database) GetAllEntries() ([]*CatalogEntry, error) {
	var entries []*CatalogEntry
	err := db.store.Find(&entries, nil)
	return entries, err
}

// SearchByTitle retrieves entries whose title contains the query, case-insensitive
func (db *Database) SearchByTitle(query string) ([]*CatalogEntry, error) {
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return nil, err
	}
	var entries []*CatalogEntry
	err = db.store.Find(&entries, bolthold.Where("Title").RegExp(re))
	return entries, err
}

// GetTrending retrieves entries flagged as trending, newest first
func (db *Database) GetTrending(limit int) ([]*CatalogEntry, error) {
	var entries []*CatalogEntry
	err := db.store.Find(&entries,
		bolthold.Where("IsTrending").Eq(true).SortBy("ID").Reverse().Limit(limit))
	return entries, err
}

// SetTrending flags or unflags an entry for the trending shelf
func (db *Database) SetTrending(id uint64, trending bool) error {
	entry, err := db.GetEntryByID(id)
	if err != nil {
		return err
	}
	entry.IsTrending = trending
	entry.UpdatedAt = time.Now()
	return db.store.Update(id, entry)
}

// GetRecent retrieves the most recently created entries of a kind
func (db *Database) GetRecent(kind ContentKind, limit int) ([]*CatalogEntry, error) {
	var entries []*CatalogEntry
	err := db.store.Find(&entries,
		bolthold.Where("Kind").Eq(kind).SortBy("ID").Reverse().Limit(limit))
	return entries, err
}

// Expiry job operations

// SaveExpiryJob inserts or replaces a pending expiry job under its key
func (db *Database) SaveExpiryJob(job *ExpiryJob) error {
	return db.store.Upsert(job.Key, job)
}

// DeleteExpiryJob removes a pending expiry job; missing keys are not an error
func (db *Database) DeleteExpiryJob(key string) error {
	err := db.store.Delete(key, &ExpiryJob{})
	if errors.Is(err, bolthold.ErrNotFound) {
		return nil
	}
	return err
}

// GetAllExpiryJobs retrieves all pending expiry jobs
func (db *Database) GetAllExpiryJobs() ([]*ExpiryJob, error) {
	var jobs []*ExpiryJob
	err := db.store.Find(&jobs, nil)
	return jobs, err
}
