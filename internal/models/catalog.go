package models

import "time"

// CatalogEntry is the canonical unit of content. One document per TMDB id;
// repeated ingestions for the same id mutate the entry in place.
type CatalogEntry struct {
	ID     uint64 `boltholdKey:"ID"`
	TMDBID int64  `boltholdUnique:"TMDBID"` // Dedup key for ingestion

	Kind ContentKind `boltholdIndex:"Kind"` // Immutable after creation

	// Descriptive fields from TMDB
	Title       string
	Overview    string
	PosterURL   string // Empty when the provider supplies no artwork
	ReleaseDate string
	Genres      []string
	Rating      float64

	// Detected language names, sorted and unique
	Languages []string

	// Delivery pointers. Files for movies (one per quality label),
	// Episodes for series (one per season/episode pair).
	Files    []FileVersion
	Episodes []Episode

	// Set by the admin surface only; the ingestion pipeline never writes these
	IsTrending   bool
	IsComingSoon bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FileVersion points at a stored movie file of a given quality
type FileVersion struct {
	Quality   string // Normalized to lower case ("720p", "1080p", "hd")
	MessageID int64  // Message in the admin channel holding the file
}

// Episode points at a stored episode file
type Episode struct {
	Season    int
	Episode   int
	MessageID int64
}

// FindFile returns the file version for a quality label, or nil
func (e *CatalogEntry) FindFile(quality string) *FileVersion {
	for i := range e.Files {
		if e.Files[i].Quality == quality {
			return &e.Files[i]
		}
	}
	return nil
}

// FindEpisode returns the episode record for a (season, episode) pair, or nil
func (e *CatalogEntry) FindEpisode(season, episode int) *Episode {
	for i := range e.Episodes {
		if e.Episodes[i].Season == season && e.Episodes[i].Episode == episode {
			return &e.Episodes[i]
		}
	}
	return nil
}

// ExpiryJob is a pending auto-delete of a delivered copy. Persisted so
// pending deletions survive a restart. Key is "<chat>:<message>".
type ExpiryJob struct {
	Key       string `boltholdKey:"Key"`
	ChatID    int64
	MessageID int64
	DueAt     time.Time
}
