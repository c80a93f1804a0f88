package models

// ContentKind represents the kind of catalog entry (movie or series)
type ContentKind string

const (
	KindMovie  ContentKind = "movie"
	KindSeries ContentKind = "series"
)

// DefaultQuality is used when no resolution token is present in a filename
const DefaultQuality = "HD"
