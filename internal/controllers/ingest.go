package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/moviezhub/moviezhub/internal/models"
	"github.com/moviezhub/moviezhub/internal/parser"
	"github.com/moviezhub/moviezhub/internal/services/telegram"
)

var (
	// ErrNotFromAdminChannel marks posts from untrusted origins; they are
	// dropped before parsing
	ErrNotFromAdminChannel = errors.New("post not from admin channel")
	// ErrNoFile marks channel posts without a named video/document
	ErrNoFile = errors.New("no file in channel post")
	// ErrParseFailure marks filenames that yield no usable title
	ErrParseFailure = errors.New("could not parse title from filename")
)

// MetadataResolver reconciles a parsed guess against the external catalog
type MetadataResolver interface {
	Resolve(ctx context.Context, title string, kind models.ContentKind, year string) (*models.CanonicalMeta, error)
}

// IngestController turns inbound channel file posts into catalog entries
type IngestController struct {
	db             *models.Database
	resolver       MetadataResolver
	adminChannelID int64
	logger         *logrus.Logger
}

// NewIngestController creates a new ingest controller
func NewIngestController(db *models.Database, resolver MetadataResolver, adminChannelID int64, logger *logrus.Logger) *IngestController {
	return &IngestController{
		db:             db,
		resolver:       resolver,
		adminChannelID: adminChannelID,
		logger:         logger,
	}
}

// HandleChannelPost runs the ingestion pipeline for one file post:
// parse the filename, resolve it against TMDB, and merge the delivery
// pointer into the catalog. Every failure abandons ingestion for this
// file only; nothing is mutated on the failure paths.
func (c *IngestController) HandleChannelPost(ctx context.Context, post *telegram.ChannelPost) error {
	if post.Chat.ID != c.adminChannelID {
		return ErrNotFromAdminChannel
	}

	filename := post.FileName()
	if filename == "" {
		return ErrNoFile
	}

	c.logger.WithField("filename", filename).Info("Ingesting channel file")

	result := parser.Parse(filename)
	if result.Title == "" {
		return fmt.Errorf("%w: %q", ErrParseFailure, filename)
	}

	meta, err := c.resolver.Resolve(ctx, result.Title, result.Kind, result.Year)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", result.Title, err)
	}

	var entry *models.CatalogEntry
	if result.Kind == models.KindSeries {
		entry, err = c.db.MergeEpisode(*meta, result.Season, result.Episode, post.MessageID, result.Languages)
	} else {
		quality := parser.DetectQuality(filename)
		entry, err = c.db.MergeMovieFile(*meta, quality, post.MessageID, result.Languages)
	}
	if err != nil {
		return fmt.Errorf("failed to merge %q into catalog: %w", meta.Title, err)
	}

	c.logger.WithFields(logrus.Fields{
		"entry_id": entry.ID,
		"tmdb_id":  entry.TMDBID,
		"title":    entry.Title,
		"kind":     entry.Kind,
	}).Info("Catalog entry merged")

	return nil
}
