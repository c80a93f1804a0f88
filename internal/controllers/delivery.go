package controllers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moviezhub/moviezhub/internal/models"
)

var (
	// ErrContentNotFound marks requests for a catalog id that does not exist
	ErrContentNotFound = errors.New("content not found")
	// ErrSelectorNotFound marks requests for a quality or episode the entry
	// does not have
	ErrSelectorNotFound = errors.New("requested file or episode not found")
	// ErrDeliveryFailed marks a failed copy to the requester
	ErrDeliveryFailed = errors.New("failed to deliver file")
)

const (
	welcomeText         = "Welcome to Moviez Hub! Browse our website and tap a download button there to receive files in this chat."
	contentNotFoundText = "Content not found."
	selectorMissingText = "Requested file or episode not found."
	deliveryFailedText  = "Error sending file. It might have been deleted from the channel."
)

// Transport is the messaging side-effect surface the dispatcher needs
type Transport interface {
	CopyMessage(ctx context.Context, fromChatID int64, messageID int64, toChatID int64) (int64, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// ExpiryRegistrar schedules the eventual deletion of a delivered copy
type ExpiryRegistrar interface {
	Schedule(chatID int64, messageID int64, dueAt time.Time) error
}

// DeliveryController resolves /start deep-link requests to stored files,
// copies them to the requester, and registers their expiry
type DeliveryController struct {
	db             *models.Database
	transport      Transport
	expiry         ExpiryRegistrar
	adminChannelID int64
	deleteDelay    time.Duration
	logger         *logrus.Logger
}

// NewDeliveryController creates a new delivery controller
func NewDeliveryController(db *models.Database, transport Transport, expiry ExpiryRegistrar, adminChannelID int64, deleteDelay time.Duration, logger *logrus.Logger) *DeliveryController {
	return &DeliveryController{
		db:             db,
		transport:      transport,
		expiry:         expiry,
		adminChannelID: adminChannelID,
		deleteDelay:    deleteDelay,
		logger:         logger,
	}
}

// HandleStart processes a /start payload of the form "id", "id_quality"
// (movie) or "id_season_episode" (series). Failures are reported to the
// requester as chat messages and returned for the caller's log; none of
// them mutate the catalog or the job registry.
func (c *DeliveryController) HandleStart(ctx context.Context, chatID int64, payload string) error {
	if payload == "" {
		c.reply(ctx, chatID, welcomeText)
		return nil
	}

	parts := strings.Split(payload, "_")
	entryID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		c.reply(ctx, chatID, contentNotFoundText)
		return fmt.Errorf("%w: bad id %q", ErrContentNotFound, parts[0])
	}

	entry, err := c.db.GetEntryByID(entryID)
	if err != nil {
		c.reply(ctx, chatID, contentNotFoundText)
		return fmt.Errorf("%w: id %d", ErrContentNotFound, entryID)
	}

	messageID, err := c.resolveSelector(entry, parts[1:])
	if err != nil {
		c.reply(ctx, chatID, selectorMissingText)
		return err
	}

	newMessageID, err := c.transport.CopyMessage(ctx, c.adminChannelID, messageID, chatID)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"entry_id":   entryID,
			"message_id": messageID,
		}).Error("Copy to requester failed")
		c.reply(ctx, chatID, deliveryFailedText)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	c.logger.WithFields(logrus.Fields{
		"entry_id": entryID,
		"chat_id":  chatID,
		"copy_id":  newMessageID,
	}).Info("Delivered file to requester")

	if err := c.expiry.Schedule(chatID, newMessageID, time.Now().Add(c.deleteDelay)); err != nil {
		// Delivery already succeeded; a lost expiry job only means the copy
		// outlives its grace period
		c.logger.WithError(err).Error("Failed to schedule delivered copy expiry")
	}

	return nil
}

// resolveSelector picks the delivery pointer matching the request's
// selector tokens, honoring the entry's kind
func (c *DeliveryController) resolveSelector(entry *models.CatalogEntry, selector []string) (int64, error) {
	switch entry.Kind {
	case models.KindSeries:
		if len(selector) != 2 {
			return 0, fmt.Errorf("%w: series entry %d needs season and episode", ErrSelectorNotFound, entry.ID)
		}
		season, err1 := strconv.Atoi(selector[0])
		episode, err2 := strconv.Atoi(selector[1])
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("%w: bad episode selector %v", ErrSelectorNotFound, selector)
		}
		if ep := entry.FindEpisode(season, episode); ep != nil {
			return ep.MessageID, nil
		}
		return 0, fmt.Errorf("%w: S%02dE%02d of entry %d", ErrSelectorNotFound, season, episode, entry.ID)

	case models.KindMovie:
		if len(selector) != 1 {
			return 0, fmt.Errorf("%w: movie entry %d needs a quality label", ErrSelectorNotFound, entry.ID)
		}
		quality := models.NormalizeQuality(selector[0])
		if f := entry.FindFile(quality); f != nil {
			return f.MessageID, nil
		}
		return 0, fmt.Errorf("%w: quality %q of entry %d", ErrSelectorNotFound, quality, entry.ID)
	}

	return 0, fmt.Errorf("%w: entry %d has unknown kind %q", ErrSelectorNotFound, entry.ID, entry.Kind)
}

// reply sends a user-facing message, logging (not propagating) failures
func (c *DeliveryController) reply(ctx context.Context, chatID int64, text string) {
	if err := c.transport.SendMessage(ctx, chatID, text); err != nil {
		c.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to send reply")
	}
}
