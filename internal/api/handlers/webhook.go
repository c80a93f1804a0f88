package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/moviezhub/moviezhub/internal/controllers"
	"github.com/moviezhub/moviezhub/internal/services/telegram"
)

// WebhookHandler handles Telegram webhook updates
type WebhookHandler struct {
	ingestCtrl   *controllers.IngestController
	deliveryCtrl *controllers.DeliveryController
	logger       *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(ingestCtrl *controllers.IngestController, deliveryCtrl *controllers.DeliveryController, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingestCtrl:   ingestCtrl,
		deliveryCtrl: deliveryCtrl,
		logger:       logger,
	}
}

// ServeHTTP handles the webhook endpoint. It always acknowledges decoded
// updates with 200 so Telegram does not redeliver them.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.WithError(err).Error("Failed to decode webhook update")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	switch {
	case update.ChannelPost != nil:
		h.handleChannelPost(r, &update)
	case update.Message != nil:
		h.handleMessage(r, &update)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleChannelPost(r *http.Request, update *telegram.Update) {
	post := update.ChannelPost
	err := h.ingestCtrl.HandleChannelPost(r.Context(), post)
	if err == nil {
		return
	}

	fields := logrus.Fields{
		"update_id":  update.UpdateID,
		"chat_id":    post.Chat.ID,
		"message_id": post.MessageID,
	}

	switch {
	case errors.Is(err, controllers.ErrNotFromAdminChannel),
		errors.Is(err, controllers.ErrNoFile):
		h.logger.WithFields(fields).WithError(err).Debug("Ignoring channel post")
	case errors.Is(err, controllers.ErrParseFailure):
		h.logger.WithFields(fields).WithField("file_name", post.FileName()).Warn("Could not parse file name")
	default:
		h.logger.WithFields(fields).WithError(err).Error("Failed to ingest channel post")
	}
}

func (h *WebhookHandler) handleMessage(r *http.Request, update *telegram.Update) {
	msg := update.Message
	payload, ok := msg.StartPayload()
	if !ok {
		return
	}

	if err := h.deliveryCtrl.HandleStart(r.Context(), msg.Chat.ID, payload); err != nil {
		h.logger.WithFields(logrus.Fields{
			"update_id": update.UpdateID,
			"chat_id":   msg.Chat.ID,
			"payload":   payload,
		}).WithError(err).Warn("Delivery request failed")
	}
}
