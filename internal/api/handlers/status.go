package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/moviezhub/moviezhub/internal/models"
)

// StatusHandler reports catalog and delivery counters
type StatusHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalEntries  int `json:"total_entries"`
	Movies        int `json:"movies"`
	Series        int `json:"series"`
	MovieFiles    int `json:"movie_files"`
	Episodes      int `json:"episodes"`
	PendingExpiry int `json:"pending_expiry"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := h.db.GetAllEntries()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get catalog entries")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	jobs, err := h.db.GetAllExpiryJobs()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get expiry jobs")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		TotalEntries:  len(entries),
		PendingExpiry: len(jobs),
	}

	for _, entry := range entries {
		switch entry.Kind {
		case models.KindMovie:
			response.Movies++
		case models.KindSeries:
			response.Series++
		}
		response.MovieFiles += len(entry.Files)
		response.Episodes += len(entry.Episodes)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
