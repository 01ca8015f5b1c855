package clinic

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fisioagenda/scheduling-platform/pkg/logging"
)

// Handler provides HTTP endpoints for scheduling settings management.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a scheduling settings HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes returns a chi router with the settings admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	return r
}

// GetSettings returns the clinic's scheduling settings.
// GET /admin/scheduling/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get scheduling settings", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(settings); err != nil {
		h.logger.Error("failed to encode scheduling settings", "error", err)
	}
}

// UpdateSettings replaces the clinic's scheduling settings.
// PUT /admin/scheduling/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := settings.Validate(); err != nil {
		h.logger.Warn("rejected scheduling settings", "error", err)
		http.Error(w, `{"error": "invalid scheduling settings"}`, http.StatusUnprocessableEntity)
		return
	}
	if err := h.store.Set(r.Context(), &settings); err != nil {
		h.logger.Error("failed to save scheduling settings", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("scheduling settings updated",
		"timezone", settings.Timezone,
		"slots", len(settings.SlotLabels),
		"weekdays", len(settings.BookableWeekdays),
	)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&settings); err != nil {
		h.logger.Error("failed to encode scheduling settings", "error", err)
	}
}
