package credentials

// HTTP handlers for per-user settings.
//
// Routes (x-user-id header required):
//
//	GET /settings → masked settings of the caller
//	PUT /settings → update settings, returns the masked result

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// maxSettingsBody caps a settings request body.
const maxSettingsBody = 16 << 10

// Handler exposes a SettingsRepository over HTTP.
type Handler struct {
	repo   SettingsRepository
	forget func(ctx context.Context, userID string) error
}

// NewHandler returns a Handler. forget, when set, is called after a change
// to the calendar credentials so cached access tokens are dropped.
func NewHandler(repo SettingsRepository, forget func(ctx context.Context, userID string) error) *Handler {
	return &Handler{repo: repo, forget: forget}
}

// RegisterRoutes mounts the settings routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/settings", h.handleSettings)
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.getSettings(w, r, userID)
	case http.MethodPut:
		h.updateSettings(w, r, userID)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request, userID string) {
	s, err := h.repo.GetSettings(r.Context(), userID)
	if err != nil {
		slog.Error("get settings", "userId", userID, "err", err)
		jsonError(w, "failed to fetch settings", http.StatusInternalServerError)
		return
	}
	jsonOK(w, Redact(s))
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request, userID string) {
	var u SettingsUpdate
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(u); err != nil {
		jsonError(w, describe(err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.repo.SaveSettings(ctx, userID, u); err != nil {
		slog.Error("save settings", "userId", userID, "err", err)
		jsonError(w, "failed to update settings", http.StatusInternalServerError)
		return
	}
	if u.touchesCalendar() && h.forget != nil {
		if err := h.forget(ctx, userID); err != nil {
			slog.Warn("drop cached calendar token", "userId", userID, "err", err)
		}
	}
	slog.Info("settings updated", "userId", userID)
	h.getSettings(w, r, userID)
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid settings"
	}
	switch ve[0].Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", ve[0].Field(), ve[0].Param())
	case "printascii":
		return fmt.Sprintf("%s contains invalid characters", ve[0].Field())
	}
	return fmt.Sprintf("%s is invalid", ve[0].Field())
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
