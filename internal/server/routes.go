// Package server exposes the local HTTP API the UI shell talks to. It is
// bound to loopback; the shell owns presentation, this surface owns the
// records and the sync state.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rpacode/edlsync/internal/apperr"
	"github.com/rpacode/edlsync/internal/engine"
	"github.com/rpacode/edlsync/internal/model"
	"github.com/rpacode/edlsync/internal/qr"
	"github.com/rpacode/edlsync/internal/store"
)

// Handler bundles the API dependencies.
type Handler struct {
	store  *store.Store
	engine *engine.Engine
	hub    *Hub
}

// NewHandler creates the API handler.
func NewHandler(s *store.Store, e *engine.Engine, hub *Hub) *Handler {
	return &Handler{store: s, engine: e, hub: hub}
}

// Routes builds the router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Handle("/ws", h.hub)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/edls", h.ListEDLs)
		r.Post("/edls", h.PutEDL)
		r.Get("/edls/{edlNumber}", h.GetEDL)
		r.Patch("/edls/{edlNumber}", h.UpdateEDL)
		r.Delete("/edls/{edlNumber}", h.DeleteEDL)

		r.Get("/inspections", h.ListInspections)
		r.Post("/inspections", h.SubmitInspection)
		r.Get("/inspections/{id}", h.GetInspection)

		r.Post("/sync/trigger", h.TriggerSync)
		r.Get("/sync/status", h.SyncStatus)

		r.Get("/settings", h.ListSettings)
		r.Put("/settings/{key}", h.PutSetting)

		r.Post("/qr/parse", h.ParseQR)
	})

	return r
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "edlsync"})
}

func (h *Handler) ListEDLs(w http.ResponseWriter, r *http.Request) {
	var (
		edls []*model.EDL
		err  error
	)
	switch {
	case r.URL.Query().Get("status") != "":
		edls, err = h.store.ListEDLsByStatus(r.URL.Query().Get("status"))
	case r.URL.Query().Get("location") != "":
		edls, err = h.store.ListEDLsByLocation(r.URL.Query().Get("location"))
	default:
		edls, err = h.store.ListEDLs()
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edls)
}

func (h *Handler) PutEDL(w http.ResponseWriter, r *http.Request) {
	var edl model.EDL
	if err := json.NewDecoder(r.Body).Decode(&edl); err != nil {
		writeError(w, apperr.Wrap(apperr.ErrInvalid, "malformed edl body", err))
		return
	}

	stored, err := h.store.PutEDL(&edl)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) GetEDL(w http.ResponseWriter, r *http.Request) {
	edl, err := h.store.GetEDL(chi.URLParam(r, "edlNumber"))
	if err != nil {
		writeError(w, err)
		return
	}
	if edl == nil {
		writeError(w, apperr.New(apperr.ErrEDLNotFound, "edl not found"))
		return
	}
	writeJSON(w, http.StatusOK, edl)
}

func (h *Handler) UpdateEDL(w http.ResponseWriter, r *http.Request) {
	var patch model.EDLPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, apperr.Wrap(apperr.ErrInvalid, "malformed patch body", err))
		return
	}

	edl, err := h.store.UpdateEDL(chi.URLParam(r, "edlNumber"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, edl)
}

func (h *Handler) DeleteEDL(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteEDL(chi.URLParam(r, "edlNumber")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListInspections(w http.ResponseWriter, r *http.Request) {
	var (
		insps []*model.Inspection
		err   error
	)
	switch {
	case r.URL.Query().Get("edlNumber") != "":
		insps, err = h.store.ListInspectionsByEDL(r.URL.Query().Get("edlNumber"))
	case r.URL.Query().Get("inspectorId") != "":
		insps, err = h.store.ListInspectionsByInspector(r.URL.Query().Get("inspectorId"))
	case r.URL.Query().Get("status") != "":
		insps, err = h.store.ListInspectionsByStatus(r.URL.Query().Get("status"))
	default:
		insps, err = h.store.ListInspections()
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insps)
}

func (h *Handler) SubmitInspection(w http.ResponseWriter, r *http.Request) {
	var insp model.Inspection
	if err := json.NewDecoder(r.Body).Decode(&insp); err != nil {
		writeError(w, apperr.Wrap(apperr.ErrInvalid, "malformed inspection body", err))
		return
	}

	result, err := h.engine.SubmitInspection(r.Context(), &insp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"inspection": result.Inspection,
		"queued":     result.Queued,
	})
}

func (h *Handler) GetInspection(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.ErrInvalid, "malformed inspection id", err))
		return
	}

	insp, err := h.store.GetInspection(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if insp == nil {
		writeError(w, apperr.New(apperr.ErrInspectionNotFound, "inspection not found"))
		return
	}
	writeJSON(w, http.StatusOK, insp)
}

func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.SyncCycle(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.Status()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.AllSettings()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	var value json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		writeError(w, apperr.Wrap(apperr.ErrInvalid, "malformed setting value", err))
		return
	}

	if err := h.store.SetSetting(chi.URLParam(r, "key"), value); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ParseQR(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.Wrap(apperr.ErrInvalid, "malformed qr body", err))
		return
	}

	payload, err := qr.Parse(body.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := apperr.ErrInternal

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		switch {
		case apperr.IsNotFound(err):
			status = http.StatusNotFound
		case code == apperr.ErrInvalid || code == apperr.ErrValidation:
			status = http.StatusBadRequest
		case code == apperr.ErrAuthFailed:
			status = http.StatusUnauthorized
		}
	}

	writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}
