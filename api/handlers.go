/*
handlers.go - HTTP handlers for the ledger operations

PURPOSE:
  Decodes requests, calls the ledger service, encodes responses. Error
  mapping is uniform: client errors 400, missing records 404, vacation
  conflicts 409 with the advisory message, optimistic-lock conflicts
  409 retryable, anything else 500.
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/points-ledger/ledger"
)

// Handler carries the ledger service for all routes.
type Handler struct {
	svc *ledger.Service
}

// NewHandler creates a Handler over the given service.
func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
	Advisory  bool   `json:"advisory,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, err error) {
	var vc *ledger.VacationConflictError
	switch {
	case errors.As(err, &vc):
		respondJSON(w, http.StatusConflict, errorResponse{Error: vc.Error(), Advisory: true})
	case ledger.IsRetryable(err):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Retryable: true})
	case ledger.IsNotFound(err):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case ledger.IsClientError(err):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// =============================================================================
// ROSTER
// =============================================================================

func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.Participants(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"participants": names})
}

func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if err := h.svc.AddParticipant(r.Context(), req.Name); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"name": req.Name})
}

func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveParticipant(r.Context(), chi.URLParam(r, "name")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ACTIVITIES & GOALS
// =============================================================================

func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User     string  `json:"user"`
		Kind     string  `json:"kind"`
		Points   float64 `json:"points"`
		Actor    string  `json:"actor"`
		Note     string  `json:"note"`
		Override bool    `json:"override"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	var opts []ledger.RecordOption
	if req.Override {
		opts = append(opts, ledger.WithVacationOverride())
	}
	result, err := h.svc.RecordActivity(r.Context(), chi.URLParam(r, "week"),
		req.User, ledger.ActivityKind(req.Kind), req.Points, req.Actor, req.Note, opts...)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User  string `json:"user"`
		Actor string `json:"actor"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	err := h.svc.DeleteActivity(r.Context(), chi.URLParam(r, "week"),
		req.User, chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetWeekGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Points float64 `json:"points"`
		Actor  string  `json:"actor"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	result, err := h.svc.SetWeekGoal(r.Context(), chi.URLParam(r, "week"),
		chi.URLParam(r, "name"), req.Points, req.Actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) ApplyPending(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ApplyPending(r.Context(), chi.URLParam(r, "week"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// =============================================================================
// STATS, AUDIT, WEEKS
// =============================================================================

func (h *Handler) WeekStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.ComputeWeekStats(r.Context(), chi.URLParam(r, "week"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) WeekAudit(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.WeekAudit(r.Context(), chi.URLParam(r, "week"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"audit": records})
}

func (h *Handler) WeekAuditCSV(w http.ResponseWriter, r *http.Request) {
	week := chi.URLParam(r, "week")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-`+week+`.csv"`)
	if err := h.svc.ExportAuditCSV(r.Context(), week, w); err != nil {
		respondError(w, err)
	}
}

func (h *Handler) ListRecentWeeks(w http.ResponseWriter, r *http.Request) {
	limit := 12
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	weeks, err := h.svc.ListRecentWeeks(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"weeks": weeks, "current": h.svc.CurrentWeek()})
}

func (h *Handler) ResetWeek(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.ResetWeek(r.Context(), chi.URLParam(r, "week"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// =============================================================================
// VACATIONS & RECOMMENDATIONS
// =============================================================================

func (h *Handler) SetVacationPeriod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User   string `json:"user"`
		Start  string `json:"start_date"`
		End    string `json:"end_date"`
		Reason string `json:"reason"`
		Actor  string `json:"actor"`
	}
	if err := decode(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	start, err := ledger.ParseDate(req.Start)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	end, err := ledger.ParseDate(req.End)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	result, err := h.svc.SetVacationPeriod(r.Context(), req.User, start, end, req.Reason, req.Actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) ListVacations(w http.ResponseWriter, r *http.Request) {
	periods, err := h.svc.UserVacationPeriods(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"periods": periods})
}

func (h *Handler) RecommendGoal(w http.ResponseWriter, r *http.Request) {
	lookback := 0
	if v := r.URL.Query().Get("weeks"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			lookback = n
		}
	}
	rec, err := h.svc.RecommendGoal(r.Context(), chi.URLParam(r, "name"), lookback)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}
