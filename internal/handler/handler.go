// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/poros/internal/model"
	"github.com/Shivanand-hulikatti/poros/internal/service"
)

// ActorHeader carries the id of the staff member making a change.
const ActorHeader = "X-Actor-ID"

// RegistryHandler holds all HTTP handlers for the assignment registry API.
type RegistryHandler struct {
	svc *service.Registry
	log *zap.Logger
}

// NewRegistryHandler constructs a RegistryHandler.
func NewRegistryHandler(svc *service.Registry, log *zap.Logger) *RegistryHandler {
	return &RegistryHandler{svc: svc, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrCapacityExceeded), errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err to the client. Unexpected errors are logged and hidden.
func (h *RegistryHandler) fail(w http.ResponseWriter, r *http.Request, err error, what string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error(what, zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, status, what)
		return
	}
	writeError(w, status, err.Error())
}

func assigneeFromPath(r *http.Request) (model.AssigneeRef, error) {
	kind, err := model.ParseAssigneeKind(chi.URLParam(r, "assigneeKind"))
	if err != nil {
		return model.AssigneeRef{}, err
	}
	return model.AssigneeRef{Kind: kind, ID: chi.URLParam(r, "assigneeID")}, nil
}

func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ActorHeader))
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *RegistryHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Returns a JSON array of all events.
func (h *RegistryHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{eventID}
func (h *RegistryHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.fail(w, r, err, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// ─── Buildings ────────────────────────────────────────────────────────────────

// CreateBuilding handles POST /events/{eventID}/buildings
func (h *RegistryHandler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBuildingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	b, err := h.svc.CreateBuilding(r.Context(), chi.URLParam(r, "eventID"), req)
	if err != nil {
		h.fail(w, r, err, "failed to create building")
		return
	}

	writeJSON(w, http.StatusCreated, b)
}

// ListBuildings handles GET /events/{eventID}/buildings
func (h *RegistryHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	buildings, err := h.svc.ListBuildings(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.fail(w, r, err, "failed to list buildings")
		return
	}
	if buildings == nil {
		buildings = []model.Building{}
	}

	writeJSON(w, http.StatusOK, buildings)
}

// GetBuilding handles GET /buildings/{buildingID}
func (h *RegistryHandler) GetBuilding(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetBuilding(r.Context(), chi.URLParam(r, "buildingID"))
	if err != nil {
		h.fail(w, r, err, "failed to get building")
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// DeleteBuilding handles DELETE /buildings/{buildingID}
// Removes the building's room assignments, then its rooms, then the building.
func (h *RegistryHandler) DeleteBuilding(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteBuilding(r.Context(), chi.URLParam(r, "buildingID"))
	if err != nil {
		h.fail(w, r, err, "failed to delete building")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ─── Pools ────────────────────────────────────────────────────────────────────

// CreatePool handles POST /events/{eventID}/pools
func (h *RegistryHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePoolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.svc.CreatePool(r.Context(), chi.URLParam(r, "eventID"), req)
	if err != nil {
		h.fail(w, r, err, "failed to create pool")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// ListPools handles GET /events/{eventID}/pools?kind=
func (h *RegistryHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	kind := model.PoolKind(r.URL.Query().Get("kind"))

	pools, err := h.svc.ListPools(r.Context(), chi.URLParam(r, "eventID"), kind)
	if err != nil {
		h.fail(w, r, err, "failed to list pools")
		return
	}
	if pools == nil {
		pools = []model.Pool{}
	}

	writeJSON(w, http.StatusOK, pools)
}

// GetPool handles GET /pools/{poolID}
func (h *RegistryHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPool(r.Context(), chi.URLParam(r, "poolID"))
	if err != nil {
		h.fail(w, r, err, "failed to get pool")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// UpdatePool handles PATCH /pools/{poolID}
func (h *RegistryHandler) UpdatePool(w http.ResponseWriter, r *http.Request) {
	var req model.UpdatePoolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.svc.UpdatePool(r.Context(), chi.URLParam(r, "poolID"), req)
	if err != nil {
		h.fail(w, r, err, "failed to update pool")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// DeletePool handles DELETE /pools/{poolID}
func (h *RegistryHandler) DeletePool(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeletePool(r.Context(), chi.URLParam(r, "poolID"))
	if err != nil {
		h.fail(w, r, err, "failed to delete pool")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ─── Assignments ──────────────────────────────────────────────────────────────

// Assign handles POST /pools/{poolID}/assignments
// Responds 201 when a new assignment was created and 200 for moves and
// repeats.
func (h *RegistryHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req model.AssignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.PoolID = chi.URLParam(r, "poolID")
	req.AssignedBy = actorID(r)

	res, err := h.svc.Assign(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "failed to assign")
		return
	}

	status := http.StatusOK
	if res.Outcome == model.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// ListAssignments handles GET /pools/{poolID}/assignments
func (h *RegistryHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAssignments(r.Context(), chi.URLParam(r, "poolID"))
	if err != nil {
		h.fail(w, r, err, "failed to list assignments")
		return
	}
	if list == nil {
		list = []model.Assignment{}
	}

	writeJSON(w, http.StatusOK, list)
}

// UnassignByID handles DELETE /assignments/{assignmentID}
func (h *RegistryHandler) UnassignByID(w http.ResponseWriter, r *http.Request) {
	h.unassign(w, r, model.UnassignRequest{AssignmentID: chi.URLParam(r, "assignmentID")})
}

// UnassignFromPool handles DELETE /pools/{poolID}/assignments/{assigneeKind}/{assigneeID}
func (h *RegistryHandler) UnassignFromPool(w http.ResponseWriter, r *http.Request) {
	ref, err := assigneeFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.unassign(w, r, model.UnassignRequest{PoolID: chi.URLParam(r, "poolID"), Assignee: &ref})
}

// UnassignByKind handles DELETE /events/{eventID}/assignments/{poolKind}/{assigneeKind}/{assigneeID}
func (h *RegistryHandler) UnassignByKind(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParsePoolKind(chi.URLParam(r, "poolKind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref, err := assigneeFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.unassign(w, r, model.UnassignRequest{
		EventID:  chi.URLParam(r, "eventID"),
		PoolKind: kind,
		Assignee: &ref,
	})
}

func (h *RegistryHandler) unassign(w http.ResponseWriter, r *http.Request, req model.UnassignRequest) {
	res, err := h.svc.Unassign(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "failed to unassign")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ReleaseAssignee handles DELETE /events/{eventID}/assignees/{assigneeKind}/{assigneeID}/assignments
func (h *RegistryHandler) ReleaseAssignee(w http.ResponseWriter, r *http.Request) {
	ref, err := assigneeFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.ReleaseAssignee(r.Context(), chi.URLParam(r, "eventID"), ref)
	if err != nil {
		h.fail(w, r, err, "failed to release assignee")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ─── Maintenance ──────────────────────────────────────────────────────────────

// Reset handles POST /events/{eventID}/reset
// A failed step answers with the error and the counts of the steps that ran.
func (h *RegistryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req model.ResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.ResetCategory(r.Context(), chi.URLParam(r, "eventID"), req.Category)
	if err != nil {
		if res == nil {
			h.fail(w, r, err, "failed to reset")
			return
		}
		h.log.Error("reset incomplete", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, statusFor(err), struct {
			Error  string             `json:"error"`
			Result *model.ResetResult `json:"result"`
		}{err.Error(), res})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// RecountPool handles POST /pools/{poolID}/recount
func (h *RegistryHandler) RecountPool(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RecountPool(r.Context(), chi.URLParam(r, "poolID"))
	if err != nil {
		h.fail(w, r, err, "failed to recount pool")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// RecountEvent handles POST /events/{eventID}/recount
func (h *RegistryHandler) RecountEvent(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RecountEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.fail(w, r, err, "failed to recount event")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HealDrift handles POST /maintenance/drift/heal
func (h *RegistryHandler) HealDrift(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.HealDrift(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to heal drift")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
