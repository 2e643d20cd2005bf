package handlers

import (
	"net/http"

	"stagelink/internal/app"
	"stagelink/internal/http/middleware"
	"stagelink/internal/http/response"
	"stagelink/internal/lifecycle"
)

type TimesheetHandler struct {
	timesheets *app.TimesheetService
}

func NewTimesheetHandler(timesheets *app.TimesheetService) *TimesheetHandler {
	return &TimesheetHandler{timesheets: timesheets}
}

func (h *TimesheetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.timesheets.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), payload)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *TimesheetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	rec, err := h.timesheets.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

func (h *TimesheetHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.timesheets.List(r.Context(), middleware.PrincipalFromContext(r.Context()), listQuery(r))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, emptyList(items))
}

func (h *TimesheetHandler) Action(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	action := pathSegment(r.URL.Path, 3)
	var req lifecycleActionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	rec, err := h.timesheets.Apply(r.Context(), middleware.PrincipalFromContext(r.Context()), id, lifecycle.Action(action), req.Payload)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}
