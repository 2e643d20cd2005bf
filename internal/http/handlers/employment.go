package handlers

import (
	"net/http"

	"stagelink/internal/app"
	"stagelink/internal/http/middleware"
	"stagelink/internal/http/response"
	"stagelink/internal/lifecycle"
)

type EmploymentHandler struct {
	employments *app.EmploymentService
}

func NewEmploymentHandler(employments *app.EmploymentService) *EmploymentHandler {
	return &EmploymentHandler{employments: employments}
}

func (h *EmploymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.employments.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), payload)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *EmploymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	rec, err := h.employments.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

func (h *EmploymentHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.employments.List(r.Context(), middleware.PrincipalFromContext(r.Context()), listQuery(r))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, emptyList(items))
}

func (h *EmploymentHandler) Action(w http.ResponseWriter, r *http.Request) {
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
	rec, err := h.employments.Apply(r.Context(), middleware.PrincipalFromContext(r.Context()), id, lifecycle.Action(action), req.Payload)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}
