package handlers

import (
	"net/http"

	"stagelink/internal/app"
	"stagelink/internal/http/middleware"
	"stagelink/internal/http/response"
	"stagelink/internal/lifecycle"
)

type CompanyHandler struct {
	companies *app.CompanyService
}

func NewCompanyHandler(companies *app.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

type lifecycleActionRequest struct {
	Payload map[string]any `json:"payload"`
}

func (h *CompanyHandler) Register(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	var attrs map[string]any
	if err := decodeJSON(r, &attrs); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.companies.Register(r.Context(), p, attrs)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	rec, err := h.companies.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

func (h *CompanyHandler) Mine(w http.ResponseWriter, r *http.Request) {
	rec, err := h.companies.Mine(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.companies.List(r.Context(), middleware.PrincipalFromContext(r.Context()), listQuery(r))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, emptyList(items))
}

func (h *CompanyHandler) Action(w http.ResponseWriter, r *http.Request) {
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
	rec, err := h.companies.Apply(r.Context(), middleware.PrincipalFromContext(r.Context()), id, lifecycle.Action(action), req.Payload)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}
