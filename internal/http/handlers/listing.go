package handlers

import (
	"net/http"

	"stagelink/internal/app"
	"stagelink/internal/http/middleware"
	"stagelink/internal/http/response"
	"stagelink/internal/lifecycle"
)

type ListingHandler struct {
	listings *app.ListingService
}

func NewListingHandler(listings *app.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

type createListingRequest struct {
	Attrs  map[string]any `json:"attrs"`
	Submit bool           `json:"submit"`
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.listings.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), req.Attrs, req.Submit)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	rec, err := h.listings.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.listings.List(r.Context(), middleware.PrincipalFromContext(r.Context()), listQuery(r))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, emptyList(items))
}

func (h *ListingHandler) Action(w http.ResponseWriter, r *http.Request) {
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
	rec, err := h.listings.Apply(r.Context(), middleware.PrincipalFromContext(r.Context()), id, lifecycle.Action(action), req.Payload)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}
