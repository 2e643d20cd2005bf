package handlers

import (
	"net/http"
	"time"

	"stagelink/internal/app"
	"stagelink/internal/common"
	"stagelink/internal/domain/share"
	"stagelink/internal/http/middleware"
	"stagelink/internal/http/response"
)

type ShareHandler struct {
	shares  *app.ShareService
	limiter middleware.Limiter
}

func NewShareHandler(shares *app.ShareService, limiter middleware.Limiter) *ShareHandler {
	return &ShareHandler{shares: shares, limiter: limiter}
}

type createShareRequest struct {
	Type      string     `json:"type"`
	TargetID  string     `json:"targetId"`
	Note      string     `json:"note"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	var req createShareRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	targetID, err := common.ParseUUID(req.TargetID)
	if err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.shares.Create(r.Context(), p, share.Type(req.Type), targetID, req.Note, req.ExpiresAt)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	rec, err := h.shares.GetByID(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

func (h *ShareHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	items, err := h.shares.ListMine(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	if items == nil {
		items = []share.Share{}
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *ShareHandler) Disable(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	rec, err := h.shares.Disable(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

// Resolve is the unauthenticated open path, rate limited per client IP so
// token scanning stays expensive.
func (h *ShareHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		key := "share-open:" + middleware.ClientIP(r)
		if !h.limiter.Allow(key, 60, time.Minute) {
			response.Error(w, common.NewError(common.CodeRateLimited, "too many share opens", nil))
			return
		}
	}
	token := pathSegment(r.URL.Path, 1)
	if token == "" {
		response.Error(w, common.NewError(common.CodeNotFound, "share not found", nil))
		return
	}
	view, err := h.shares.ResolveToken(r.Context(), token)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, view)
}
