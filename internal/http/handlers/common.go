package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"stagelink/internal/common"
	"stagelink/internal/store"
)

func decodeJSON(r *http.Request, dest any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return common.NewError(common.CodeValidation, "invalid JSON body", err)
	}
	return nil
}

// idFromPath extracts the path segment at the given index, e.g. index 1 of
// /jobs/{id}/actions/{action} is the id.
func idFromPath(r *http.Request, index int) (common.UUID, error) {
	segment := pathSegment(r.URL.Path, index)
	if segment == "" {
		return "", common.NewError(common.CodeValidation, "missing id in path", nil)
	}
	return common.ParseUUID(segment)
}

func pathSegment(path string, index int) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if index < 0 || index >= len(parts) {
		return ""
	}
	return parts[index]
}

func errUnauthorized() error {
	return common.NewError(common.CodeUnauthorized, "authentication required", nil)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// listQuery builds the caller-supplied filter; forced scoping happens in the
// service layer and overrides anything set here.
func listQuery(r *http.Request) store.Query {
	q := store.Query{}
	q.Limit, q.Offset = parsePagination(r)
	params := r.URL.Query()
	if raw := params.Get("state"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			q.State = store.IntState(parsed)
		}
	}
	if raw := params.Get("companyId"); raw != "" {
		if id, err := common.ParseUUID(raw); err == nil {
			q.CompanyID = id
		}
	}
	if raw := params.Get("ownerId"); raw != "" {
		if id, err := common.ParseUUID(raw); err == nil {
			q.OwnerID = id
		}
	}
	return q
}

func emptyList(items []store.Record) []store.Record {
	if items == nil {
		return []store.Record{}
	}
	return items
}
