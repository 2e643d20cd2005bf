// Package response writes the one JSON envelope every handler uses.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"stagelink/internal/common"
)

// ErrorCounter receives every error code written to a client. Wired to the
// metrics registry at startup.
type ErrorCounter interface {
	CountError(code string)
}

var errorCounter ErrorCounter

func SetErrorCounter(c ErrorCounter) {
	errorCounter = c
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error *common.Error `json:"error"`
}

func Error(w http.ResponseWriter, err error) {
	coded := asCoded(err)
	if errorCounter != nil {
		errorCounter.CountError(string(coded.Code))
	}
	JSON(w, statusFor(coded.Code), errorBody{Error: coded})
}

func asCoded(err error) *common.Error {
	var coded *common.Error
	if errors.As(err, &coded) {
		return coded
	}
	return common.NewError(common.CodeInternal, "internal error", err)
}

func statusFor(code common.Code) int {
	switch code {
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeForbidden:
		return http.StatusForbidden
	case common.CodeUnauthorized:
		return http.StatusUnauthorized
	case common.CodeValidation, common.CodeInvalidTransition:
		return http.StatusBadRequest
	case common.CodeConflict:
		return http.StatusConflict
	case common.CodeGone:
		return http.StatusGone
	case common.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
