package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/codewandler/userd-go/core/errs"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto HTTP statuses. Anything that is
// not a domain error is an internal fault and stays opaque to the
// caller.
func writeError(w http.ResponseWriter, err error) {
	var de *errs.DomainError
	switch {
	case errs.IsNotFound(err):
		errors.As(err, &de)
		writeJSON(w, http.StatusNotFound, errorBody{Code: de.Code, Message: de.Message})
	case errors.As(err, &de):
		writeJSON(w, http.StatusBadRequest, errorBody{Code: de.Code, Message: de.Message})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    "INTERNAL",
			Message: "Internal server error.",
		})
	}
}
