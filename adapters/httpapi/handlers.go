package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codewandler/userd-go/core/cqrs"
	"github.com/codewandler/userd-go/core/optional"
	"github.com/codewandler/userd-go/core/user"
)

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	query, err := user.NewGetUserByIDQuery(chi.URLParam(r, "user_id")).Get()
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := cqrs.DispatchQuery[user.Response](r.Context(), h.queries, query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// updateUserRequest distinguishes absent fields from explicit nulls:
// absent leaves the field alone, null clears it where clearing is
// allowed.
type updateUserRequest struct {
	Name              optional.Field[string] `json:"name"`
	Email             optional.Field[string] `json:"email"`
	ProfilePictureURL optional.Field[string] `json:"profile_picture_url"`
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    "INVALID_JSON",
			Message: "Request body is not valid JSON.",
		})
		return
	}

	cmd, err := user.NewUpdateUserCommand(
		chi.URLParam(r, "user_id"),
		req.Name,
		req.Email,
		req.ProfilePictureURL,
	).Get()
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.commands.Dispatch(r.Context(), cmd); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
