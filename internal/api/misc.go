package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/internal/leads/compose"
	"github.com/m3rciful/leadbot/internal/leads/domain"
)

type testClientRequest struct {
	UserID     string `json:"userId" validate:"required"`
	ClientText string `json:"clientText" validate:"required"`
}

type testClientResponse struct {
	Success  bool          `json:"success"`
	ClientID int64         `json:"clientId,omitempty"`
	Message  *chat.Message `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// testClient runs the registration flow without a chat event.
func (h *Handler) testClient(w http.ResponseWriter, r *http.Request) {
	if h.registrar == nil {
		writeError(w, http.StatusServiceUnavailable, "registration unavailable")
		return
	}
	var req testClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "userId and clientText are required")
		return
	}

	rec, msg, err := h.registrar.Register(r.Context(), h.channel, req.UserID, req.ClientText)
	if err != nil {
		status := http.StatusInternalServerError
		if domain.KindOf(err) == domain.KindValidation {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, testClientResponse{Error: compose.ErrorText(compose.OpRegister, err)})
		return
	}
	writeJSON(w, http.StatusOK, testClientResponse{Success: true, ClientID: rec.ID, Message: &msg})
}

type groupResponse struct {
	GroupID     string `json:"groupId"`
	GroupName   string `json:"groupName"`
	MemberCount int    `json:"memberCount"`
}

func (h *Handler) group(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if h.lookup == nil {
		writeError(w, http.StatusServiceUnavailable, "group lookup unavailable")
		return
	}
	g, err := h.lookup.GroupSummary(r.Context(), groupID)
	if errors.Is(err, chat.ErrUnavailable) {
		writeError(w, http.StatusNotFound, "group not found or not accessible")
		return
	}
	if err != nil {
		fail(w, r, "api.groups.get", err)
		return
	}
	writeJSON(w, http.StatusOK, groupResponse{GroupID: groupID, GroupName: g.Name, MemberCount: g.MemberCount})
}
