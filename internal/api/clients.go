package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/domain"
	"github.com/m3rciful/leadbot/internal/leads/parser"
)

// clientView is a client as returned by the API, with the lost reason split
// out of the address.
type clientView struct {
	domain.ClientRecord
	Address string `json:"address"`
	Reason  string `json:"reason,omitempty"`
	Status  string `json:"status"`
}

func viewOf(rec domain.ClientRecord) clientView {
	address, reason := domain.SplitReason(rec.Address)
	return clientView{ClientRecord: rec, Address: address, Reason: reason, Status: rec.LeadStatus.Key()}
}

func viewsOf(recs []domain.ClientRecord) []clientView {
	out := make([]clientView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, viewOf(rec))
	}
	return out
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	recs, err := h.repo.List(r.Context(), ListLimit)
	if err != nil {
		fail(w, r, "api.clients.list", err)
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(recs))
}

func (h *Handler) searchClients(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "search query is required")
		return
	}
	recs, err := h.repo.Search(r.Context(), leads.SearchQuery{
		Term:  q,
		Phone: parser.PhoneQueryIn(q, h.phoneRegion),
		Limit: h.searchLimit,
	})
	if err != nil {
		fail(w, r, "api.clients.search", err)
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(recs))
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.Stats(r.Context())
	if err != nil {
		fail(w, r, "api.clients.stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		fail(w, r, "api.clients.get", err)
		return
	}
	rec, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		fail(w, r, "api.clients.get", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

// updateRequest uses the field names of clientView. A nil Reason keeps the
// stored lost reason; an empty one removes it.
type updateRequest struct {
	Name    string  `json:"name" validate:"required,max=255"`
	Phone   string  `json:"phone" validate:"required,numeric,min=9,max=15"`
	Address string  `json:"address" validate:"max=1000"`
	Reason  *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// address rebuilds the stored column from the edited address and the reason
// already embedded in current.
func (req updateRequest) address(current string) string {
	_, reason := domain.SplitReason(current)
	address, typed := domain.SplitReason(strings.TrimSpace(req.Address))
	if typed != "" {
		reason = typed
	}
	if req.Reason != nil {
		reason = strings.TrimSpace(*req.Reason)
	}
	if reason == "" {
		return address
	}
	return domain.MergeReason(address, reason)
}

type okBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		fail(w, r, "api.clients.update", err)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "name and a numeric phone are required")
		return
	}

	current, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		fail(w, r, "api.clients.update", err)
		return
	}
	existing, err := h.repo.FindByPhone(r.Context(), req.Phone)
	if err != nil {
		fail(w, r, "api.clients.update", err)
		return
	}
	for _, rec := range existing {
		if rec.ID != id {
			fail(w, r, "api.clients.update", domain.Conflict("phone number already exists"))
			return
		}
	}

	n, err := h.repo.UpdateDetails(r.Context(), id, domain.ClientUpdate{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.address(current.Address),
	})
	if err != nil {
		fail(w, r, "api.clients.update", err)
		return
	}
	if n == 0 {
		fail(w, r, "api.clients.update", domain.NotFound("client not found"))
		return
	}
	writeJSON(w, http.StatusOK, okBody{Success: true, Message: "client updated"})
}

func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := clientID(r)
	if err != nil {
		fail(w, r, "api.clients.delete", err)
		return
	}
	n, err := h.repo.SoftDelete(r.Context(), id)
	if err != nil {
		fail(w, r, "api.clients.delete", err)
		return
	}
	if n == 0 {
		fail(w, r, "api.clients.delete", domain.NotFound("client not found"))
		return
	}
	writeJSON(w, http.StatusOK, okBody{Success: true, Message: "client deleted"})
}
