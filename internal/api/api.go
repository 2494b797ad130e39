// Package api serves the client management REST endpoints under /api.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/domain"
)

// ListLimit caps GET /api/clients.
const ListLimit = 100

// Registrar runs the chat registration flow for a user.
type Registrar interface {
	Register(ctx context.Context, channel, userID, text string) (domain.ClientRecord, chat.Message, error)
}

// Options wires a Handler.
type Options struct {
	Repo        leads.ClientRepository
	Lookup      chat.ProfileLookup
	Registrar   Registrar
	Channel     string
	SearchLimit int
	PhoneRegion string
}

// Handler serves the REST API.
type Handler struct {
	repo        leads.ClientRepository
	lookup      chat.ProfileLookup
	registrar   Registrar
	channel     string
	searchLimit int
	phoneRegion string
	validate    *validator.Validate
}

// New creates a Handler.
func New(opts Options) *Handler {
	limit := opts.SearchLimit
	if limit <= 0 {
		limit = 20
	}
	return &Handler{
		repo:        opts.Repo,
		lookup:      opts.Lookup,
		registrar:   opts.Registrar,
		channel:     opts.Channel,
		searchLimit: limit,
		phoneRegion: opts.PhoneRegion,
		validate:    validator.New(),
	}
}

// RegisterRoutes mounts the API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/clients", h.listClients)
		r.Get("/clients/search", h.searchClients)
		r.Get("/clients/stats", h.stats)
		r.Get("/clients/{id}", h.getClient)
		r.Put("/clients/{id}", h.updateClient)
		r.Delete("/clients/{id}", h.deleteClient)
		r.Post("/test-client", h.testClient)
		r.Get("/groups/{groupId}", h.group)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps err to a status through its domain kind and logs server errors.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	var de *domain.Error
	if errors.As(err, &de) {
		status = de.HTTPStatus()
	}
	msg := domain.MessageOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), logger.CompAPI, op,
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		msg = "internal error"
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeError(w, status, msg)
}

func clientID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("invalid client id").WithOp("api.client_id")
	}
	return id, nil
}
