package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/domain"
)

const defaultListLimit = 100

// likePattern turns a search term into a contains pattern with LIKE
// wildcards escaped.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}

// Search matches the term against name, phone and address, or the phone
// exactly. Newest first.
func (r *Repo) Search(ctx context.Context, q leads.SearchQuery) ([]domain.ClientRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	var out []domain.ClientRecord
	err := sqlx.SelectContext(ctx, r.q, &out, `
		SELECT `+clientColumns+` FROM clients
		WHERE NOT deleted
		  AND (name ILIKE $1 OR phone ILIKE $1 OR address ILIKE $1
		       OR ($2 <> '' AND phone = $2))
		ORDER BY created_date DESC, id DESC
		LIMIT $3`,
		likePattern(q.Term), q.Phone, limit)
	if err != nil {
		return nil, fmt.Errorf("client search: %w", err)
	}
	return out, nil
}

// List returns the newest clients.
func (r *Repo) List(ctx context.Context, limit int) ([]domain.ClientRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var out []domain.ClientRecord
	err := sqlx.SelectContext(ctx, r.q, &out,
		`SELECT `+clientColumns+` FROM clients WHERE NOT deleted ORDER BY created_date DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("client list: %w", err)
	}
	return out, nil
}

const statsQuery = `
	SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE created_date = CURRENT_DATE) AS today,
		COUNT(*) FILTER (WHERE created_date >= CURRENT_DATE - 7) AS this_week,
		COUNT(*) FILTER (WHERE date_trunc('month', created_date) = date_trunc('month', CURRENT_DATE)) AS this_month,
		COUNT(*) FILTER (WHERE is_lead) AS leads,
		COUNT(*) FILTER (WHERE client_type = 'person') AS persons,
		COUNT(*) FILTER (WHERE client_type = 'organization') AS organizations,
		COUNT(*) FILTER (WHERE lead_status_id = $1) AS won,
		COUNT(*) FILTER (WHERE lead_status_id = $2) AS lost
	FROM clients
	WHERE NOT deleted`

// Stats aggregates client counts.
func (r *Repo) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	if err := sqlx.GetContext(ctx, r.q, &s, statsQuery, domain.StatusWon, domain.StatusLost); err != nil {
		return domain.Stats{}, fmt.Errorf("client stats: %w", err)
	}
	return s, nil
}
