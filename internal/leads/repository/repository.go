// Package repository stores clients and staff users in Postgres.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/domain"
)

const clientColumns = `id, name, phone, address, client_type, lead_status_id,
	owner_id, created_by, created_date, is_lead, deleted`

// Repo implements leads.ClientRepository over sqlx.
type Repo struct {
	db           *sqlx.DB
	q            sqlx.ExtContext
	defaultOwner int64
}

// New creates a repository. defaultOwner is returned by ResolveInternalUserID
// for chat users without a mapping.
func New(db *sqlx.DB, defaultOwner int64) *Repo {
	return &Repo{db: db, q: db, defaultOwner: defaultOwner}
}

// FindByPhone returns non-deleted clients with exactly this phone.
func (r *Repo) FindByPhone(ctx context.Context, phone string) ([]domain.ClientRecord, error) {
	var out []domain.ClientRecord
	err := sqlx.SelectContext(ctx, r.q, &out,
		`SELECT `+clientColumns+` FROM clients WHERE phone = $1 AND NOT deleted ORDER BY id`, phone)
	if err != nil {
		return nil, fmt.Errorf("client find by phone: %w", err)
	}
	return out, nil
}

// Insert creates a new person lead with status new and today's date.
func (r *Repo) Insert(ctx context.Context, c domain.NewClient) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, r.q, &id, `
		INSERT INTO clients (name, phone, address, client_type, lead_status_id,
			owner_id, created_by, created_date, is_lead, deleted)
		VALUES ($1, $2, $3, 'person', $4, $5, $6, CURRENT_DATE, TRUE, FALSE)
		RETURNING id`,
		c.Input.Name, c.Input.Phone, c.Input.Address, domain.StatusNew, c.OwnerID, c.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("client insert: %w", err)
	}
	return id, nil
}

// FindByID returns a non-deleted client.
func (r *Repo) FindByID(ctx context.Context, id int64) (domain.ClientRecord, error) {
	var rec domain.ClientRecord
	err := sqlx.GetContext(ctx, r.q, &rec,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND NOT deleted`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ClientRecord{}, domain.NotFound("client not found").WithOp("client.find")
	}
	if err != nil {
		return domain.ClientRecord{}, fmt.Errorf("client find: %w", err)
	}
	return rec, nil
}

func (r *Repo) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

// UpdateStatus writes the status unconditionally.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, status domain.LeadStatus) (int64, error) {
	return r.exec(ctx, "client update status",
		`UPDATE clients SET lead_status_id = $1 WHERE id = $2 AND NOT deleted`, status, id)
}

func (r *Repo) UpdateOwner(ctx context.Context, id int64, ownerID int64) (int64, error) {
	return r.exec(ctx, "client update owner",
		`UPDATE clients SET owner_id = $1 WHERE id = $2 AND NOT deleted`, ownerID, id)
}

func (r *Repo) UpdateAddress(ctx context.Context, id int64, address string) (int64, error) {
	return r.exec(ctx, "client update address",
		`UPDATE clients SET address = $1 WHERE id = $2 AND NOT deleted`, address, id)
}

// UpdateDetails replaces name, phone and address.
func (r *Repo) UpdateDetails(ctx context.Context, id int64, u domain.ClientUpdate) (int64, error) {
	return r.exec(ctx, "client update details",
		`UPDATE clients SET name = $1, phone = $2, address = $3 WHERE id = $4 AND NOT deleted`,
		u.Name, u.Phone, u.Address, id)
}

// SoftDelete flags the client as deleted.
func (r *Repo) SoftDelete(ctx context.Context, id int64) (int64, error) {
	return r.exec(ctx, "client delete",
		`UPDATE clients SET deleted = TRUE WHERE id = $1 AND NOT deleted`, id)
}

// ResolveInternalUserID looks up the staff user mapped to a chat user id.
func (r *Repo) ResolveInternalUserID(ctx context.Context, externalUserID string) (int64, error) {
	if strings.TrimSpace(externalUserID) == "" {
		return r.defaultOwner, nil
	}
	var id int64
	err := sqlx.GetContext(ctx, r.q, &id,
		`SELECT staff_user_id FROM user_mappings WHERE line_user_id = $1`, externalUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return r.defaultOwner, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolve staff user: %w", err)
	}
	return id, nil
}

// StaffUser returns a non-deleted staff user.
func (r *Repo) StaffUser(ctx context.Context, id int64) (domain.StaffUser, error) {
	var u domain.StaffUser
	err := sqlx.GetContext(ctx, r.q, &u, `
		SELECT id, first_name, last_name, COALESCE(line_user_id, '') AS line_user_id
		FROM staff_users WHERE id = $1 AND NOT deleted`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StaffUser{}, domain.NotFound("staff user not found").WithOp("staff.find")
	}
	if err != nil {
		return domain.StaffUser{}, fmt.Errorf("staff find: %w", err)
	}
	return u, nil
}

// WithinTx runs fn inside one transaction. Nested calls reuse the outer one.
func (r *Repo) WithinTx(ctx context.Context, fn func(tx leads.ClientRepository) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Repo{q: tx, defaultOwner: r.defaultOwner}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ leads.ClientRepository = (*Repo)(nil)
