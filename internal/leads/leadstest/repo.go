// Package leadstest provides in-memory fakes of the lead ports for tests.
package leadstest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/domain"
)

// ErrInjected is returned by a fake method configured to fail.
var ErrInjected = errors.New("leadstest: injected failure")

// Repo is an in-memory leads.ClientRepository that counts calls.
type Repo struct {
	mu       sync.Mutex
	clients  map[int64]domain.ClientRecord
	staff    map[int64]domain.StaffUser
	mappings map[string]int64
	nextID   int64

	// DefaultOwner is returned by ResolveInternalUserID on a miss.
	DefaultOwner int64
	// Fail makes the named method return ErrInjected ("FindByID", "UpdateStatus", ...).
	Fail map[string]bool
	// Today fixes CreatedDate of inserted records.
	Today time.Time

	calls map[string]int
}

// NewRepo creates an empty repository with default owner 1.
func NewRepo() *Repo {
	return &Repo{
		clients:      make(map[int64]domain.ClientRecord),
		staff:        make(map[int64]domain.StaffUser),
		mappings:     make(map[string]int64),
		nextID:       1,
		DefaultOwner: 1,
		Fail:         make(map[string]bool),
		Today:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		calls:        make(map[string]int),
	}
}

// Put stores rec as is; a zero ID gets the next id.
func (r *Repo) Put(rec domain.ClientRecord) domain.ClientRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = r.nextID
	}
	if rec.ID >= r.nextID {
		r.nextID = rec.ID + 1
	}
	if rec.LeadStatus == 0 {
		rec.LeadStatus = domain.StatusNew
	}
	r.clients[rec.ID] = rec
	return rec
}

// Get returns the stored record, deleted or not.
func (r *Repo) Get(id int64) (domain.ClientRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.clients[id]
	return rec, ok
}

// AddStaff registers a staff user and, when externalID is set, its mapping.
func (r *Repo) AddStaff(u domain.StaffUser, externalID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staff[u.ID] = u
	if externalID != "" {
		r.mappings[externalID] = u.ID
	}
}

// Calls returns how often method was invoked.
func (r *Repo) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

// Mutations counts successful writes, a committed transaction counting once.
func (r *Repo) Mutations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls["mutation"]
}

func (r *Repo) enter(method string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[method]++
	if r.Fail[method] {
		return ErrInjected
	}
	return nil
}

func (r *Repo) mutated() {
	r.mu.Lock()
	r.calls["mutation"]++
	r.mu.Unlock()
}

func (r *Repo) live(id int64) (domain.ClientRecord, bool) {
	rec, ok := r.clients[id]
	if !ok || rec.Deleted {
		return domain.ClientRecord{}, false
	}
	return rec, true
}

func (r *Repo) FindByPhone(_ context.Context, phone string) ([]domain.ClientRecord, error) {
	if err := r.enter("FindByPhone"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ClientRecord
	for _, rec := range r.clients {
		if !rec.Deleted && phone != "" && rec.Phone == phone {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) Insert(_ context.Context, c domain.NewClient) (int64, error) {
	if err := r.enter("Insert"); err != nil {
		return 0, err
	}
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.clients[id] = domain.ClientRecord{
		ID:          id,
		Name:        c.Input.Name,
		Phone:       c.Input.Phone,
		Address:     c.Input.Address,
		ClientType:  "person",
		LeadStatus:  domain.StatusNew,
		OwnerID:     c.OwnerID,
		CreatedBy:   c.CreatedBy,
		CreatedDate: r.Today,
		IsLead:      true,
	}
	r.mu.Unlock()
	r.mutated()
	return id, nil
}

func (r *Repo) FindByID(_ context.Context, id int64) (domain.ClientRecord, error) {
	if err := r.enter("FindByID"); err != nil {
		return domain.ClientRecord{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.live(id)
	if !ok {
		return domain.ClientRecord{}, domain.NotFound("client not found").WithOp("client.find")
	}
	return rec, nil
}

func (r *Repo) update(method string, id int64, fn func(*domain.ClientRecord)) (int64, error) {
	if err := r.enter(method); err != nil {
		return 0, err
	}
	r.mu.Lock()
	rec, ok := r.live(id)
	if !ok {
		r.mu.Unlock()
		return 0, nil
	}
	fn(&rec)
	r.clients[id] = rec
	r.mu.Unlock()
	r.mutated()
	return 1, nil
}

func (r *Repo) UpdateStatus(_ context.Context, id int64, status domain.LeadStatus) (int64, error) {
	return r.update("UpdateStatus", id, func(rec *domain.ClientRecord) { rec.LeadStatus = status })
}

func (r *Repo) UpdateOwner(_ context.Context, id int64, ownerID int64) (int64, error) {
	return r.update("UpdateOwner", id, func(rec *domain.ClientRecord) { rec.OwnerID = ownerID })
}

func (r *Repo) UpdateAddress(_ context.Context, id int64, address string) (int64, error) {
	return r.update("UpdateAddress", id, func(rec *domain.ClientRecord) { rec.Address = address })
}

func (r *Repo) UpdateDetails(_ context.Context, id int64, u domain.ClientUpdate) (int64, error) {
	return r.update("UpdateDetails", id, func(rec *domain.ClientRecord) {
		rec.Name, rec.Phone, rec.Address = u.Name, u.Phone, u.Address
	})
}

func (r *Repo) SoftDelete(_ context.Context, id int64) (int64, error) {
	return r.update("SoftDelete", id, func(rec *domain.ClientRecord) { rec.Deleted = true })
}

func (r *Repo) ResolveInternalUserID(_ context.Context, externalUserID string) (int64, error) {
	if err := r.enter("ResolveInternalUserID"); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.mappings[externalUserID]; ok {
		return id, nil
	}
	return r.DefaultOwner, nil
}

// WithinTx applies fn to a snapshot; an error restores the snapshot and a
// commit counts as a single mutation.
func (r *Repo) WithinTx(ctx context.Context, fn func(tx leads.ClientRepository) error) error {
	if err := r.enter("WithinTx"); err != nil {
		return err
	}
	r.mu.Lock()
	snapshot := make(map[int64]domain.ClientRecord, len(r.clients))
	for k, v := range r.clients {
		snapshot[k] = v
	}
	before := r.calls["mutation"]
	r.mu.Unlock()

	err := fn(r)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.clients = snapshot
		r.calls["mutation"] = before
		return err
	}
	r.calls["mutation"] = before + 1
	return nil
}

func (r *Repo) Search(_ context.Context, q leads.SearchQuery) ([]domain.ClientRecord, error) {
	if err := r.enter("Search"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	term := strings.ToLower(q.Term)
	var out []domain.ClientRecord
	for _, rec := range r.clients {
		if rec.Deleted {
			continue
		}
		match := strings.Contains(strings.ToLower(rec.Name), term) ||
			strings.Contains(strings.ToLower(rec.Phone), term) ||
			strings.Contains(strings.ToLower(rec.Address), term) ||
			(q.Phone != "" && rec.Phone == q.Phone)
		if match {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *Repo) Stats(_ context.Context) (domain.Stats, error) {
	if err := r.enter("Stats"); err != nil {
		return domain.Stats{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var s domain.Stats
	for _, rec := range r.clients {
		if rec.Deleted {
			continue
		}
		s.Total++
		if rec.CreatedDate.Equal(r.Today) {
			s.Today++
		}
		if !rec.CreatedDate.Before(r.Today.AddDate(0, 0, -7)) {
			s.ThisWeek++
		}
		if rec.CreatedDate.Year() == r.Today.Year() && rec.CreatedDate.Month() == r.Today.Month() {
			s.ThisMonth++
		}
		if rec.IsLead {
			s.Leads++
		}
		switch rec.ClientType {
		case "organization":
			s.Organizations++
		default:
			s.Persons++
		}
		switch rec.LeadStatus {
		case domain.StatusWon:
			s.Won++
		case domain.StatusLost:
			s.Lost++
		}
	}
	return s, nil
}

func (r *Repo) List(_ context.Context, limit int) ([]domain.ClientRecord, error) {
	if err := r.enter("List"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ClientRecord
	for _, rec := range r.clients {
		if !rec.Deleted {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repo) StaffUser(_ context.Context, id int64) (domain.StaffUser, error) {
	if err := r.enter("StaffUser"); err != nil {
		return domain.StaffUser{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.staff[id]
	if !ok {
		return domain.StaffUser{}, domain.NotFound("staff user not found").WithOp("staff.find")
	}
	return u, nil
}

var _ leads.ClientRepository = (*Repo)(nil)
