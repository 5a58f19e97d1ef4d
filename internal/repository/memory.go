package repository

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"finance-auth/internal/model"
	"finance-auth/pkg/apierror"
)

// MemoryTokenRepository is a RefreshTokenStore held in process memory. It
// enforces the same one-active-token-per-owner rule as the Postgres schema.
type MemoryTokenRepository struct {
	mu    sync.Mutex
	state *tokenState
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{state: &tokenState{byToken: map[string]*model.RefreshToken{}}}
}

func (r *MemoryTokenRepository) Save(ctx context.Context, ownerID int64, token string, expiresAt time.Time) (model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Save(ctx, ownerID, token, expiresAt)
}

func (r *MemoryTokenRepository) FindUsable(ctx context.Context, token string, now time.Time) (model.RefreshToken, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.FindUsable(ctx, token, now)
}

func (r *MemoryTokenRepository) ConsumeUsable(ctx context.Context, token string, now time.Time) (model.RefreshToken, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.ConsumeUsable(ctx, token, now)
}

func (r *MemoryTokenRepository) FindActiveByOwner(ctx context.Context, ownerID int64) (model.RefreshToken, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.FindActiveByOwner(ctx, ownerID)
}

func (r *MemoryTokenRepository) DeactivateByToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.DeactivateByToken(ctx, token)
}

func (r *MemoryTokenRepository) DeactivateAllByOwner(ctx context.Context, ownerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.DeactivateAllByOwner(ctx, ownerID)
}

func (r *MemoryTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.DeleteExpired(ctx, now)
}

func (r *MemoryTokenRepository) LockOwner(context.Context, int64) error {
	return nil
}

// InTx holds the repository lock for the whole of fn and restores the prior
// state when fn fails.
func (r *MemoryTokenRepository) InTx(ctx context.Context, fn func(store RefreshTokenStore) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.state.clone()
	if err := fn(r.state); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

// Records returns a copy of every stored record for the owner, oldest first.
func (r *MemoryTokenRepository) Records(ownerID int64) []model.RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.RefreshToken, 0)
	for _, t := range r.state.byToken {
		if t.OwnerID == ownerID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// tokenState is the unlocked store; it also serves as the in-transaction view.
type tokenState struct {
	nextID  int64
	byToken map[string]*model.RefreshToken
}

func (s *tokenState) clone() *tokenState {
	out := &tokenState{nextID: s.nextID, byToken: make(map[string]*model.RefreshToken, len(s.byToken))}
	for k, v := range s.byToken {
		cp := *v
		out.byToken[k] = &cp
	}
	return out
}

func (s *tokenState) Save(_ context.Context, ownerID int64, token string, expiresAt time.Time) (model.RefreshToken, error) {
	for _, t := range s.byToken {
		if t.OwnerID == ownerID && t.Active {
			return model.RefreshToken{}, model.ErrActiveTokenExists
		}
	}
	if _, exists := s.byToken[token]; exists {
		return model.RefreshToken{}, apierror.New("CONFLICT", "refresh token already stored", "", http.StatusConflict)
	}

	s.nextID++
	now := time.Now().UTC()
	record := &model.RefreshToken{
		ID:        s.nextID,
		Token:     token,
		OwnerID:   ownerID,
		ExpiresAt: expiresAt.UTC(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byToken[token] = record
	return *record, nil
}

func (s *tokenState) FindUsable(_ context.Context, token string, now time.Time) (model.RefreshToken, bool, error) {
	t, ok := s.byToken[token]
	if !ok || !t.Usable(now) {
		return model.RefreshToken{}, false, nil
	}
	return *t, true, nil
}

func (s *tokenState) ConsumeUsable(_ context.Context, token string, now time.Time) (model.RefreshToken, bool, error) {
	t, ok := s.byToken[token]
	if !ok || !t.Usable(now) {
		return model.RefreshToken{}, false, nil
	}
	t.Active = false
	t.UpdatedAt = time.Now().UTC()
	return *t, true, nil
}

func (s *tokenState) FindActiveByOwner(_ context.Context, ownerID int64) (model.RefreshToken, bool, error) {
	var latest *model.RefreshToken
	for _, t := range s.byToken {
		if t.OwnerID != ownerID || !t.Active {
			continue
		}
		if latest == nil || t.ID > latest.ID {
			latest = t
		}
	}
	if latest == nil {
		return model.RefreshToken{}, false, nil
	}
	return *latest, true, nil
}

func (s *tokenState) DeactivateByToken(_ context.Context, token string) error {
	if t, ok := s.byToken[token]; ok && t.Active {
		t.Active = false
		t.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *tokenState) DeactivateAllByOwner(_ context.Context, ownerID int64) (int64, error) {
	var n int64
	for _, t := range s.byToken {
		if t.OwnerID == ownerID && t.Active {
			t.Active = false
			t.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (s *tokenState) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, t := range s.byToken {
		if t.ExpiresAt.Before(now) {
			delete(s.byToken, k)
			n++
		}
	}
	return n, nil
}

func (s *tokenState) LockOwner(context.Context, int64) error {
	return nil
}

func (s *tokenState) InTx(_ context.Context, fn func(store RefreshTokenStore) error) error {
	return fn(s)
}

// MemoryMemberRepository is a MemberDirectory held in process memory.
type MemoryMemberRepository struct {
	mu      sync.RWMutex
	nextID  int64
	members map[int64]model.Member
}

func NewMemoryMemberRepository() *MemoryMemberRepository {
	return &MemoryMemberRepository{members: map[int64]model.Member{}}
}

// Add stores the member, assigning an id when it has none.
func (r *MemoryMemberRepository) Add(m model.Member) model.Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == 0 {
		r.nextID++
		m.ID = r.nextID
	} else if m.ID > r.nextID {
		r.nextID = m.ID
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
		m.UpdatedAt = m.CreatedAt
	}
	r.members[m.ID] = m
	return m
}

func (r *MemoryMemberRepository) FindByID(_ context.Context, id int64) (model.Member, bool, error) {
	return r.find(func(m model.Member) bool { return m.ID == id })
}

func (r *MemoryMemberRepository) FindByEmail(_ context.Context, email string) (model.Member, bool, error) {
	email = strings.TrimSpace(email)
	return r.find(func(m model.Member) bool { return m.Email == email })
}

func (r *MemoryMemberRepository) FindByNameAndPhone(_ context.Context, name string, phone string) (model.Member, bool, error) {
	name, phone = strings.TrimSpace(name), model.NormalizePhone(phone)
	return r.find(func(m model.Member) bool {
		return m.Name == name && model.NormalizePhone(m.PhoneNumber) == phone
	})
}

func (r *MemoryMemberRepository) FindByEmailNameAndPhone(_ context.Context, email string, name string, phone string) (model.Member, bool, error) {
	email, name, phone = strings.TrimSpace(email), strings.TrimSpace(name), model.NormalizePhone(phone)
	return r.find(func(m model.Member) bool {
		return m.Email == email && m.Name == name && model.NormalizePhone(m.PhoneNumber) == phone
	})
}

func (r *MemoryMemberRepository) UpdatePasswordHash(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[id]
	if !ok || m.Deleted {
		return apierror.Wrap(model.ErrMemberNotFound, "NOT_FOUND", "member not found", http.StatusNotFound)
	}
	m.PasswordHash = passwordHash
	m.UpdatedAt = time.Now().UTC()
	r.members[id] = m
	return nil
}

func (r *MemoryMemberRepository) find(match func(model.Member) bool) (model.Member, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found model.Member
	ok := false
	for _, m := range r.members {
		if m.Deleted || !match(m) {
			continue
		}
		if !ok || m.ID < found.ID {
			found, ok = m, true
		}
	}
	return found, ok, nil
}

// MemoryAuditRepository keeps auth events in process memory.
type MemoryAuditRepository struct {
	mu     sync.Mutex
	events []model.AuthEvent
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Log(_ context.Context, event model.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	event.ID = int64(len(r.events) + 1)
	r.events = append(r.events, event)
	return nil
}

func (r *MemoryAuditRepository) Query(_ context.Context, query model.AuthEventQuery) ([]model.AuthEvent, model.Meta, error) {
	query.Normalize()

	r.mu.Lock()
	matched := make([]model.AuthEvent, 0, len(r.events))
	for _, e := range r.events {
		if query.Action != "" && !strings.EqualFold(string(e.Action), query.Action) {
			continue
		}
		if query.Status != "" && !strings.EqualFold(e.Status, query.Status) {
			continue
		}
		if query.MemberID != nil && (e.MemberID == nil || *e.MemberID != *query.MemberID) {
			continue
		}
		if !query.From.IsZero() && e.OccurredAt.Before(query.From) {
			continue
		}
		if !query.To.IsZero() && e.OccurredAt.After(query.To) {
			continue
		}
		matched = append(matched, e)
	}
	r.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	total := len(matched)
	start := min((query.Page-1)*query.Limit, total)
	end := min(start+query.Limit, total)

	return matched[start:end], model.NewMeta(query.Page, query.Limit, total), nil
}
