package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"typing-challenge/models"

	"github.com/google/uuid"
)

// MemoryStore keeps users and referrals in process memory. Each call is atomic
// on its own, like a single-row statement, and callers get copies of the rows.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[string]models.User
	referrals map[[2]string]models.Referral
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]models.User),
		referrals: make(map[[2]string]models.Referral),
		now:       time.Now,
	}
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, id string, tickets int, isCompleted bool) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; ok {
		return nil, ErrDuplicate
	}
	now := s.now()
	u := models.User{
		ID:          id,
		Tickets:     tickets,
		IsCompleted: isCompleted,
		Timestamps:  models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	s.users[id] = u
	return &u, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Tickets != nil {
		u.Tickets = *upd.Tickets
	}
	if upd.IsCompleted != nil {
		u.IsCompleted = *upd.IsCompleted
	}
	if upd.LastTime != nil {
		t := *upd.LastTime
		u.LastTime = &t
	}
	u.UpdatedAt = s.now()
	s.users[id] = u
	return &u, nil
}

func (s *MemoryStore) GetReferral(ctx context.Context, referrerID, referredID string) (*models.Referral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.referrals[[2]string{referrerID, referredID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) CreateReferral(ctx context.Context, referrerID, referredID string) (*models.Referral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]string{referrerID, referredID}
	if _, ok := s.referrals[key]; ok {
		return nil, ErrDuplicate
	}
	r := models.Referral{
		ID:         uuid.NewString(),
		ReferrerID: referrerID,
		ReferredID: referredID,
		CreatedAt:  s.now(),
	}
	s.referrals[key] = r
	return &r, nil
}

func (s *MemoryStore) CountUsers(ctx context.Context, filter UserFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, u := range s.users {
		if filter.IsCompleted != nil && u.IsCompleted != *filter.IsCompleted {
			continue
		}
		if filter.HasTickets && u.Tickets <= 0 {
			continue
		}
		n++
	}
	return n, nil
}

func (s *MemoryStore) CountReferrals(ctx context.Context, filter ReferralFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.referrals {
		if filter.ReferrerID != "" && r.ReferrerID != filter.ReferrerID {
			continue
		}
		if filter.ReferredID != "" && r.ReferredID != filter.ReferredID {
			continue
		}
		n++
	}
	return n, nil
}

func (s *MemoryStore) RecentUsers(ctx context.Context, limit int) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.Unlock()

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	if limit >= 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *MemoryStore) RecentReferrals(ctx context.Context, limit int) ([]models.Referral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	refs := make([]models.Referral, 0, len(s.referrals))
	for _, r := range s.referrals {
		refs = append(refs, r)
	}
	s.mu.Unlock()

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].CreatedAt.After(refs[j].CreatedAt)
	})
	if limit >= 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}
