// Package store is the persistence boundary for users and referrals.
// Every method is a single-row read or write; nothing here spans a transaction.
package store

import (
	"context"
	"errors"

	"typing-challenge/models"
)

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means a unique key (user id or referral pair) already exists.
	ErrDuplicate = errors.New("duplicate record")
)

// UserUpdate carries the columns to overwrite; nil fields are left alone.
type UserUpdate struct {
	Tickets     *int
	IsCompleted *bool
	LastTime    *float64
}

func (u UserUpdate) empty() bool {
	return u.Tickets == nil && u.IsCompleted == nil && u.LastTime == nil
}

// UserFilter narrows CountUsers. The zero value counts every user.
type UserFilter struct {
	IsCompleted *bool
	HasTickets  bool // tickets > 0
}

// ReferralFilter narrows CountReferrals. The zero value counts every referral.
type ReferralFilter struct {
	ReferrerID string
	ReferredID string
}

// Store is the contract the ticket service needs from the user table and the referral ledger.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, id string, tickets int, isCompleted bool) (*models.User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error)

	GetReferral(ctx context.Context, referrerID, referredID string) (*models.Referral, error)
	CreateReferral(ctx context.Context, referrerID, referredID string) (*models.Referral, error)

	// Reporting only; business rules never depend on these.
	CountUsers(ctx context.Context, filter UserFilter) (int64, error)
	CountReferrals(ctx context.Context, filter ReferralFilter) (int64, error)
	RecentUsers(ctx context.Context, limit int) ([]models.User, error)
	RecentReferrals(ctx context.Context, limit int) ([]models.Referral, error)
}

// Bool returns a pointer to b, for building UserUpdate and UserFilter values.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n.
func Int(n int) *int { return &n }
