// services/ticket_service.go
package services

import (
	"context"
	"errors"
	"log"

	"typing-challenge/store"
)

const (
	// InitialTickets is what an organically bootstrapped user starts with.
	InitialTickets = 3
	// ReferredTickets is what a user created through someone's share link starts with.
	ReferredTickets = 1
	// ReferrerTopUp is the ticket count restored to a referrer who had none left.
	ReferrerTopUp = 1
)

type BootstrapResult struct {
	UserID      string `json:"userId"`
	Tickets     int    `json:"tickets"`
	IsCompleted bool   `json:"isCompleted"`
	IsNew       bool   `json:"isNew"`
}

type ReferralResult struct {
	Success         bool `json:"success"`
	TicketsAwarded  bool `json:"ticketsAwarded"`
	ReferrerTickets int  `json:"referrerTickets"`
}

type CompletionResult struct {
	Success     bool     `json:"success"`
	IsCompleted bool     `json:"isCompleted"`
	LastTime    *float64 `json:"lastTime,omitempty"`
}

// TicketService holds the ticket and referral rules. It keeps no state between
// calls; every operation re-reads what it needs from the store.
type TicketService struct {
	store store.Store
	guard TicketGuard
}

// NewTicketService wires the service to a store. A nil guard means NoopGuard.
func NewTicketService(s store.Store, guard TicketGuard) *TicketService {
	if guard == nil {
		guard = NoopGuard{}
	}
	return &TicketService{store: s, guard: guard}
}

// Bootstrap returns the user, creating it with InitialTickets on first sight.
func (s *TicketService) Bootstrap(ctx context.Context, userID string) (*BootstrapResult, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Reason: "userId is required"}
	}

	user, err := s.store.GetUser(ctx, userID)
	if err == nil {
		return &BootstrapResult{
			UserID:      user.ID,
			Tickets:     user.Tickets,
			IsCompleted: user.IsCompleted,
			IsNew:       false,
		}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, &StoreError{Step: StepFetchUser, Err: err}
	}

	user, err = s.store.CreateUser(ctx, userID, InitialTickets, false)
	if err != nil {
		return nil, &StoreError{Step: StepCreateUser, Err: err}
	}
	log.Printf("🆕 [TICKETS] New user %s with %d tickets", user.ID, user.Tickets)

	return &BootstrapResult{
		UserID:      user.ID,
		Tickets:     user.Tickets,
		IsCompleted: user.IsCompleted,
		IsNew:       true,
	}, nil
}

// ProcessReferral records that referrerID invited referredID.
//
// The steps run in a fixed order, one store call each, with no transaction
// around them: a failure after the referral row is written leaves that row in
// place. The referrer only gains a ticket when they had none, and then exactly
// ReferrerTopUp; further referrals do not stack.
func (s *TicketService) ProcessReferral(ctx context.Context, referrerID, referredID string) (*ReferralResult, error) {
	if referrerID == "" || referredID == "" {
		return nil, &ValidationError{Field: "referrerId,referredId", Reason: "referrerId and referredId are required"}
	}
	if referrerID == referredID {
		return nil, &ValidationError{Field: "referredId", Reason: "Cannot refer yourself"}
	}

	_, err := s.store.GetReferral(ctx, referrerID, referredID)
	if err == nil {
		return nil, &ConflictError{Reason: "Referral already exists"}
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, &StoreError{Step: StepCheckReferral, Err: err}
	}

	if _, err := s.store.GetUser(ctx, referredID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, &StoreError{Step: StepCheckReferredUser, Err: err}
		}
		if _, err := s.store.CreateUser(ctx, referredID, ReferredTickets, false); err != nil {
			return nil, &StoreError{Step: StepCreateReferredUser, Err: err}
		}
		log.Printf("🆕 [REFERRAL] Referred user %s created with %d ticket", referredID, ReferredTickets)
	}

	if _, err := s.store.CreateReferral(ctx, referrerID, referredID); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &ConflictError{Reason: "Referral already exists"}
		}
		return nil, &StoreError{Step: StepCreateReferral, Err: err}
	}

	awarded, err := s.topUpReferrer(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	referrer, err := s.store.GetUser(ctx, referrerID)
	if err != nil {
		return nil, &StoreError{Step: StepFetchUpdatedReferrer, Err: err}
	}

	log.Printf("🤝 [REFERRAL] %s → %s (awarded=%t, referrer tickets=%d)", referrerID, referredID, awarded, referrer.Tickets)
	return &ReferralResult{
		Success:         true,
		TicketsAwarded:  awarded,
		ReferrerTickets: referrer.Tickets,
	}, nil
}

func (s *TicketService) topUpReferrer(ctx context.Context, referrerID string) (bool, error) {
	release, err := s.guard.Acquire(ctx, referrerID)
	if err != nil {
		return false, &StoreError{Step: StepAcquireGuard, Err: err}
	}
	defer release()

	referrer, err := s.store.GetUser(ctx, referrerID)
	if err != nil {
		return false, &StoreError{Step: StepFetchReferrer, Err: err}
	}
	if referrer.Tickets != 0 {
		return false, nil
	}

	if _, err := s.store.UpdateUser(ctx, referrerID, store.UserUpdate{Tickets: store.Int(ReferrerTopUp)}); err != nil {
		return false, &StoreError{Step: StepAwardTickets, Err: err}
	}
	return true, nil
}

// ConsumeTicket spends one attempt and returns the remaining count.
// It never drives the count below zero.
func (s *TicketService) ConsumeTicket(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, &ValidationError{Field: "userId", Reason: "userId is required"}
	}

	release, err := s.guard.Acquire(ctx, userID)
	if err != nil {
		return 0, &StoreError{Step: StepAcquireGuard, Err: err}
	}
	defer release()

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, &StoreError{Step: StepFetchUser, Err: err}
	}
	if user.Tickets <= 0 {
		return user.Tickets, &InsufficientTicketsError{UserID: userID, Tickets: user.Tickets}
	}

	updated, err := s.store.UpdateUser(ctx, userID, store.UserUpdate{Tickets: store.Int(user.Tickets - 1)})
	if err != nil {
		return 0, &StoreError{Step: StepUpdateTickets, Err: err}
	}
	return updated.Tickets, nil
}

// Tickets returns the user's current ticket count.
func (s *TicketService) Tickets(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, &ValidationError{Field: "userId", Reason: "userId is required"}
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, &StoreError{Step: StepFetchTickets, Err: err}
	}
	return user.Tickets, nil
}

// RecordCompletion marks the user as having finished the sentence. Replays
// overwrite: the latest finalTime wins. finalTime is stored as given, without
// range checks.
func (s *TicketService) RecordCompletion(ctx context.Context, userID string, finalTime *float64) (*CompletionResult, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Reason: "userId is required"}
	}

	upd := store.UserUpdate{IsCompleted: store.Bool(true), LastTime: finalTime}
	user, err := s.store.UpdateUser(ctx, userID, upd)
	if err != nil {
		return nil, &StoreError{Step: StepUpdateCompletion, Err: err}
	}

	return &CompletionResult{
		Success:     true,
		IsCompleted: user.IsCompleted,
		LastTime:    user.LastTime,
	}, nil
}
