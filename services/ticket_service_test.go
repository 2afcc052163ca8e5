package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"typing-challenge/models"
	"typing-challenge/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails the named methods with the given error and otherwise
// delegates to an in-memory store.
type failingStore struct {
	*store.MemoryStore
	fail map[string]error
}

func newFailingStore(fail map[string]error) *failingStore {
	return &failingStore{MemoryStore: store.NewMemoryStore(), fail: fail}
}

func (f *failingStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := f.fail["GetUser:"+id]; err != nil {
		return nil, err
	}
	return f.MemoryStore.GetUser(ctx, id)
}

func (f *failingStore) CreateUser(ctx context.Context, id string, tickets int, done bool) (*models.User, error) {
	if err := f.fail["CreateUser"]; err != nil {
		return nil, err
	}
	return f.MemoryStore.CreateUser(ctx, id, tickets, done)
}

func (f *failingStore) UpdateUser(ctx context.Context, id string, upd store.UserUpdate) (*models.User, error) {
	if err := f.fail["UpdateUser"]; err != nil {
		return nil, err
	}
	return f.MemoryStore.UpdateUser(ctx, id, upd)
}

func (f *failingStore) GetReferral(ctx context.Context, referrerID, referredID string) (*models.Referral, error) {
	if err := f.fail["GetReferral"]; err != nil {
		return nil, err
	}
	return f.MemoryStore.GetReferral(ctx, referrerID, referredID)
}

func (f *failingStore) CreateReferral(ctx context.Context, referrerID, referredID string) (*models.Referral, error) {
	if err := f.fail["CreateReferral"]; err != nil {
		return nil, err
	}
	return f.MemoryStore.CreateReferral(ctx, referrerID, referredID)
}

func newService(t *testing.T) (*TicketService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewTicketService(st, nil), st
}

func setTickets(t *testing.T, st store.Store, id string, n int) {
	t.Helper()
	_, err := st.UpdateUser(context.Background(), id, store.UserUpdate{Tickets: store.Int(n)})
	require.NoError(t, err)
}

func countAll(t *testing.T, st store.Store) (users, referrals int64) {
	t.Helper()
	ctx := context.Background()
	users, err := st.CountUsers(ctx, store.UserFilter{})
	require.NoError(t, err)
	referrals, err = st.CountReferrals(ctx, store.ReferralFilter{})
	require.NoError(t, err)
	return users, referrals
}

func TestBootstrap_CreatesThenReturnsExisting(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Bootstrap(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, first.IsNew)
	assert.Equal(t, InitialTickets, first.Tickets)
	assert.False(t, first.IsCompleted)

	second, err := svc.Bootstrap(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.Tickets, second.Tickets)
	assert.Equal(t, "user_1", second.UserID)
}

func TestBootstrap_DoesNotResetSpentTickets(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "u")
	require.NoError(t, err)
	setTickets(t, st, "u", 0)

	res, err := svc.Bootstrap(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Tickets)
}

func TestBootstrap_EmptyID(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Bootstrap(context.Background(), "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "userId", verr.Field)
}

func TestBootstrap_StoreFailures(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name     string
		fail     map[string]error
		wantStep string
	}{
		{"lookup", map[string]error{"GetUser:u": boom}, StepFetchUser},
		{"insert", map[string]error{"CreateUser": boom}, StepCreateUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTicketService(newFailingStore(tt.fail), nil)

			_, err := svc.Bootstrap(context.Background(), "u")
			var serr *StoreError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.wantStep, serr.Step)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestProcessReferral_SelfReferral(t *testing.T) {
	svc, st := newService(t)

	for _, id := range []string{"a", "user_123_abc", "같은사람"} {
		_, err := svc.ProcessReferral(context.Background(), id, id)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, id)
	}
	users, refs := countAll(t, st)
	assert.Zero(t, users)
	assert.Zero(t, refs)
}

func TestProcessReferral_MissingFields(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.ProcessReferral(context.Background(), "", "b")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.ProcessReferral(context.Background(), "a", "")
	require.ErrorAs(t, err, &verr)
}

func TestProcessReferral_DuplicatePair(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "A")
	require.NoError(t, err)
	usersBefore, refsBefore := countAll(t, st)

	first, err := svc.ProcessReferral(ctx, "A", "C")
	require.NoError(t, err)
	assert.True(t, first.Success)

	_, err = svc.ProcessReferral(ctx, "A", "C")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	usersAfter, refsAfter := countAll(t, st)
	assert.Equal(t, usersBefore+1, usersAfter)
	assert.Equal(t, refsBefore+1, refsAfter)
}

func TestProcessReferral_ReversePairIsDistinct(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "A")
	require.NoError(t, err)
	_, err = svc.Bootstrap(ctx, "B")
	require.NoError(t, err)

	_, err = svc.ProcessReferral(ctx, "A", "B")
	require.NoError(t, err)
	_, err = svc.ProcessReferral(ctx, "B", "A")
	require.NoError(t, err)
}

func TestProcessReferral_NewReferredUserGetsOneTicket(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "A")
	require.NoError(t, err)

	_, err = svc.ProcessReferral(ctx, "A", "C")
	require.NoError(t, err)

	c, err := st.GetUser(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, ReferredTickets, c.Tickets)
	assert.False(t, c.IsCompleted)

	// A later bootstrap of C must not bump it to the organic default.
	res, err := svc.Bootstrap(ctx, "C")
	require.NoError(t, err)
	assert.False(t, res.IsNew)
	assert.Equal(t, 1, res.Tickets)
}

func TestProcessReferral_ExistingReferredUserUntouched(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "A")
	require.NoError(t, err)
	_, err = svc.Bootstrap(ctx, "B")
	require.NoError(t, err)

	_, err = svc.ProcessReferral(ctx, "A", "B")
	require.NoError(t, err)

	b, err := st.GetUser(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, InitialTickets, b.Tickets)
}

func TestProcessReferral_TopUpOnlyFromZero(t *testing.T) {
	tests := []struct {
		name        string
		before      int
		wantAward   bool
		wantTickets int
	}{
		{"exhausted referrer regains one", 0, true, 1},
		{"one ticket left", 1, false, 1},
		{"two tickets left", 2, false, 2},
		{"full referrer", 3, false, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newService(t)
			ctx := context.Background()

			_, err := svc.Bootstrap(ctx, "A")
			require.NoError(t, err)
			setTickets(t, st, "A", tt.before)

			res, err := svc.ProcessReferral(ctx, "A", "C")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAward, res.TicketsAwarded)
			assert.Equal(t, tt.wantTickets, res.ReferrerTickets)

			a, err := st.GetUser(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTickets, a.Tickets)
		})
	}
}

func TestProcessReferral_RewardsDoNotStack(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "A")
	require.NoError(t, err)
	setTickets(t, st, "A", 0)

	for i, friend := range []string{"C", "D", "E"} {
		res, err := svc.ProcessReferral(ctx, "A", friend)
		require.NoError(t, err)
		assert.Equal(t, i == 0, res.TicketsAwarded, friend)
		assert.Equal(t, 1, res.ReferrerTickets, friend)
	}
}

func TestProcessReferral_UnknownReferrerLeavesReferralRow(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := svc.ProcessReferral(ctx, "ghost", "C")
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepFetchReferrer, serr.Step)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// No rollback: the referred user and the referral row stay.
	users, refs := countAll(t, st)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(1), refs)
}

func TestProcessReferral_StoreFailureSteps(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		fail     map[string]error
		wantStep string
	}{
		{"check referral", map[string]error{"GetReferral": boom}, StepCheckReferral},
		{"check referred", map[string]error{"GetUser:C": boom}, StepCheckReferredUser},
		{"create referred", map[string]error{"CreateUser": boom}, StepCreateReferredUser},
		{"insert referral", map[string]error{"CreateReferral": boom}, StepCreateReferral},
		{"award", map[string]error{"UpdateUser": boom}, StepAwardTickets},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFailingStore(tt.fail)
			ctx := context.Background()
			_, err := fs.MemoryStore.CreateUser(ctx, "A", 0, false)
			require.NoError(t, err)

			svc := NewTicketService(fs, nil)
			_, err = svc.ProcessReferral(ctx, "A", "C")

			var serr *StoreError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.wantStep, serr.Step)
			assert.NotEmpty(t, serr.Message())
		})
	}
}

func TestProcessReferral_InsertRaceReportsConflict(t *testing.T) {
	fs := newFailingStore(map[string]error{"CreateReferral": store.ErrDuplicate})
	ctx := context.Background()
	_, err := fs.MemoryStore.CreateUser(ctx, "A", 3, false)
	require.NoError(t, err)

	_, err = NewTicketService(fs, nil).ProcessReferral(ctx, "A", "C")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestConsumeTicket(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "u")
	require.NoError(t, err)

	for want := InitialTickets - 1; want >= 0; want-- {
		got, err := svc.ConsumeTicket(ctx, "u")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = svc.ConsumeTicket(ctx, "u")
	var noTickets *InsufficientTicketsError
	require.ErrorAs(t, err, &noTickets)
	assert.Equal(t, 0, noTickets.Tickets)

	u, err := st.GetUser(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 0, u.Tickets)
}

func TestConsumeTicket_NegativeBalanceRejected(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := st.CreateUser(ctx, "u", -2, false)
	require.NoError(t, err)

	_, err = svc.ConsumeTicket(ctx, "u")
	var noTickets *InsufficientTicketsError
	require.ErrorAs(t, err, &noTickets)

	u, err := st.GetUser(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, -2, u.Tickets)
}

func TestConsumeTicket_Errors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ConsumeTicket(ctx, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.ConsumeTicket(ctx, "missing")
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepFetchUser, serr.Step)

	fs := newFailingStore(map[string]error{"UpdateUser": errors.New("write failed")})
	_, err = fs.MemoryStore.CreateUser(ctx, "u", 2, false)
	require.NoError(t, err)
	_, err = NewTicketService(fs, nil).ConsumeTicket(ctx, "u")
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepUpdateTickets, serr.Step)
}

func TestTickets(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "u")
	require.NoError(t, err)
	_, err = svc.ConsumeTicket(ctx, "u")
	require.NoError(t, err)

	n, err := svc.Tickets(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.Tickets(ctx, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Tickets(ctx, "nobody")
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepFetchTickets, serr.Step)
}

func TestRecordCompletion_Idempotent(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "u")
	require.NoError(t, err)

	first := 7.42
	res, err := svc.RecordCompletion(ctx, "u", &first)
	require.NoError(t, err)
	assert.True(t, res.IsCompleted)
	require.NotNil(t, res.LastTime)
	assert.Equal(t, first, *res.LastTime)

	second := 5.1
	res, err = svc.RecordCompletion(ctx, "u", &second)
	require.NoError(t, err)
	assert.True(t, res.IsCompleted)
	assert.Equal(t, second, *res.LastTime)

	// Without a time the previous one is kept.
	res, err = svc.RecordCompletion(ctx, "u", nil)
	require.NoError(t, err)
	assert.True(t, res.IsCompleted)
	assert.Equal(t, second, *res.LastTime)

	u, err := st.GetUser(ctx, "u")
	require.NoError(t, err)
	assert.True(t, u.IsCompleted)
	assert.Equal(t, second, *u.LastTime)
}

func TestRecordCompletion_AcceptsAnyTime(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, "u")
	require.NoError(t, err)

	negative := -3.0
	res, err := svc.RecordCompletion(ctx, "u", &negative)
	require.NoError(t, err)
	assert.Equal(t, negative, *res.LastTime)
}

func TestRecordCompletion_Errors(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.RecordCompletion(context.Background(), "", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.RecordCompletion(context.Background(), "nobody", nil)
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StepUpdateCompletion, serr.Step)
}

func TestEndToEndScenario(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	a, err := svc.Bootstrap(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 3, a.Tickets)

	b, err := svc.Bootstrap(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 3, b.Tickets)

	for i := 0; i < 3; i++ {
		_, err := svc.ConsumeTicket(ctx, "B")
		require.NoError(t, err)
	}
	n, err := svc.Tickets(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	res, err := svc.ProcessReferral(ctx, "A", "C")
	require.NoError(t, err)
	assert.False(t, res.TicketsAwarded)
	assert.Equal(t, 3, res.ReferrerTickets)

	c, err := st.GetUser(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Tickets)

	// B, out of tickets, shares a link and gets exactly one back.
	res, err = svc.ProcessReferral(ctx, "B", "D")
	require.NoError(t, err)
	assert.True(t, res.TicketsAwarded)
	assert.Equal(t, 1, res.ReferrerTickets)
}

// barrierStore holds every GetUser until release is closed or a short timeout
// passes, so two readers can be lined up before either writes.
type barrierStore struct {
	*store.MemoryStore
	arrived chan struct{}
	release chan struct{}
}

func (b *barrierStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	b.arrived <- struct{}{}
	select {
	case <-b.release:
	case <-time.After(2 * time.Second):
	}
	return b.MemoryStore.GetUser(ctx, id)
}

func consumeConcurrently(t *testing.T, guard TicketGuard, waitForBoth bool) []error {
	t.Helper()
	bs := &barrierStore{
		MemoryStore: store.NewMemoryStore(),
		arrived:     make(chan struct{}, 2),
		release:     make(chan struct{}),
	}
	_, err := bs.MemoryStore.CreateUser(context.Background(), "u", 1, false)
	require.NoError(t, err)
	svc := NewTicketService(bs, guard)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ConsumeTicket(context.Background(), "u")
		}(i)
	}

	<-bs.arrived
	if waitForBoth {
		<-bs.arrived
	} else {
		select {
		case <-bs.arrived:
			t.Error("second reader got past the guard while the first held it")
		case <-time.After(50 * time.Millisecond):
		}
	}
	close(bs.release)
	wg.Wait()
	return errs
}

func TestConsumeTicket_NoopGuardLosesUpdate(t *testing.T) {
	errs := consumeConcurrently(t, NoopGuard{}, true)

	// One ticket, two successful consumptions: the documented lost update.
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
}

func TestConsumeTicket_KeyedGuardSerializes(t *testing.T) {
	errs := consumeConcurrently(t, NewKeyedGuard(), false)

	var ok, insufficient int
	for _, err := range errs {
		var noTickets *InsufficientTicketsError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &noTickets):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
}
