package services

import (
	"context"
	"time"

	"typing-challenge/models"
	"typing-challenge/store"
)

// RecentLimit is how many of the newest users and referrals a snapshot carries.
const RecentLimit = 5

type Statistics struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalReferrals   int64 `json:"totalReferrals"`
	CompletedUsers   int64 `json:"completedUsers"`
	UsersWithTickets int64 `json:"usersWithTickets"`
}

type RecentData struct {
	Users     []models.User     `json:"users"`
	Referrals []models.Referral `json:"referrals"`
}

type Snapshot struct {
	Campaign   string     `json:"campaign,omitempty"`
	TakenAt    time.Time  `json:"takenAt"`
	Statistics Statistics `json:"statistics"`
	RecentData RecentData `json:"recentData"`
}

// StatsService answers read-only reporting questions. Nothing it returns
// feeds back into ticket decisions.
type StatsService struct {
	store store.Store
	now   func() time.Time
}

func NewStatsService(s store.Store) *StatsService {
	return &StatsService{store: s, now: time.Now}
}

func (s *StatsService) Statistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	var err error

	if stats.TotalUsers, err = s.store.CountUsers(ctx, store.UserFilter{}); err != nil {
		return nil, &StoreError{Step: StepStatistics, Err: err}
	}
	if stats.TotalReferrals, err = s.store.CountReferrals(ctx, store.ReferralFilter{}); err != nil {
		return nil, &StoreError{Step: StepStatistics, Err: err}
	}
	if stats.CompletedUsers, err = s.store.CountUsers(ctx, store.UserFilter{IsCompleted: store.Bool(true)}); err != nil {
		return nil, &StoreError{Step: StepStatistics, Err: err}
	}
	if stats.UsersWithTickets, err = s.store.CountUsers(ctx, store.UserFilter{HasTickets: true}); err != nil {
		return nil, &StoreError{Step: StepStatistics, Err: err}
	}
	return &stats, nil
}

// Snapshot combines the counters with the newest rows of both tables.
func (s *StatsService) Snapshot(ctx context.Context) (*Snapshot, error) {
	stats, err := s.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.store.RecentUsers(ctx, RecentLimit)
	if err != nil {
		return nil, &StoreError{Step: StepStatistics, Err: err}
	}
	refs, err := s.store.RecentReferrals(ctx, RecentLimit)
	if err != nil {
		return nil, &StoreError{Step: StepStatistics, Err: err}
	}
	if users == nil {
		users = []models.User{}
	}
	if refs == nil {
		refs = []models.Referral{}
	}

	return &Snapshot{
		TakenAt:    s.now().UTC(),
		Statistics: *stats,
		RecentData: RecentData{Users: users, Referrals: refs},
	}, nil
}

// ReferralCount is how many people userID has referred.
func (s *StatsService) ReferralCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, &ValidationError{Field: "userId", Reason: "userId is required"}
	}
	n, err := s.store.CountReferrals(ctx, store.ReferralFilter{ReferrerID: userID})
	if err != nil {
		return 0, &StoreError{Step: StepStatistics, Err: err}
	}
	return n, nil
}
