package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"typing-challenge/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database named by driver ("postgres" or "sqlite").
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the users and referrals tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GormStore implements Store on top of a gorm connection.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, id string, tickets int, isCompleted bool) (*models.User, error) {
	user := models.User{
		ID:          id,
		Tickets:     tickets,
		IsCompleted: isCompleted,
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	if upd.empty() {
		return s.GetUser(ctx, id)
	}

	fields := map[string]any{}
	if upd.Tickets != nil {
		fields["tickets"] = *upd.Tickets
	}
	if upd.IsCompleted != nil {
		fields["is_completed"] = *upd.IsCompleted
	}
	if upd.LastTime != nil {
		fields["last_time"] = *upd.LastTime
	}

	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *GormStore) GetReferral(ctx context.Context, referrerID, referredID string) (*models.Referral, error) {
	var ref models.Referral
	err := s.DB.WithContext(ctx).
		Where("referrer_id = ? AND referred_id = ?", referrerID, referredID).
		First(&ref).Error
	if err != nil {
		return nil, translate(err)
	}
	return &ref, nil
}

func (s *GormStore) CreateReferral(ctx context.Context, referrerID, referredID string) (*models.Referral, error) {
	ref := models.Referral{
		ReferrerID: referrerID,
		ReferredID: referredID,
	}
	if err := s.DB.WithContext(ctx).Create(&ref).Error; err != nil {
		return nil, translate(err)
	}
	return &ref, nil
}

func (s *GormStore) CountUsers(ctx context.Context, filter UserFilter) (int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.User{})
	if filter.IsCompleted != nil {
		q = q.Where("is_completed = ?", *filter.IsCompleted)
	}
	if filter.HasTickets {
		q = q.Where("tickets > ?", 0)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func (s *GormStore) CountReferrals(ctx context.Context, filter ReferralFilter) (int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Referral{})
	if filter.ReferrerID != "" {
		q = q.Where("referrer_id = ?", filter.ReferrerID)
	}
	if filter.ReferredID != "" {
		q = q.Where("referred_id = ?", filter.ReferredID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func (s *GormStore) RecentUsers(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (s *GormStore) RecentReferrals(ctx context.Context, limit int) ([]models.Referral, error) {
	var refs []models.Referral
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&refs).Error; err != nil {
		return nil, translate(err)
	}
	return refs, nil
}

// translate maps gorm sentinel errors onto the store's own; anything else passes through.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	default:
		return err
	}
}
