package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Referral records that ReferrerID invited ReferredID. Rows are append-only;
// the (referrer, referred) pair is unique.
type Referral struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ReferrerID string    `gorm:"not null;index;uniqueIndex:idx_referrals_pair,priority:1" json:"referrerId"`
	ReferredID string    `gorm:"not null;uniqueIndex:idx_referrals_pair,priority:2" json:"referredId"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

// BeforeCreate assigns the id in Go so the schema does not depend on gen_random_uuid().
func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// AllModels lists every table owned by this service, in migration order.
func AllModels() []any {
	return []any{&User{}, &Referral{}}
}
