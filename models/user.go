package models

import (
	"time"
)

// User is one player, keyed by the opaque id the browser generated for itself.
// Nothing authenticates that id; every ticket and referral is booked against it as-is.
type User struct {
	ID          string   `gorm:"primaryKey;type:varchar(128)" json:"userId"`
	Tickets     int      `gorm:"not null" json:"tickets"`
	IsCompleted bool     `gorm:"not null" json:"isCompleted"`
	LastTime    *float64 `json:"lastTime,omitempty"` // seconds, set on completion

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
