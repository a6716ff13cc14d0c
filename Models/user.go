package Models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Permission levels checked by middleware.Verify.
const (
	PermissionStaff   = 1
	PermissionManager = 3
	PermissionAdmin   = 4
)

type User struct {
	gorm.Model
	Name       string `json:"name" gorm:"size:255;not null"`
	Email      string `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Password   []byte `json:"-"`
	Permission int    `json:"permission" gorm:"not null;default:1"`
	Department string `json:"department" gorm:"size:100;index"`
}

// Activity is a logged sales or operations action worth leaderboard points.
type Activity struct {
	gorm.Model
	UserID     uint           `json:"user_id" gorm:"not null;index"`
	UserName   string         `json:"user_name" gorm:"size:255"`
	Kind       string         `json:"kind" gorm:"size:40;not null;index"`
	OccurredAt time.Time      `json:"occurred_at" gorm:"not null;index"`
	Metadata   datatypes.JSON `json:"metadata"`
}
