package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LotteryEntry 리뷰 보상 추첨 응모 (리뷰당 최대 1개)
type LotteryEntry struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReviewID  string `gorm:"type:varchar(36);not null;uniqueIndex" json:"review_id"`
	CompanyID string `gorm:"type:varchar(36);not null;index" json:"company_id"`

	Email     *string   `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone     *string   `gorm:"type:varchar(32)" json:"phone,omitempty"`
	EntryDate time.Time `gorm:"not null;index" json:"entry_date"`

	IsWinner     bool       `gorm:"default:false;index" json:"is_winner"`
	WonAt        *time.Time `json:"won_at,omitempty"`
	PrizeClaimed bool       `gorm:"default:false" json:"prize_claimed"`
}

func (LotteryEntry) TableName() string {
	return "lottery_entries"
}

func (e *LotteryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
