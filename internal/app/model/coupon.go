package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon 리뷰 보상 쿠폰 (리뷰당 최대 1개)
type Coupon struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code      string `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`
	ReviewID  string `gorm:"type:varchar(36);not null;uniqueIndex" json:"review_id"`
	CompanyID string `gorm:"type:varchar(36);not null;index" json:"company_id"`

	Email *string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone *string `gorm:"type:varchar(32)" json:"phone,omitempty"`

	DiscountType  DiscountType `gorm:"type:varchar(20)" json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	RedeemedAt    *time.Time   `json:"redeemed_at,omitempty"`
}

func (Coupon) TableName() string {
	return "coupons"
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
