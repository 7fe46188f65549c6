package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardType 매장이 설정한 보상 방식
type RewardType string

const (
	RewardTypeCoupon  RewardType = "coupon"
	RewardTypeLottery RewardType = "lottery"
	RewardTypeNone    RewardType = "none"
)

// DiscountType 쿠폰 할인 방식
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeAmount  DiscountType = "amount"
	DiscountTypeFreebie DiscountType = "freebie"
)

// Company 매장(가맹점) 모델
// 리뷰 플로우에서는 읽기 전용이며 cmd/seed 로 등록된다.
type Company struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name            string `gorm:"type:varchar(200);not null" json:"name"`
	GoogleReviewURL string `gorm:"type:text" json:"google_review_url"`

	// 보상 정책
	CouponType      RewardType   `gorm:"type:varchar(20);not null;default:'none';index" json:"coupon_type"`
	DiscountType    DiscountType `gorm:"type:varchar(20)" json:"discount_type,omitempty"`
	DiscountValue   float64      `gorm:"default:0" json:"discount_value"`
	CouponValidDays int          `gorm:"default:30" json:"coupon_valid_days"`
	LotteryPrize    string       `gorm:"type:text" json:"lottery_prize,omitempty"`

	// 알림 설정
	NotifyThankYou       bool   `json:"notify_thank_you"`
	NotifyCoupon         bool   `json:"notify_coupon"`
	NotifyGoogleRedirect bool   `json:"notify_google_redirect"`
	NotifySMS            bool   `json:"notify_sms"`
	NotifyMerchant       bool   `json:"notify_merchant"`
	NotificationEmail    string `gorm:"type:varchar(255)" json:"notification_email,omitempty"`

	// 실시간 피드 접속 토큰
	FeedToken string `gorm:"type:varchar(64)" json:"-"`
}

func (Company) TableName() string {
	return "companies"
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CouponType == "" {
		c.CouponType = RewardTypeNone
	}
	return nil
}
