package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GoogleRedirectType 구글 리뷰 페이지 이동 방식
type GoogleRedirectType string

const (
	GoogleRedirectAutomatic GoogleRedirectType = "automatic"
	GoogleRedirectManual    GoogleRedirectType = "manual"
)

// GamificationStepGoogleReview 구글 리뷰 작성 단계 식별자
const GamificationStepGoogleReview = "google_review"

// Review NFC 태그 평가 세션 하나당 생성되는 리뷰
type Review struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompanyID string   `gorm:"type:varchar(36);not null;index" json:"company_id"`
	Rating    int      `gorm:"not null" json:"rating"`
	FlowType  FlowType `gorm:"type:varchar(40);not null;index" json:"flow_type"`

	// 피드백 단계
	FeedbackOptions datatypes.JSONSlice[string] `json:"feedback_options"`
	Comment         *string                     `gorm:"type:text" json:"comment"`
	Email           *string                     `gorm:"type:varchar(255)" json:"email"`
	Phone           *string                     `gorm:"type:varchar(32)" json:"phone"`
	CompletedAt     *time.Time                  `gorm:"index" json:"completed_at"`

	// 고평점 (구글 리뷰 유도) 단계
	RedirectedToGoogleAt       *time.Time                  `json:"redirected_to_google_at"`
	GoogleRedirectType         *GoogleRedirectType         `gorm:"type:varchar(20)" json:"google_redirect_type"`
	GamificationStepsCompleted datatypes.JSONSlice[string] `json:"gamification_steps_completed"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ContactEmail 이메일 (없으면 빈 문자열)
func (r *Review) ContactEmail() string {
	if r.Email == nil {
		return ""
	}
	return *r.Email
}

// ContactPhone 전화번호 (없으면 빈 문자열)
func (r *Review) ContactPhone() string {
	if r.Phone == nil {
		return ""
	}
	return *r.Phone
}

// HasContact 연락처가 하나 이상 있는지
func (r *Review) HasContact() bool {
	return r.ContactEmail() != "" || r.ContactPhone() != ""
}

// CommentText 코멘트 (없으면 빈 문자열)
func (r *Review) CommentText() string {
	if r.Comment == nil {
		return ""
	}
	return *r.Comment
}

// HasCompletedStep 게이미피케이션 단계 완료 여부
func (r *Review) HasCompletedStep(step string) bool {
	for _, s := range r.GamificationStepsCompleted {
		if s == step {
			return true
		}
	}
	return false
}
