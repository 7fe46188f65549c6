package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	couponCodePrefix     = "RV-"
	couponCodeLength     = 8
	couponCreateAttempts = 3
)

// CouponRequest 쿠폰 발급 요청
type CouponRequest struct {
	ReviewID      string
	CompanyID     string
	Email         string
	Phone         string
	DiscountType  model.DiscountType
	DiscountValue float64
	ValidDays     int
}

// CouponGenerator 쿠폰 발급기. 같은 ReviewID로 여러 번 호출해도 쿠폰은 하나만 존재한다.
type CouponGenerator interface {
	Generate(ctx context.Context, req CouponRequest) (*model.Coupon, error)
}

type couponGenerator struct {
	couponRepo repository.CouponRepository
	now        func() time.Time
}

// NewCouponGenerator 쿠폰 발급기 생성자
func NewCouponGenerator(couponRepo repository.CouponRepository) CouponGenerator {
	return &couponGenerator{couponRepo: couponRepo, now: time.Now}
}

func (g *couponGenerator) Generate(ctx context.Context, req CouponRequest) (*model.Coupon, error) {
	existing, err := g.couponRepo.FindByReviewID(ctx, req.ReviewID)
	if err == nil {
		return g.refresh(ctx, existing, req)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for attempt := 1; attempt <= couponCreateAttempts; attempt++ {
		coupon := &model.Coupon{
			Code:          newCouponCode(),
			ReviewID:      req.ReviewID,
			CompanyID:     req.CompanyID,
			Email:         optionalString(req.Email),
			Phone:         optionalString(req.Phone),
			DiscountType:  req.DiscountType,
			DiscountValue: req.DiscountValue,
		}
		if req.ValidDays > 0 {
			expiresAt := g.now().AddDate(0, 0, req.ValidDays)
			coupon.ExpiresAt = &expiresAt
		}

		err = g.couponRepo.Create(ctx, coupon)
		if err == nil {
			logger.Info("Coupon issued", map[string]interface{}{
				"review_id":  req.ReviewID,
				"company_id": req.CompanyID,
				"code":       coupon.Code,
			})
			return coupon, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}

		// 같은 리뷰로 다른 요청이 먼저 발급했거나 코드가 충돌함
		existing, findErr := g.couponRepo.FindByReviewID(ctx, req.ReviewID)
		if findErr == nil {
			return g.refresh(ctx, existing, req)
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, findErr
		}
	}
	return nil, err
}

func (g *couponGenerator) refresh(ctx context.Context, coupon *model.Coupon, req CouponRequest) (*model.Coupon, error) {
	email, phone := optionalString(req.Email), optionalString(req.Phone)
	if err := g.couponRepo.UpdateContact(ctx, coupon.ID, email, phone); err != nil {
		return nil, err
	}
	coupon.Email = email
	coupon.Phone = phone

	logger.Info("Coupon already issued for review, contact refreshed", map[string]interface{}{
		"review_id": req.ReviewID,
		"code":      coupon.Code,
	})
	return coupon, nil
}

func newCouponCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return couponCodePrefix + strings.ToUpper(raw[:couponCodeLength])
}
