package repository

import (
	"context"
	"errors"

	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"gorm.io/gorm"
)

type CouponRepository interface {
	Create(ctx context.Context, coupon *model.Coupon) error
	FindByReviewID(ctx context.Context, reviewID string) (*model.Coupon, error)
	UpdateContact(ctx context.Context, id string, email, phone *string) error
}

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	logger.Debug("Creating coupon in database", map[string]interface{}{
		"review_id":  coupon.ReviewID,
		"company_id": coupon.CompanyID,
	})

	if err := r.db.WithContext(ctx).Create(coupon).Error; err != nil {
		// 중복(ErrDuplicatedKey)은 호출자가 처리하므로 경고로만 남긴다
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Warn("Coupon already exists for review", map[string]interface{}{
				"review_id": coupon.ReviewID,
			})
			return err
		}
		logger.Error("Failed to create coupon in database", err, map[string]interface{}{
			"review_id": coupon.ReviewID,
		})
		return err
	}

	logger.Debug("Coupon created in database", map[string]interface{}{
		"coupon_id": coupon.ID,
		"review_id": coupon.ReviewID,
	})
	return nil
}

func (r *couponRepository) FindByReviewID(ctx context.Context, reviewID string) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := r.db.WithContext(ctx).Where("review_id = ?", reviewID).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) UpdateContact(ctx context.Context, id string, email, phone *string) error {
	err := r.db.WithContext(ctx).Model(&model.Coupon{}).Where("id = ?", id).Updates(map[string]interface{}{
		"email": email,
		"phone": phone,
	}).Error
	if err != nil {
		logger.Error("Failed to update coupon contact in database", err, map[string]interface{}{
			"coupon_id": id,
		})
	}
	return err
}
