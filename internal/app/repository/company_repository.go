package repository

import (
	"context"
	"errors"

	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"gorm.io/gorm"
)

type CompanyRepository interface {
	FindByID(ctx context.Context, id string) (*model.Company, error)
	FindByName(ctx context.Context, name string) (*model.Company, error)
	FindByCouponType(ctx context.Context, couponType model.RewardType) ([]model.Company, error)
	Save(ctx context.Context, company *model.Company) error
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) FindByID(ctx context.Context, id string) (*model.Company, error) {
	logger.Debug("Finding company by ID in database", map[string]interface{}{
		"company_id": id,
	})

	var company model.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find company by ID in database", err, map[string]interface{}{
				"company_id": id,
			})
		}
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) FindByName(ctx context.Context, name string) (*model.Company, error) {
	var company model.Company
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) FindByCouponType(ctx context.Context, couponType model.RewardType) ([]model.Company, error) {
	var companies []model.Company
	err := r.db.WithContext(ctx).
		Where("coupon_type = ?", couponType).
		Order("created_at ASC").
		Find(&companies).Error
	if err != nil {
		logger.Error("Failed to find companies by coupon type in database", err, map[string]interface{}{
			"coupon_type": couponType,
		})
		return nil, err
	}

	logger.Debug("Companies found by coupon type in database", map[string]interface{}{
		"coupon_type": couponType,
		"count":       len(companies),
	})
	return companies, nil
}

// Save 신규면 생성, 기존이면 전체 필드 갱신
func (r *companyRepository) Save(ctx context.Context, company *model.Company) error {
	var err error
	if company.ID == "" {
		err = r.db.WithContext(ctx).Create(company).Error
	} else {
		err = r.db.WithContext(ctx).Save(company).Error
	}
	if err != nil {
		logger.Error("Failed to save company in database", err, map[string]interface{}{
			"name": company.Name,
		})
		return err
	}
	return nil
}
