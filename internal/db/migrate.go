package db

import (
	"github.com/google/uuid"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Company{},
		&model.Review{},
		&model.Coupon{},
		&model.LotteryEntry{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds a demo company so a fresh development database can serve the flow.
func Seed() error {
	return seedDemoCompany(DB)
}

func seedDemoCompany(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Company{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Companies already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	company := &model.Company{
		Name:              "데모 카페",
		GoogleReviewURL:   "https://search.google.com/local/writereview?placeid=demo",
		CouponType:        model.RewardTypeCoupon,
		DiscountType:      model.DiscountTypePercent,
		DiscountValue:     10,
		CouponValidDays:   30,
		NotifyThankYou:    true,
		NotifyCoupon:      true,
		NotifyMerchant:    true,
		NotificationEmail: "owner@example.com",
		FeedToken:         uuid.NewString(),
	}
	if err := db.Create(company).Error; err != nil {
		logger.Error("Failed to create demo company", err)
		return err
	}

	logger.Info("Demo company seeded successfully", map[string]interface{}{
		"company_id": company.ID,
	})
	return nil
}
