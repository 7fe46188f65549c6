package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"gorm.io/gorm"
)

type LotteryRepository interface {
	Create(ctx context.Context, entry *model.LotteryEntry) error
	FindByReviewID(ctx context.Context, reviewID string) (*model.LotteryEntry, error)
	UpdateContact(ctx context.Context, id string, email, phone *string, entryDate time.Time) error
	FindCandidates(ctx context.Context, companyID string, from, to time.Time) ([]model.LotteryEntry, error)
	HasWinner(ctx context.Context, companyID string, from, to time.Time) (bool, error)
	MarkWinner(ctx context.Context, id string, wonAt time.Time) error
}

type lotteryRepository struct {
	db *gorm.DB
}

func NewLotteryRepository(db *gorm.DB) LotteryRepository {
	return &lotteryRepository{db: db}
}

func (r *lotteryRepository) Create(ctx context.Context, entry *model.LotteryEntry) error {
	logger.Debug("Creating lottery entry in database", map[string]interface{}{
		"review_id":  entry.ReviewID,
		"company_id": entry.CompanyID,
	})

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Warn("Lottery entry already exists for review", map[string]interface{}{
				"review_id": entry.ReviewID,
			})
			return err
		}
		logger.Error("Failed to create lottery entry in database", err, map[string]interface{}{
			"review_id": entry.ReviewID,
		})
		return err
	}
	return nil
}

func (r *lotteryRepository) FindByReviewID(ctx context.Context, reviewID string) (*model.LotteryEntry, error) {
	var entry model.LotteryEntry
	if err := r.db.WithContext(ctx).Where("review_id = ?", reviewID).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *lotteryRepository) UpdateContact(ctx context.Context, id string, email, phone *string, entryDate time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.LotteryEntry{}).Where("id = ?", id).Updates(map[string]interface{}{
		"email":      email,
		"phone":      phone,
		"entry_date": entryDate,
	}).Error
	if err != nil {
		logger.Error("Failed to update lottery entry in database", err, map[string]interface{}{
			"entry_id": id,
		})
	}
	return err
}

// FindCandidates 기간 내 당첨되지 않은 응모 목록 [from, to)
func (r *lotteryRepository) FindCandidates(ctx context.Context, companyID string, from, to time.Time) ([]model.LotteryEntry, error) {
	var entries []model.LotteryEntry
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND entry_date >= ? AND entry_date < ? AND is_winner = ?", companyID, from, to, false).
		Order("entry_date ASC").
		Find(&entries).Error
	if err != nil {
		logger.Error("Failed to find lottery candidates in database", err, map[string]interface{}{
			"company_id": companyID,
		})
		return nil, err
	}
	return entries, nil
}

func (r *lotteryRepository) HasWinner(ctx context.Context, companyID string, from, to time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LotteryEntry{}).
		Where("company_id = ? AND entry_date >= ? AND entry_date < ? AND is_winner = ?", companyID, from, to, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *lotteryRepository) MarkWinner(ctx context.Context, id string, wonAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.LotteryEntry{}).
		Where("id = ? AND is_winner = ?", id, false).
		Updates(map[string]interface{}{
			"is_winner": true,
			"won_at":    wonAt,
		})
	if result.Error != nil {
		logger.Error("Failed to mark lottery winner in database", result.Error, map[string]interface{}{
			"entry_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
