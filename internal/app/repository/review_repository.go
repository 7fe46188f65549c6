package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	FindByID(ctx context.Context, id string) (*model.Review, error)
	UpdateRating(ctx context.Context, id string, rating int, flowType model.FlowType) error
	UpdateFeedback(ctx context.Context, id string, issues []string, comment *string, completedAt time.Time) error
	UpdateContact(ctx context.Context, id string, email, phone *string) error
	UpdateFeedbackOptions(ctx context.Context, id string, issues []string) error
	UpdateGoogleRedirect(ctx context.Context, id string, at time.Time, redirectType model.GoogleRedirectType, steps []string) error
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	logger.Debug("Creating review in database", map[string]interface{}{
		"company_id": review.CompanyID,
		"rating":     review.Rating,
		"flow_type":  review.FlowType,
	})

	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		logger.Error("Failed to create review in database", err, map[string]interface{}{
			"company_id": review.CompanyID,
			"rating":     review.Rating,
		})
		return err
	}

	logger.Debug("Review created in database", map[string]interface{}{
		"review_id":  review.ID,
		"company_id": review.CompanyID,
	})
	return nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id string) (*model.Review, error) {
	var review model.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find review by ID in database", err, map[string]interface{}{
				"review_id": id,
			})
		}
		return nil, err
	}
	return &review, nil
}

// UpdateRating 재평가. 이전 평점에 종속된 필드를 같은 UPDATE 문에서 초기화한다.
func (r *reviewRepository) UpdateRating(ctx context.Context, id string, rating int, flowType model.FlowType) error {
	logger.Debug("Updating review rating in database", map[string]interface{}{
		"review_id": id,
		"rating":    rating,
		"flow_type": flowType,
	})

	return r.update(ctx, id, "rating", map[string]interface{}{
		"rating":                  rating,
		"flow_type":               flowType,
		"feedback_options":        datatypes.JSONSlice[string]{},
		"comment":                 nil,
		"completed_at":            nil,
		"redirected_to_google_at": nil,
		"google_redirect_type":    nil,
	})
}

func (r *reviewRepository) UpdateFeedback(ctx context.Context, id string, issues []string, comment *string, completedAt time.Time) error {
	return r.update(ctx, id, "feedback", map[string]interface{}{
		"feedback_options": datatypes.JSONSlice[string](issues),
		"comment":          comment,
		"completed_at":     completedAt,
	})
}

func (r *reviewRepository) UpdateContact(ctx context.Context, id string, email, phone *string) error {
	return r.update(ctx, id, "contact", map[string]interface{}{
		"email": email,
		"phone": phone,
	})
}

func (r *reviewRepository) UpdateFeedbackOptions(ctx context.Context, id string, issues []string) error {
	return r.update(ctx, id, "feedback_options", map[string]interface{}{
		"feedback_options": datatypes.JSONSlice[string](issues),
	})
}

func (r *reviewRepository) UpdateGoogleRedirect(ctx context.Context, id string, at time.Time, redirectType model.GoogleRedirectType, steps []string) error {
	return r.update(ctx, id, "google_redirect", map[string]interface{}{
		"redirected_to_google_at":      at,
		"google_redirect_type":         redirectType,
		"gamification_steps_completed": datatypes.JSONSlice[string](steps),
	})
}

// update applies fields in a single statement and reports a missing row as gorm.ErrRecordNotFound.
func (r *reviewRepository) update(ctx context.Context, id, op string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.Review{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		logger.Error("Failed to update review in database", result.Error, map[string]interface{}{
			"review_id": id,
			"operation": op,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		logger.Warn("Review not found for update", map[string]interface{}{
			"review_id": id,
			"operation": op,
		})
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Review updated in database", map[string]interface{}{
		"review_id": id,
		"operation": op,
	})
	return nil
}
