package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"gorm.io/gorm"
)

// RewardResult 발급된 보상 (정책에 따라 하나만 채워짐)
type RewardResult struct {
	Coupon       *model.Coupon
	LotteryEntry *model.LotteryEntry
}

// RewardService 리뷰 보상 발급 인터페이스
type RewardService interface {
	// IssueReward is idempotent per review id. A nil result means the policy grants nothing.
	IssueReward(ctx context.Context, review *model.Review, policy *Policy) (*RewardResult, error)
}

type rewardService struct {
	coupons     CouponGenerator
	lotteryRepo repository.LotteryRepository
	now         func() time.Time
}

// NewRewardService 보상 서비스 생성자
func NewRewardService(coupons CouponGenerator, lotteryRepo repository.LotteryRepository) RewardService {
	return &rewardService{
		coupons:     coupons,
		lotteryRepo: lotteryRepo,
		now:         time.Now,
	}
}

func (s *rewardService) IssueReward(ctx context.Context, review *model.Review, policy *Policy) (*RewardResult, error) {
	if policy == nil || policy.CouponType == model.RewardTypeNone {
		return nil, nil
	}
	if !review.HasContact() {
		logger.Debug("Skipping reward for review without contact", map[string]interface{}{
			"review_id": review.ID,
		})
		return nil, nil
	}

	switch policy.CouponType {
	case model.RewardTypeCoupon:
		coupon, err := s.issueCoupon(ctx, review, policy)
		if err != nil {
			return nil, s.fail(review, policy, err)
		}
		return &RewardResult{Coupon: coupon}, nil

	case model.RewardTypeLottery:
		entry, err := s.enterLottery(ctx, review)
		if err != nil {
			return nil, s.fail(review, policy, err)
		}
		return &RewardResult{LotteryEntry: entry}, nil

	default:
		return nil, s.fail(review, policy, fmt.Errorf("unknown coupon type %q", policy.CouponType))
	}
}

func (s *rewardService) issueCoupon(ctx context.Context, review *model.Review, policy *Policy) (*model.Coupon, error) {
	req := CouponRequest{
		ReviewID:  review.ID,
		CompanyID: review.CompanyID,
		Email:     review.ContactEmail(),
		Phone:     review.ContactPhone(),
	}
	if policy.Company != nil {
		req.DiscountType = policy.Company.DiscountType
		req.DiscountValue = policy.Company.DiscountValue
		req.ValidDays = policy.Company.CouponValidDays
	}
	return s.coupons.Generate(ctx, req)
}

// enterLottery 응모 조회 후 갱신 또는 생성
func (s *rewardService) enterLottery(ctx context.Context, review *model.Review) (*model.LotteryEntry, error) {
	now := s.now()

	existing, err := s.lotteryRepo.FindByReviewID(ctx, review.ID)
	if err == nil {
		return s.refreshEntry(ctx, existing, review, now)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry := &model.LotteryEntry{
		ReviewID:  review.ID,
		CompanyID: review.CompanyID,
		Email:     review.Email,
		Phone:     review.Phone,
		EntryDate: now,
	}
	err = s.lotteryRepo.Create(ctx, entry)
	if err == nil {
		logger.Info("Lottery entry created", map[string]interface{}{
			"review_id":  review.ID,
			"company_id": review.CompanyID,
		})
		return entry, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}

	// 동시 요청이 먼저 응모를 만들었음 - 유니크 인덱스 위반을 갱신으로 처리
	existing, err = s.lotteryRepo.FindByReviewID(ctx, review.ID)
	if err != nil {
		return nil, err
	}
	return s.refreshEntry(ctx, existing, review, now)
}

func (s *rewardService) refreshEntry(ctx context.Context, entry *model.LotteryEntry, review *model.Review, now time.Time) (*model.LotteryEntry, error) {
	// 당첨된 응모는 응모일을 유지해야 다음 달 추첨 구간에 섞이지 않는다
	entryDate := now
	if entry.IsWinner {
		entryDate = entry.EntryDate
	}
	if err := s.lotteryRepo.UpdateContact(ctx, entry.ID, review.Email, review.Phone, entryDate); err != nil {
		return nil, err
	}
	entry.Email = review.Email
	entry.Phone = review.Phone
	entry.EntryDate = entryDate

	logger.Info("Lottery entry refreshed", map[string]interface{}{
		"review_id": review.ID,
		"entry_id":  entry.ID,
	})
	return entry, nil
}

func (s *rewardService) fail(review *model.Review, policy *Policy, err error) error {
	logger.Warn("Reward issuance failed", map[string]interface{}{
		"review_id":   review.ID,
		"company_id":  review.CompanyID,
		"coupon_type": policy.CouponType,
		"error":       err.Error(),
	})
	return fmt.Errorf("%w: %v", ErrRewardIssuance, err)
}
