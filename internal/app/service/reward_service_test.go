package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"gorm.io/gorm"
)

func setupRewardTest(t *testing.T) (RewardService, *gorm.DB) {
	testDB := setupTestDB(t)
	rewards := NewRewardService(
		NewCouponGenerator(repository.NewCouponRepository(testDB)),
		repository.NewLotteryRepository(testDB),
	)
	return rewards, testDB
}

func reviewWithContact(id, email, phone string) *model.Review {
	return &model.Review{
		ID:        id,
		CompanyID: "c1",
		Rating:    2,
		FlowType:  model.FlowTypeLowRating,
		Email:     optionalString(email),
		Phone:     optionalString(phone),
	}
}

func TestRewardService_LotteryIdempotent(t *testing.T) {
	rewards, testDB := setupRewardTest(t)
	ctx := context.Background()
	policy := &Policy{CouponType: model.RewardTypeLottery}

	first, err := rewards.IssueReward(ctx, reviewWithContact("r1", "a@b.com", ""), policy)
	require.NoError(t, err)
	require.NotNil(t, first.LotteryEntry)

	second, err := rewards.IssueReward(ctx, reviewWithContact("r1", "new@b.com", "+821012345678"), policy)
	require.NoError(t, err)
	assert.Equal(t, first.LotteryEntry.ID, second.LotteryEntry.ID)

	var entries []model.LotteryEntry
	require.NoError(t, testDB.Where("review_id = ?", "r1").Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "new@b.com", *entries[0].Email)
	assert.Equal(t, "+821012345678", *entries[0].Phone)
	assert.False(t, entries[0].IsWinner)
}

func TestRewardService_CouponIdempotentAndSingleType(t *testing.T) {
	rewards, testDB := setupRewardTest(t)
	ctx := context.Background()
	company := &model.Company{ID: "c1", DiscountType: model.DiscountTypeAmount, DiscountValue: 3000, CouponValidDays: 14}
	policy := &Policy{CouponType: model.RewardTypeCoupon, Company: company}

	first, err := rewards.IssueReward(ctx, reviewWithContact("r1", "a@b.com", ""), policy)
	require.NoError(t, err)
	require.NotNil(t, first.Coupon)
	assert.Regexp(t, `^RV-[0-9A-F]{8}$`, first.Coupon.Code)
	assert.NotNil(t, first.Coupon.ExpiresAt)
	assert.Equal(t, 3000.0, first.Coupon.DiscountValue)

	second, err := rewards.IssueReward(ctx, reviewWithContact("r1", "", "+821012345678"), policy)
	require.NoError(t, err)
	assert.Equal(t, first.Coupon.Code, second.Coupon.Code)

	var coupons, entries int64
	testDB.Model(&model.Coupon{}).Where("review_id = ?", "r1").Count(&coupons)
	testDB.Model(&model.LotteryEntry{}).Where("review_id = ?", "r1").Count(&entries)
	assert.Equal(t, int64(1), coupons)
	assert.Equal(t, int64(0), entries)
}

func TestRewardService_SkipsWithoutContactOrPolicy(t *testing.T) {
	rewards, testDB := setupRewardTest(t)
	ctx := context.Background()

	result, err := rewards.IssueReward(ctx, reviewWithContact("r1", "", ""), &Policy{CouponType: model.RewardTypeCoupon})
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = rewards.IssueReward(ctx, reviewWithContact("r1", "a@b.com", ""), &Policy{CouponType: model.RewardTypeNone})
	require.NoError(t, err)
	assert.Nil(t, result)

	var count int64
	testDB.Model(&model.Coupon{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

// staleLotteryRepo hides existing entries from the first lookup to simulate a lost race.
type staleLotteryRepo struct {
	repository.LotteryRepository
	mu     sync.Mutex
	hidden bool
}

func (r *staleLotteryRepo) FindByReviewID(ctx context.Context, reviewID string) (*model.LotteryEntry, error) {
	r.mu.Lock()
	hide := !r.hidden
	r.hidden = true
	r.mu.Unlock()
	if hide {
		return nil, gorm.ErrRecordNotFound
	}
	return r.LotteryRepository.FindByReviewID(ctx, reviewID)
}

func TestRewardService_LotteryDuplicateKeyBecomesUpdate(t *testing.T) {
	testDB := setupTestDB(t)
	lotteryRepo := repository.NewLotteryRepository(testDB)
	ctx := context.Background()

	winner := &model.LotteryEntry{ReviewID: "r1", CompanyID: "c1"}
	require.NoError(t, lotteryRepo.Create(ctx, winner))

	rewards := NewRewardService(nil, &staleLotteryRepo{LotteryRepository: lotteryRepo})
	result, err := rewards.IssueReward(ctx, reviewWithContact("r1", "late@b.com", ""), &Policy{CouponType: model.RewardTypeLottery})
	require.NoError(t, err)
	assert.Equal(t, winner.ID, result.LotteryEntry.ID)

	var entries []model.LotteryEntry
	require.NoError(t, testDB.Where("review_id = ?", "r1").Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "late@b.com", *entries[0].Email)
}

func TestRewardService_WinnerKeepsEntryDate(t *testing.T) {
	testDB := setupTestDB(t)
	lotteryRepo := repository.NewLotteryRepository(testDB)
	rewards := NewRewardService(nil, lotteryRepo)
	ctx := context.Background()

	entryDate := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)
	entry := &model.LotteryEntry{ReviewID: "r1", CompanyID: "c1", EntryDate: entryDate}
	require.NoError(t, lotteryRepo.Create(ctx, entry))
	require.NoError(t, lotteryRepo.MarkWinner(ctx, entry.ID, time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)))

	// 당첨 후 연락처가 다시 들어와도 응모일은 그대로
	result, err := rewards.IssueReward(ctx, reviewWithContact("r1", "winner@b.com", ""), &Policy{CouponType: model.RewardTypeLottery})
	require.NoError(t, err)
	assert.WithinDuration(t, entryDate, result.LotteryEntry.EntryDate, time.Second)

	stored, err := lotteryRepo.FindByReviewID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "winner@b.com", *stored.Email)
	assert.WithinDuration(t, entryDate, stored.EntryDate, time.Second)

	from, to := PreviousMonth(time.Date(2026, time.November, 1, 9, 0, 0, 0, time.UTC))
	hasWinner, err := lotteryRepo.HasWinner(ctx, "c1", from, to)
	require.NoError(t, err)
	assert.False(t, hasWinner)
}
