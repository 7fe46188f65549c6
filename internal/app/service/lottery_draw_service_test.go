package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
)

func TestPreviousMonth(t *testing.T) {
	from, to := PreviousMonth(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestLotteryDrawService_DrawWinners(t *testing.T) {
	testDB := setupTestDB(t)
	ctx := context.Background()

	lotteryCompany := createCompany(t, testDB, model.RewardTypeLottery)
	couponCompany := createCompany(t, testDB, model.RewardTypeCoupon)

	lotteryRepo := repository.NewLotteryRepository(testDB)
	lastMonth := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	for _, e := range []*model.LotteryEntry{
		{ReviewID: "r1", CompanyID: lotteryCompany.ID, Email: optionalString("one@b.com"), EntryDate: lastMonth},
		{ReviewID: "r2", CompanyID: lotteryCompany.ID, Email: optionalString("two@b.com"), EntryDate: lastMonth.Add(time.Hour)},
		{ReviewID: "r3", CompanyID: lotteryCompany.ID, Email: optionalString("late@b.com"), EntryDate: time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)},
		{ReviewID: "r4", CompanyID: couponCompany.ID, Email: optionalString("other@b.com"), EntryDate: lastMonth},
	} {
		require.NoError(t, lotteryRepo.Create(ctx, e))
	}

	sender := &fakeSender{}
	draws := NewLotteryDrawService(repository.NewCompanyRepository(testDB), lotteryRepo, newTestNotifier(t, sender, nil)).(*lotteryDrawService)
	draws.pick = func(n int) int { return n - 1 }

	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	results, err := draws.DrawWinners(ctx, now)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, lotteryCompany.ID, results[0].CompanyID)
	assert.Equal(t, "r2", results[0].ReviewID)

	var winners []model.LotteryEntry
	require.NoError(t, testDB.Where("is_winner = ?", true).Find(&winners).Error)
	require.Len(t, winners, 1)
	assert.Equal(t, "r2", winners[0].ReviewID)
	assert.NotNil(t, winners[0].WonAt)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "two@b.com", msgs[0].To)

	// 같은 달 재실행 시 추가 당첨자 없음
	results, err = draws.DrawWinners(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, results)
}
