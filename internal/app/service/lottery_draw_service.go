package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"gorm.io/gorm"
)

// DrawResult 매장별 추첨 결과
type DrawResult struct {
	CompanyID string
	EntryID   string
	ReviewID  string
}

// LotteryDrawService 월간 리뷰 이벤트 추첨
type LotteryDrawService interface {
	// DrawWinners picks one winner per lottery company from the previous calendar month.
	DrawWinners(ctx context.Context, now time.Time) ([]DrawResult, error)
}

type lotteryDrawService struct {
	companyRepo repository.CompanyRepository
	lotteryRepo repository.LotteryRepository
	notifier    NotificationService
	pick        func(n int) int
}

// NewLotteryDrawService 추첨 서비스 생성자
func NewLotteryDrawService(
	companyRepo repository.CompanyRepository,
	lotteryRepo repository.LotteryRepository,
	notifier NotificationService,
) LotteryDrawService {
	return &lotteryDrawService{
		companyRepo: companyRepo,
		lotteryRepo: lotteryRepo,
		notifier:    notifier,
		pick:        rand.IntN,
	}
}

// PreviousMonth returns [first day of last month, first day of this month) in now's location.
func PreviousMonth(now time.Time) (time.Time, time.Time) {
	to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return to.AddDate(0, -1, 0), to
}

func (s *lotteryDrawService) DrawWinners(ctx context.Context, now time.Time) ([]DrawResult, error) {
	companies, err := s.companyRepo.FindByCouponType(ctx, model.RewardTypeLottery)
	if err != nil {
		return nil, storeError("find lottery companies", err)
	}

	from, to := PreviousMonth(now)
	logger.Info("Starting lottery draw", map[string]interface{}{
		"companies": len(companies),
		"from":      from,
		"to":        to,
	})

	var results []DrawResult
	for i := range companies {
		company := &companies[i]
		result, err := s.drawCompany(ctx, company, from, to, now)
		if err != nil {
			// 한 매장 실패가 다른 매장 추첨을 막지 않는다
			logger.Error("Lottery draw failed for company", err, map[string]interface{}{
				"company_id": company.ID,
			})
			continue
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	logger.Info("Lottery draw finished", map[string]interface{}{
		"winners": len(results),
	})
	return results, nil
}

func (s *lotteryDrawService) drawCompany(ctx context.Context, company *model.Company, from, to, now time.Time) (*DrawResult, error) {
	hasWinner, err := s.lotteryRepo.HasWinner(ctx, company.ID, from, to)
	if err != nil {
		return nil, err
	}
	if hasWinner {
		return nil, nil
	}

	candidates, err := s.lotteryRepo.FindCandidates(ctx, company.ID, from, to)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	winner := candidates[s.pick(len(candidates))]
	if err := s.lotteryRepo.MarkWinner(ctx, winner.ID, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 다른 인스턴스가 먼저 추첨함
			return nil, nil
		}
		return nil, err
	}
	winner.IsWinner = true
	winner.WonAt = &now

	logger.Info("Lottery winner drawn", map[string]interface{}{
		"company_id": company.ID,
		"entry_id":   winner.ID,
		"candidates": len(candidates),
	})

	if err := s.notifier.NotifyLotteryWinner(ctx, &winner, company); err != nil {
		logger.Warn("Lottery winner notification failed", map[string]interface{}{
			"entry_id": winner.ID,
			"error":    err.Error(),
		})
	}

	return &DrawResult{CompanyID: company.ID, EntryID: winner.ID, ReviewID: winner.ReviewID}, nil
}
