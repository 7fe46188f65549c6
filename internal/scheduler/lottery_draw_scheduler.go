package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tagreview/tagreview-backend/internal/app/service"
	"github.com/tagreview/tagreview-backend/pkg/logger"
)

const drawTimeout = 10 * time.Minute

// LotteryDrawScheduler 월간 추첨 스케줄러
type LotteryDrawScheduler struct {
	cron        *cron.Cron
	drawService service.LotteryDrawService
	schedule    string
}

// NewLotteryDrawScheduler 추첨 스케줄러 생성
// schedule: 5필드 cron 표현식 (기본 "0 9 1 * *" = 매월 1일 9시)
func NewLotteryDrawScheduler(drawService service.LotteryDrawService, schedule string) *LotteryDrawScheduler {
	return &LotteryDrawScheduler{
		cron:        cron.New(),
		drawService: drawService,
		schedule:    schedule,
	}
}

// Start 스케줄러 시작
func (s *LotteryDrawScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		logger.Error("Failed to add cron job for lottery draw", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Lottery draw scheduler started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

func (s *LotteryDrawScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), drawTimeout)
	defer cancel()

	logger.Info("Starting scheduled lottery draw")

	results, err := s.drawService.DrawWinners(ctx, time.Now())
	if err != nil {
		logger.Error("Lottery draw failed", err)
		return
	}

	logger.Info("Lottery draw finished", map[string]interface{}{
		"winners": len(results),
	})
}

// Stop 스케줄러 중지. 실행 중인 추첨이 끝날 때까지 기다린다.
func (s *LotteryDrawScheduler) Stop() {
	logger.Info("Stopping lottery draw scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Lottery draw scheduler stopped")
}
