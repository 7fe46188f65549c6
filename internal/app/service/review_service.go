package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tagreview/tagreview-backend/config"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultStoreTimeout          = 30 * time.Second
	defaultContactUpdateAttempts = 2
)

// FeedbackInput 피드백 폼 제출 내용
type FeedbackInput struct {
	Issues  []string
	Comment string
	Email   string
	Phone   string
}

// ReviewService 리뷰 레코드 관리 서비스 인터페이스
type ReviewService interface {
	// SubmitRating creates the review, or re-rates an existing one and clears its dependent fields.
	SubmitRating(ctx context.Context, companyID string, rating int, existingReviewID string) (string, error)
	// SubmitFeedback reports false instead of failing; the caller keeps the form open.
	SubmitFeedback(ctx context.Context, reviewID string, input FeedbackInput) bool
	SaveContact(ctx context.Context, reviewID, email, phone string) bool
	// ToggleIssue returns the new local set immediately and persists it in the background.
	ToggleIssue(ctx context.Context, reviewID string, current []string, issue string) []string
	MarkGoogleRedirect(ctx context.Context, reviewID string, redirectType model.GoogleRedirectType) (*model.Review, error)
	GetReview(ctx context.Context, id string) (*model.Review, error)
	// Wait blocks until background issue writes finish.
	Wait()
}

type reviewService struct {
	reviewRepo      repository.ReviewRepository
	storeTimeout    time.Duration
	contactAttempts int
	pending         sync.WaitGroup

	lanesMu sync.Mutex
	lanes   map[string]*issueLane
}

// issueLane orders writes to one review's issue list.
// Every toggle and every fencing write (re-rate, feedback) takes the next seq;
// a toggle whose seq is not newer than applied is dropped.
type issueLane struct {
	mu      sync.Mutex
	seq     uint64
	applied uint64
	refs    int
}

// NewReviewService 리뷰 서비스 생성자
func NewReviewService(reviewRepo repository.ReviewRepository, cfg config.ReviewConfig) ReviewService {
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	attempts := cfg.ContactUpdateAttempts
	if attempts < 1 {
		attempts = defaultContactUpdateAttempts
	}
	return &reviewService{
		reviewRepo:      reviewRepo,
		storeTimeout:    timeout,
		contactAttempts: attempts,
		lanes:           make(map[string]*issueLane),
	}
}

// acquireLane returns the lane for reviewID and reserves the next sequence number.
// Every call must be paired with releaseLane.
func (s *reviewService) acquireLane(reviewID string) (*issueLane, uint64) {
	s.lanesMu.Lock()
	defer s.lanesMu.Unlock()

	lane, ok := s.lanes[reviewID]
	if !ok {
		lane = &issueLane{}
		s.lanes[reviewID] = lane
	}
	lane.refs++
	lane.seq++
	return lane, lane.seq
}

func (s *reviewService) releaseLane(reviewID string, lane *issueLane) {
	s.lanesMu.Lock()
	defer s.lanesMu.Unlock()

	lane.refs--
	if lane.refs == 0 {
		delete(s.lanes, reviewID)
	}
}

// fenced runs a write that replaces the issue list. Toggles queued before it are dropped.
func (s *reviewService) fenced(reviewID string, write func() error) error {
	lane, seq := s.acquireLane(reviewID)
	defer s.releaseLane(reviewID, lane)

	lane.mu.Lock()
	defer lane.mu.Unlock()

	if err := write(); err != nil {
		return err
	}
	if seq > lane.applied {
		lane.applied = seq
	}
	return nil
}

func (s *reviewService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// SubmitRating 별점 저장 (최초 생성 또는 재평가)
func (s *reviewService) SubmitRating(ctx context.Context, companyID string, rating int, existingReviewID string) (string, error) {
	if companyID == "" {
		return "", ErrMissingCompany
	}
	if !model.ValidRating(rating) {
		return "", ErrInvalidRating
	}
	flowType := model.ClassifyRating(rating)

	if existingReviewID != "" {
		err := s.fenced(existingReviewID, func() error {
			rateCtx, rateCancel := s.withTimeout(ctx)
			defer rateCancel()
			return s.reviewRepo.UpdateRating(rateCtx, existingReviewID, rating, flowType)
		})
		if err != nil {
			logger.Error("Failed to re-rate review", err, map[string]interface{}{
				"review_id": existingReviewID,
				"rating":    rating,
			})
			return "", storeError("update rating", err)
		}
		logger.Info("Review re-rated", map[string]interface{}{
			"review_id": existingReviewID,
			"rating":    rating,
			"flow_type": flowType,
		})
		return existingReviewID, nil
	}

	review := &model.Review{
		CompanyID:                  companyID,
		Rating:                     rating,
		FlowType:                   flowType,
		FeedbackOptions:            []string{},
		GamificationStepsCompleted: []string{},
	}
	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.reviewRepo.Create(storeCtx, review); err != nil {
		logger.Error("Failed to create review", err, map[string]interface{}{
			"company_id": companyID,
			"rating":     rating,
		})
		return "", storeError("create review", err)
	}
	if review.ID == "" {
		logger.Error("Created review has no id", nil, map[string]interface{}{
			"company_id": companyID,
		})
		return "", storeError("create review", errors.New("store returned no id"))
	}

	logger.Info("Review created", map[string]interface{}{
		"review_id":  review.ID,
		"company_id": companyID,
		"rating":     rating,
		"flow_type":  flowType,
	})
	return review.ID, nil
}

// SubmitFeedback 피드백 저장 후 연락처 저장 (2단계)
func (s *reviewService) SubmitFeedback(ctx context.Context, reviewID string, input FeedbackInput) bool {
	if reviewID == "" {
		logger.Warn("Feedback submitted without review id", nil)
		return false
	}

	issues := model.NormalizeIssues(input.Issues)
	err := s.fenced(reviewID, func() error {
		storeCtx, cancel := s.withTimeout(ctx)
		defer cancel()
		return s.reviewRepo.UpdateFeedback(storeCtx, reviewID, issues, optionalString(input.Comment), time.Now())
	})
	if err != nil {
		logger.Error("Failed to save feedback", err, map[string]interface{}{
			"review_id": reviewID,
		})
		return false
	}

	return s.SaveContact(ctx, reviewID, input.Email, input.Phone)
}

// SaveContact 연락처 저장 및 재조회 검증
func (s *reviewService) SaveContact(ctx context.Context, reviewID, email, phone string) bool {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	var err error
	for attempt := 1; attempt <= s.contactAttempts; attempt++ {
		storeCtx, cancel := s.withTimeout(ctx)
		err = s.reviewRepo.UpdateContact(storeCtx, reviewID, optionalString(email), optionalString(phone))
		cancel()
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		logger.Warn("Contact update failed", map[string]interface{}{
			"review_id": reviewID,
			"attempt":   attempt,
			"error":     err.Error(),
		})
	}
	if err != nil {
		logger.Error("Failed to save contact", err, map[string]interface{}{
			"review_id": reviewID,
		})
		return false
	}

	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	saved, err := s.reviewRepo.FindByID(storeCtx, reviewID)
	if err != nil {
		logger.Error("Failed to verify contact", err, map[string]interface{}{
			"review_id": reviewID,
		})
		return false
	}
	if saved.ContactEmail() != email || saved.ContactPhone() != phone {
		logger.Warn("Stored contact does not match submitted contact", map[string]interface{}{
			"review_id": reviewID,
		})
		return false
	}
	return true
}

// ToggleIssue 이슈 태그 토글 (낙관적 업데이트)
func (s *reviewService) ToggleIssue(ctx context.Context, reviewID string, current []string, issue string) []string {
	updated := model.ToggleIssue(current, issue)
	if reviewID == "" {
		return updated
	}

	persisted := append([]string(nil), updated...)
	lane, seq := s.acquireLane(reviewID)
	bg := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer s.releaseLane(reviewID, lane)

		lane.mu.Lock()
		defer lane.mu.Unlock()
		if seq <= lane.applied {
			// 더 최신 토글이나 재평가/피드백 저장이 이미 반영됨
			return
		}

		storeCtx, cancel := s.withTimeout(bg)
		defer cancel()
		if err := s.reviewRepo.UpdateFeedbackOptions(storeCtx, reviewID, persisted); err != nil {
			// 로컬 상태는 유지한다. 최종 목록은 피드백 제출 시 다시 저장된다.
			logger.Warn("Failed to persist issue toggle", map[string]interface{}{
				"review_id": reviewID,
				"issue":     issue,
				"error":     err.Error(),
			})
			return
		}
		lane.applied = seq
	}()

	return updated
}

// MarkGoogleRedirect 구글 리뷰 이동 기록
func (s *reviewService) MarkGoogleRedirect(ctx context.Context, reviewID string, redirectType model.GoogleRedirectType) (*model.Review, error) {
	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	review, err := s.reviewRepo.FindByID(storeCtx, reviewID)
	if err != nil {
		return nil, storeError("find review", err)
	}

	steps := append([]string{}, review.GamificationStepsCompleted...)
	if !review.HasCompletedStep(model.GamificationStepGoogleReview) {
		steps = append(steps, model.GamificationStepGoogleReview)
	}
	now := time.Now()

	if err := s.reviewRepo.UpdateGoogleRedirect(storeCtx, reviewID, now, redirectType, steps); err != nil {
		logger.Error("Failed to mark google redirect", err, map[string]interface{}{
			"review_id": reviewID,
			"type":      redirectType,
		})
		return nil, storeError("mark google redirect", err)
	}

	review.RedirectedToGoogleAt = &now
	review.GoogleRedirectType = &redirectType
	review.GamificationStepsCompleted = steps

	logger.Info("Google redirect recorded", map[string]interface{}{
		"review_id": reviewID,
		"type":      redirectType,
	})
	return review, nil
}

// GetReview 리뷰 조회
func (s *reviewService) GetReview(ctx context.Context, id string) (*model.Review, error) {
	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	review, err := s.reviewRepo.FindByID(storeCtx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, storeError("find review", err)
	}
	return review, nil
}

func (s *reviewService) Wait() {
	s.pending.Wait()
}
