package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tagreview/tagreview-backend/config"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const defaultSideEffectTimeout = 60 * time.Second

// Router 클라이언트 화면 이동
type Router interface {
	Navigate(path string)
}

// PopupOpener 외부 리뷰 페이지를 새 창으로 연다. 팝업이 차단되면 false.
type PopupOpener interface {
	Open(url string) bool
}

// FeedbackForm 저평점 피드백 폼
type FeedbackForm struct {
	Comment string
	Email   string
	Phone   string
}

// ContactForm 5점 보상 수령 폼
type ContactForm struct {
	Email string
	Phone string
}

// GoogleRedirectResult 구글 리뷰 이동 시도 결과
type GoogleRedirectResult struct {
	Opened     bool
	ManualLink string
}

// GamificationPath 5점 게이미피케이션 화면 경로
func GamificationPath(companyID string, rating int, reviewID string) string {
	q := url.Values{}
	q.Set("companyId", companyID)
	q.Set("rating", strconv.Itoa(rating))
	q.Set("reviewId", reviewID)
	return "/gamification?" + q.Encode()
}

// ThankYouPath 완료 화면 경로
func ThankYouPath(companyID string, rating int) string {
	q := url.Values{}
	q.Set("companyId", companyID)
	q.Set("rating", strconv.Itoa(rating))
	return "/thank-you?" + q.Encode()
}

// ReviewFlowService 리뷰 제출 상태 머신
type ReviewFlowService interface {
	StartSession(ctx context.Context, companyID string) (*model.FlowSession, error)
	GetSession(ctx context.Context, id string) (*model.FlowSession, error)
	SelectRating(ctx context.Context, session *model.FlowSession, rating int, router Router) error
	ToggleIssue(ctx context.Context, session *model.FlowSession, issue string) ([]string, error)
	SubmitFeedback(ctx context.Context, session *model.FlowSession, form FeedbackForm, router Router) error
	OpenGoogleReview(ctx context.Context, session *model.FlowSession, opener PopupOpener, router Router) (*GoogleRedirectResult, error)
	ConfirmManualRedirect(ctx context.Context, session *model.FlowSession, router Router) error
	ClaimReward(ctx context.Context, session *model.FlowSession, form ContactForm) error
	// Wait blocks until detached reward and notification tasks finish.
	Wait()
}

type reviewFlowService struct {
	reviews           ReviewService
	rewards           RewardService
	notifier          NotificationService
	policies          PolicyProvider
	sessions          repository.SessionRepository
	validate          *validator.Validate
	sideEffectTimeout time.Duration
	detached          sync.WaitGroup
}

// NewReviewFlowService 리뷰 플로우 서비스 생성자
func NewReviewFlowService(
	reviews ReviewService,
	rewards RewardService,
	notifier NotificationService,
	policies PolicyProvider,
	sessions repository.SessionRepository,
	cfg config.ReviewConfig,
) ReviewFlowService {
	timeout := cfg.SideEffectTimeout
	if timeout <= 0 {
		timeout = defaultSideEffectTimeout
	}
	return &reviewFlowService{
		reviews:           reviews,
		rewards:           rewards,
		notifier:          notifier,
		policies:          policies,
		sessions:          sessions,
		validate:          validator.New(),
		sideEffectTimeout: timeout,
	}
}

// StartSession NFC 태그 진입 시 세션 생성
func (s *reviewFlowService) StartSession(ctx context.Context, companyID string) (*model.FlowSession, error) {
	if companyID == "" {
		return nil, ErrMissingCompany
	}
	if _, err := s.policies.GetPolicy(ctx, companyID); err != nil {
		return nil, err
	}

	session := model.NewFlowSession(uuid.NewString(), companyID)
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}

	logger.Info("Flow session started", map[string]interface{}{
		"session_id": session.ID,
		"company_id": companyID,
	})
	return session, nil
}

func (s *reviewFlowService) GetSession(ctx context.Context, id string) (*model.FlowSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: load session: %v", ErrPersistence, err)
	}
	return session, nil
}

// SelectRating 별점 선택 (Idle -> Rated -> FeedbackPending | Redirecting).
// 실패 시 세션은 변경되지 않으므로 같은 동작을 재시도할 수 있다.
func (s *reviewFlowService) SelectRating(ctx context.Context, session *model.FlowSession, rating int, router Router) error {
	if session.CompanyID == "" {
		return ErrMissingCompany
	}
	if !model.ValidRating(rating) {
		return ErrInvalidRating
	}

	release, err := s.acquire(ctx, session.ID)
	if err != nil {
		return err
	}
	defer release()

	// 다른 요청이 먼저 리뷰를 만들었을 수 있으므로 가드 안에서 다시 읽는다
	if err := s.reload(ctx, session); err != nil {
		return err
	}

	reviewID, err := s.reviews.SubmitRating(ctx, session.CompanyID, rating, session.ReviewID)
	if err != nil {
		return err
	}

	next := *session
	next.Rating = rating
	next.ReviewID = reviewID
	next.Issues = []string{}
	next.Comment = ""
	next.ManualRedirectURL = ""
	next.RewardClaimed = false

	flowType := model.ClassifyRating(rating)
	if flowType.ShowsFeedbackForm() {
		next.State = model.FlowStateFeedbackPending
	} else {
		next.State = model.FlowStateRedirecting
	}

	if err := s.saveSession(ctx, &next); err != nil {
		return err
	}
	*session = next

	logger.Info("Rating selected", map[string]interface{}{
		"session_id": session.ID,
		"review_id":  reviewID,
		"rating":     rating,
		"flow_type":  flowType,
		"state":      session.State,
	})

	if session.State == model.FlowStateRedirecting {
		router.Navigate(GamificationPath(session.CompanyID, rating, reviewID))
	}
	return nil
}

// ToggleIssue 불편 사항 태그 토글. 로컬 목록을 즉시 반환한다.
func (s *reviewFlowService) ToggleIssue(ctx context.Context, session *model.FlowSession, issue string) ([]string, error) {
	if session.State != model.FlowStateFeedbackPending {
		return nil, ErrInvalidTransition
	}
	issue = strings.TrimSpace(issue)
	if issue == "" {
		return nil, newFieldError("issue", "불편 사항을 선택해주세요")
	}

	session.Issues = s.reviews.ToggleIssue(ctx, session.ReviewID, session.Issues, issue)
	if err := s.saveSession(ctx, session); err != nil {
		return nil, err
	}
	return session.Issues, nil
}

// SubmitFeedback 피드백 제출 (FeedbackPending -> Completed)
func (s *reviewFlowService) SubmitFeedback(ctx context.Context, session *model.FlowSession, form FeedbackForm, router Router) error {
	if session.State != model.FlowStateFeedbackPending {
		return ErrInvalidTransition
	}

	release, err := s.acquire(ctx, session.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.reload(ctx, session); err != nil {
		return err
	}
	if session.State != model.FlowStateFeedbackPending {
		return ErrInvalidTransition
	}

	email, phone, err := s.validateContact(form.Email, form.Phone)
	if err != nil {
		return err
	}

	ok := s.reviews.SubmitFeedback(ctx, session.ReviewID, FeedbackInput{
		Issues:  session.Issues,
		Comment: form.Comment,
		Email:   email,
		Phone:   phone,
	})
	if !ok {
		return fmt.Errorf("%w: feedback was not saved", ErrPersistence)
	}

	review := &model.Review{
		ID:              session.ReviewID,
		CompanyID:       session.CompanyID,
		Rating:          session.Rating,
		FlowType:        model.ClassifyRating(session.Rating),
		FeedbackOptions: model.NormalizeIssues(session.Issues),
		Comment:         optionalString(form.Comment),
		Email:           optionalString(email),
		Phone:           optionalString(phone),
	}
	s.dispatchSideEffects(ctx, review)

	session.Comment = strings.TrimSpace(form.Comment)
	session.Email = email
	session.Phone = phone
	session.State = model.FlowStateCompleted
	if err := s.saveSession(ctx, session); err != nil {
		// 리뷰는 이미 저장됨 - 화면 이동은 계속한다
		logger.Warn("Failed to save completed session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	logger.Info("Feedback submitted", map[string]interface{}{
		"session_id": session.ID,
		"review_id":  session.ReviewID,
	})
	router.Navigate(ThankYouPath(session.CompanyID, session.Rating))
	return nil
}

// OpenGoogleReview 구글 리뷰 페이지 자동 열기 시도
func (s *reviewFlowService) OpenGoogleReview(ctx context.Context, session *model.FlowSession, opener PopupOpener, router Router) (*GoogleRedirectResult, error) {
	if session.State != model.FlowStateRedirecting {
		return nil, ErrInvalidTransition
	}

	policy, err := s.policies.GetPolicy(ctx, session.CompanyID)
	if err != nil {
		return nil, err
	}
	reviewURL := policy.Company.GoogleReviewURL
	if reviewURL == "" {
		return nil, ErrGoogleReviewUnavailable
	}

	if !opener.Open(reviewURL) {
		// 팝업 차단 - 사용자가 직접 링크를 눌렀을 때만 기록한다
		session.ManualRedirectURL = reviewURL
		if err := s.saveSession(ctx, session); err != nil {
			return nil, err
		}
		logger.Info("Google review popup blocked, manual link exposed", map[string]interface{}{
			"session_id": session.ID,
			"review_id":  session.ReviewID,
		})
		return &GoogleRedirectResult{Opened: false, ManualLink: reviewURL}, nil
	}

	if err := s.completeRedirect(ctx, session, model.GoogleRedirectAutomatic, router); err != nil {
		return nil, err
	}
	return &GoogleRedirectResult{Opened: true}, nil
}

// ConfirmManualRedirect 사용자가 수동 링크를 눌렀을 때
func (s *reviewFlowService) ConfirmManualRedirect(ctx context.Context, session *model.FlowSession, router Router) error {
	if session.State != model.FlowStateRedirecting || session.ManualRedirectURL == "" {
		return ErrInvalidTransition
	}
	return s.completeRedirect(ctx, session, model.GoogleRedirectManual, router)
}

func (s *reviewFlowService) completeRedirect(ctx context.Context, session *model.FlowSession, redirectType model.GoogleRedirectType, router Router) error {
	if _, err := s.reviews.MarkGoogleRedirect(ctx, session.ReviewID, redirectType); err != nil {
		return err
	}

	session.ManualRedirectURL = ""
	session.State = model.FlowStateCompleted
	if err := s.saveSession(ctx, session); err != nil {
		logger.Warn("Failed to save redirected session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	router.Navigate(GamificationPath(session.CompanyID, session.Rating, session.ReviewID))
	return nil
}

// ClaimReward 5점 화면에서 연락처를 받아 보상 발급
func (s *reviewFlowService) ClaimReward(ctx context.Context, session *model.FlowSession, form ContactForm) error {
	if !canClaimReward(session) {
		return ErrInvalidTransition
	}

	release, err := s.acquire(ctx, session.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.reload(ctx, session); err != nil {
		return err
	}
	if !canClaimReward(session) {
		return ErrInvalidTransition
	}

	email, phone, err := s.validateContact(form.Email, form.Phone)
	if err != nil {
		return err
	}

	if !s.reviews.SaveContact(ctx, session.ReviewID, email, phone) {
		return fmt.Errorf("%w: contact was not saved", ErrPersistence)
	}
	review, err := s.reviews.GetReview(ctx, session.ReviewID)
	if err != nil {
		return err
	}
	s.dispatchSideEffects(ctx, review)

	session.Email = email
	session.Phone = phone
	session.RewardClaimed = true
	if err := s.saveSession(ctx, session); err != nil {
		logger.Warn("Failed to save reward claim on session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	logger.Info("Reward claimed", map[string]interface{}{
		"session_id": session.ID,
		"review_id":  session.ReviewID,
	})
	return nil
}

func canClaimReward(session *model.FlowSession) bool {
	if model.ClassifyRating(session.Rating) != model.FlowTypeHighRatingGamification || session.ReviewID == "" {
		return false
	}
	if session.State != model.FlowStateRedirecting && session.State != model.FlowStateCompleted {
		return false
	}
	return !session.RewardClaimed
}

func (s *reviewFlowService) Wait() {
	s.detached.Wait()
}

// dispatchSideEffects starts reward issuance and notifications after the review write.
// Neither task blocks the caller; results are joined only to be logged.
func (s *reviewFlowService) dispatchSideEffects(ctx context.Context, review *model.Review) {
	bg := context.WithoutCancel(ctx)

	s.detached.Add(1)
	go func() {
		defer s.detached.Done()
		ctx, cancel := context.WithTimeout(bg, s.sideEffectTimeout)
		defer cancel()

		policy, err := s.policies.GetPolicy(ctx, review.CompanyID)
		if err != nil {
			logger.Error("Failed to load company policy for side effects", err, map[string]interface{}{
				"review_id":  review.ID,
				"company_id": review.CompanyID,
			})
			return
		}

		var g errgroup.Group
		g.Go(func() error {
			return s.issueReward(ctx, review, policy)
		})
		g.Go(func() error {
			return s.notify(ctx, review, policy)
		})
		if err := g.Wait(); err != nil {
			logger.Warn("Review side effects finished with errors", map[string]interface{}{
				"review_id": review.ID,
				"error":     err.Error(),
			})
		}
	}()
}

// issueReward 보상 발급 후 쿠폰 안내 발송
func (s *reviewFlowService) issueReward(ctx context.Context, review *model.Review, policy *Policy) error {
	result, err := s.rewards.IssueReward(ctx, review, policy)
	if err != nil {
		return err
	}
	if result == nil || result.Coupon == nil || !policy.Notifications.Coupon {
		return nil
	}
	return s.notifier.Notify(ctx, review, policy.Company, NotifyOptions{
		SendCoupon: true,
		Coupon:     result.Coupon,
		SendSMS:    policy.Notifications.SMS,
	})
}

func (s *reviewFlowService) notify(ctx context.Context, review *model.Review, policy *Policy) error {
	flags := policy.Notifications
	// 쿠폰 SMS 가 따로 나가면 감사 SMS 는 생략
	couponSMS := policy.CouponType == model.RewardTypeCoupon && flags.Coupon && review.HasContact()
	googleReminder := review.FlowType == model.FlowTypeHighRatingGamification &&
		!review.HasCompletedStep(model.GamificationStepGoogleReview)

	return s.notifier.Notify(ctx, review, policy.Company, NotifyOptions{
		SendThankYou:       flags.ThankYou,
		SendGoogleRedirect: flags.GoogleRedirect && googleReminder,
		SendSMS:            flags.SMS && !couponSMS,
		SendMerchantAlert:  flags.MerchantAlert && review.FlowType.ShowsFeedbackForm(),
		PublishFeed:        true,
	})
}

// validateContact 이메일 또는 전화번호 중 하나 이상, 형식 검사 포함
func (s *reviewFlowService) validateContact(email, phone string) (string, string, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	if email == "" && phone == "" {
		return "", "", newFieldError("contact", "이메일 또는 전화번호를 입력해주세요")
	}
	if email != "" {
		if err := s.validate.Var(email, "email"); err != nil {
			return "", "", newFieldError("email", "올바른 이메일 형식이 아닙니다")
		}
	}
	if phone != "" {
		if err := s.validate.Var(phone, "e164"); err != nil {
			return "", "", newFieldError("phone", "올바른 전화번호 형식이 아닙니다 (예: +821012345678)")
		}
	}
	return email, phone, nil
}

// acquire takes the per-session submit guard. The returned release must be deferred.
func (s *reviewFlowService) acquire(ctx context.Context, sessionID string) (func(), error) {
	ok, err := s.sessions.AcquireSubmitLock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire submit guard: %v", ErrPersistence, err)
	}
	if !ok {
		return nil, ErrSubmissionInProgress
	}

	bg := context.WithoutCancel(ctx)
	return func() {
		if err := s.sessions.ReleaseSubmitLock(bg, sessionID); err != nil {
			logger.Error("Failed to release submit guard", err, map[string]interface{}{
				"session_id": sessionID,
			})
		}
	}, nil
}

// reload replaces the caller's copy with the stored session. Called while holding the submit guard.
func (s *reviewFlowService) reload(ctx context.Context, session *model.FlowSession) error {
	stored, err := s.GetSession(ctx, session.ID)
	if err != nil {
		return err
	}
	*session = *stored
	return nil
}

func (s *reviewFlowService) saveSession(ctx context.Context, session *model.FlowSession) error {
	session.UpdatedAt = time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("%w: save session: %v", ErrPersistence, err)
	}
	return nil
}
