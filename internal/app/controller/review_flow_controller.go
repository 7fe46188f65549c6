package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/service"
	apperrors "github.com/tagreview/tagreview-backend/internal/errors"
	"github.com/tagreview/tagreview-backend/internal/middleware"
	"github.com/tagreview/tagreview-backend/pkg/logger"
)

type ReviewFlowController struct {
	flowService service.ReviewFlowService
}

func NewReviewFlowController(flowService service.ReviewFlowService) *ReviewFlowController {
	return &ReviewFlowController{
		flowService: flowService,
	}
}

// StartSessionRequest NFC 태그 진입 요청
type StartSessionRequest struct {
	CompanyID string `json:"company_id"`
}

type SelectRatingRequest struct {
	Rating int `json:"rating"`
}

type ToggleIssueRequest struct {
	Issue string `json:"issue" binding:"required"`
}

type SubmitFeedbackRequest struct {
	Comment string `json:"comment"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// GoogleRedirectRequest 클라이언트가 팝업을 열었는지 여부
type GoogleRedirectRequest struct {
	Opened bool `json:"opened"`
}

type ClaimRewardRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// navigation 서비스가 요청한 화면 이동을 응답으로 전달
type navigation struct {
	path string
}

func (n *navigation) Navigate(path string) {
	n.path = path
}

// popupResult 클라이언트에서 이미 시도한 팝업 결과
type popupResult bool

func (p popupResult) Open(string) bool {
	return bool(p)
}

// StartSession 리뷰 플로우 시작
// POST /api/v1/flow/sessions
func (ctrl *ReviewFlowController) StartSession(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid start session request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	session, err := ctrl.flowService.StartSession(c.Request.Context(), req.CompanyID)
	if err != nil {
		respondFlowError(c, log, err, "Failed to start flow session")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session": session,
	})
}

// GetSession 세션 조회
// GET /api/v1/flow/sessions/:id
func (ctrl *ReviewFlowController) GetSession(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	session, ok := ctrl.loadSession(c, log)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": session,
	})
}

// SelectRating 별점 선택
// POST /api/v1/flow/sessions/:id/rating
func (ctrl *ReviewFlowController) SelectRating(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req SelectRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	session, ok := ctrl.loadSession(c, log)
	if !ok {
		return
	}

	nav := &navigation{}
	if err := ctrl.flowService.SelectRating(c.Request.Context(), session, req.Rating, nav); err != nil {
		respondFlowError(c, log, err, "Failed to select rating")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":     session,
		"navigate_to": nav.path,
	})
}

// ToggleIssue 불편 사항 토글
// POST /api/v1/flow/sessions/:id/issues
func (ctrl *ReviewFlowController) ToggleIssue(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ToggleIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{
			"issue": "불편 사항을 선택해주세요",
		})
		return
	}

	session, ok := ctrl.loadSession(c, log)
	if !ok {
		return
	}

	issues, err := ctrl.flowService.ToggleIssue(c.Request.Context(), session, req.Issue)
	if err != nil {
		respondFlowError(c, log, err, "Failed to toggle issue")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issues": issues,
	})
}

// SubmitFeedback 피드백 제출
// POST /api/v1/flow/sessions/:id/feedback
func (ctrl *ReviewFlowController) SubmitFeedback(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	session, ok := ctrl.loadSession(c, log)
	if !ok {
		return
	}

	nav := &navigation{}
	form := service.FeedbackForm{Comment: req.Comment, Email: req.Email, Phone: req.Phone}
	if err := ctrl.flowService.SubmitFeedback(c.Request.Context(), session, form, nav); err != nil {
		respondFlowError(c, log, err, "Failed to submit feedback")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"navigate_to": nav.path,
	})
}

// OpenGoogleReview 구글 리뷰 이동
// POST /api/v1/flow/sessions/:id/google-redirect
func (ctrl *ReviewFlowController) OpenGoogleReview(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GoogleRedirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	session, ok := ctrl.loadSession(c, log)
	if !ok {
		return
	}

	nav := &navigation{}
	result, err := ctrl.flowService.OpenGoogleReview(c.Request.Context(), session, popupResult(req.Opened), nav)
	if err != nil {
		respondFlowError(c, log, err, "Failed to open google review")
		return
	}

	if !result.Opened {
		c.JSON(http.StatusOK, gin.H{
			"opened":      false,
			"manual_link": result.ManualLink,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"opened":      true,
		"navigate_to": nav.path,
	})
}

// ConfirmManualRedirect 수동 링크 클릭
// POST /api/v1/flow/sessions/:id/google-redirect/manual
func (ctrl *ReviewFlowController) ConfirmManualRedirect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	session, ok := ctrl.loadSession(c, log)
	if !ok {
		return
	}

	nav := &navigation{}
	if err := ctrl.flowService.ConfirmManualRedirect(c.Request.Context(), session, nav); err != nil {
		respondFlowError(c, log, err, "Failed to confirm manual redirect")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"navigate_to": nav.path,
	})
}

// ClaimReward 5점 보상 수령
// POST /api/v1/flow/sessions/:id/reward
func (ctrl *ReviewFlowController) ClaimReward(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ClaimRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "입력값이 올바르지 않습니다")
		return
	}

	session, ok := ctrl.loadSession(c, log)
	if !ok {
		return
	}

	form := service.ContactForm{Email: req.Email, Phone: req.Phone}
	if err := ctrl.flowService.ClaimReward(c.Request.Context(), session, form); err != nil {
		respondFlowError(c, log, err, "Failed to claim reward")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "보상 안내가 곧 발송됩니다",
	})
}

func (ctrl *ReviewFlowController) loadSession(c *gin.Context, log *logger.Logger) (*model.FlowSession, bool) {
	session, err := ctrl.flowService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondFlowError(c, log, err, "Failed to load flow session")
		return nil, false
	}
	return session, true
}

// respondFlowError 서비스 에러를 HTTP 응답으로 변환
func respondFlowError(c *gin.Context, log *logger.Logger, err error, msg string) {
	fields := map[string]interface{}{
		"session_id": c.Param("id"),
		"error":      err.Error(),
	}

	var fieldErr *service.FieldError
	switch {
	case errors.As(err, &fieldErr):
		log.Warn(msg, fields)
		apperrors.RespondWithValidationError(c, map[string]string{
			fieldErr.Field: fieldErr.Message,
		})
	case errors.Is(err, service.ErrMissingCompany):
		log.Warn(msg, fields)
		apperrors.BadRequest(c, apperrors.FlowMissingCompany, "매장 정보를 찾을 수 없습니다. 태그를 다시 스캔해주세요")
	case errors.Is(err, service.ErrInvalidRating):
		log.Warn(msg, fields)
		apperrors.BadRequest(c, apperrors.ReviewInvalidRating, "평점은 1~5 사이의 값이어야 합니다")
	case errors.Is(err, service.ErrCompanyNotFound):
		log.Warn(msg, fields)
		apperrors.NotFound(c, apperrors.CompanyNotFound, "매장을 찾을 수 없습니다")
	case errors.Is(err, service.ErrSessionNotFound):
		log.Warn(msg, fields)
		apperrors.NotFound(c, apperrors.FlowSessionNotFound, "세션이 만료되었습니다. 태그를 다시 스캔해주세요")
	case errors.Is(err, service.ErrSubmissionInProgress):
		log.Warn(msg, fields)
		apperrors.Conflict(c, apperrors.FlowSubmissionInProgress, "이전 요청을 처리하고 있습니다")
	case errors.Is(err, service.ErrInvalidTransition):
		log.Warn(msg, fields)
		apperrors.Conflict(c, apperrors.FlowInvalidTransition, "현재 단계에서 할 수 없는 요청입니다")
	case errors.Is(err, service.ErrGoogleReviewUnavailable):
		log.Warn(msg, fields)
		apperrors.Conflict(c, apperrors.CompanyNoGoogleReviewURL, "구글 리뷰 페이지가 설정되지 않은 매장입니다")
	case errors.Is(err, service.ErrPersistence):
		log.Error(msg, err, fields)
		apperrors.ServiceUnavailable(c, "")
	case errors.Is(err, service.ErrReviewNotFound):
		log.Warn(msg, fields)
		apperrors.NotFound(c, apperrors.ReviewNotFound, "리뷰를 찾을 수 없습니다")
	default:
		log.Error(msg, err, fields)
		status := http.StatusInternalServerError
		if info := apperrors.ParseError(err, "review"); info.Retryable {
			status = http.StatusServiceUnavailable
		}
		apperrors.ParseAndRespond(c, status, err, "review")
	}
}
