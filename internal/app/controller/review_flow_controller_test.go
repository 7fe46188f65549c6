package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagreview/tagreview-backend/config"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"github.com/tagreview/tagreview-backend/internal/app/service"
	"github.com/tagreview/tagreview-backend/internal/db"
	ws "github.com/tagreview/tagreview-backend/internal/websocket"
)

type flowResponse struct {
	Session    *model.FlowSession `json:"session"`
	NavigateTo string             `json:"navigate_to"`
	Issues     []string           `json:"issues"`
	Opened     bool               `json:"opened"`
	ManualLink string             `json:"manual_link"`
	Error      string             `json:"error"`
	Retryable  bool               `json:"retryable"`
	Fields     map[string]string  `json:"fields"`
}

func setupFlowControllerTest(t *testing.T) (*gin.Engine, *model.Company) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	company := &model.Company{
		Name:              "우동 카페",
		GoogleReviewURL:   "https://g.page/r/udong-cafe/review",
		CouponType:        model.RewardTypeCoupon,
		DiscountType:      model.DiscountTypeAmount,
		DiscountValue:     2000,
		CouponValidDays:   14,
		NotifyThankYou:    true,
		NotifyCoupon:      true,
		NotifyMerchant:    true,
		NotificationEmail: "owner@udong.cafe",
		FeedToken:         "feed-secret",
	}
	require.NoError(t, testDB.Create(company).Error)

	cfg := config.ReviewConfig{
		StoreTimeout:          5 * time.Second,
		SideEffectTimeout:     5 * time.Second,
		ContactUpdateAttempts: 2,
	}
	content, err := service.NewContentGenerator()
	require.NoError(t, err)

	policies := service.NewPolicyProvider(repository.NewCompanyRepository(testDB))
	reviews := service.NewReviewService(repository.NewReviewRepository(testDB), cfg)
	rewards := service.NewRewardService(
		service.NewCouponGenerator(repository.NewCouponRepository(testDB)),
		repository.NewLotteryRepository(testDB),
	)
	hub := ws.NewHub()
	go hub.Run()

	flow := service.NewReviewFlowService(
		reviews,
		rewards,
		service.NewNotificationService(service.NewLogSender(), content, hub),
		policies,
		repository.NewMemorySessionRepository(),
		cfg,
	)
	t.Cleanup(func() {
		flow.Wait()
		reviews.Wait()
		db.CleanupTestDB(testDB)
	})

	flowController := NewReviewFlowController(flow)
	feedController := NewFeedController(policies, hub, []string{"*"})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	sessions := router.Group("/api/v1/flow/sessions")
	sessions.POST("", flowController.StartSession)
	sessions.GET("/:id", flowController.GetSession)
	sessions.POST("/:id/rating", flowController.SelectRating)
	sessions.POST("/:id/issues", flowController.ToggleIssue)
	sessions.POST("/:id/feedback", flowController.SubmitFeedback)
	sessions.POST("/:id/google-redirect", flowController.OpenGoogleReview)
	sessions.POST("/:id/google-redirect/manual", flowController.ConfirmManualRedirect)
	sessions.POST("/:id/reward", flowController.ClaimReward)
	router.GET("/api/v1/companies/:id/feed", feedController.Subscribe)

	return router, company
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (int, flowResponse) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp flowResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func startSession(t *testing.T, router *gin.Engine, companyID string) string {
	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/flow/sessions", gin.H{"company_id": companyID})
	require.Equal(t, http.StatusCreated, code)
	require.NotNil(t, resp.Session)
	assert.Equal(t, model.FlowStateIdle, resp.Session.State)
	return resp.Session.ID
}

func TestReviewFlowController_StartSession_Errors(t *testing.T) {
	router, _ := setupFlowControllerTest(t)

	code, resp := doJSON(t, router, http.MethodPost, "/api/v1/flow/sessions", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "FLOW_MISSING_COMPANY", resp.Error)

	code, resp = doJSON(t, router, http.MethodPost, "/api/v1/flow/sessions", gin.H{"company_id": "unknown"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "COMPANY_NOT_FOUND", resp.Error)

	code, resp = doJSON(t, router, http.MethodGet, "/api/v1/flow/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "FLOW_SESSION_NOT_FOUND", resp.Error)
}

func TestReviewFlowController_LowRatingFeedback(t *testing.T) {
	router, company := setupFlowControllerTest(t)
	id := startSession(t, router, company.ID)
	base := "/api/v1/flow/sessions/" + id

	code, resp := doJSON(t, router, http.MethodPost, base+"/rating", gin.H{"rating": 7})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "REVIEW_INVALID_RATING", resp.Error)

	code, resp = doJSON(t, router, http.MethodPost, base+"/rating", gin.H{"rating": 2})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.FlowStateFeedbackPending, resp.Session.State)
	assert.NotEmpty(t, resp.Session.ReviewID)
	assert.Empty(t, resp.NavigateTo)

	code, resp = doJSON(t, router, http.MethodPost, base+"/issues", gin.H{"issue": "wait_time"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"wait_time"}, resp.Issues)

	code, resp = doJSON(t, router, http.MethodPost, base+"/feedback", gin.H{"comment": "너무 오래 기다렸어요"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_INVALID_INPUT", resp.Error)
	assert.Contains(t, resp.Fields, "contact")

	code, resp = doJSON(t, router, http.MethodPost, base+"/feedback", gin.H{
		"comment": "너무 오래 기다렸어요",
		"email":   "guest@example.com",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, service.ThankYouPath(company.ID, 2), resp.NavigateTo)

	code, resp = doJSON(t, router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, model.FlowStateCompleted, resp.Session.State)

	// 완료 후 재제출 불가
	code, resp = doJSON(t, router, http.MethodPost, base+"/feedback", gin.H{"email": "guest@example.com"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "FLOW_INVALID_TRANSITION", resp.Error)
}

func TestReviewFlowController_FiveStarManualRedirectAndReward(t *testing.T) {
	router, company := setupFlowControllerTest(t)
	id := startSession(t, router, company.ID)
	base := "/api/v1/flow/sessions/" + id

	code, resp := doJSON(t, router, http.MethodPost, base+"/rating", gin.H{"rating": 5})
	require.Equal(t, http.StatusOK, code)
	reviewID := resp.Session.ReviewID
	assert.Equal(t, model.FlowStateRedirecting, resp.Session.State)
	assert.Equal(t, service.GamificationPath(company.ID, 5, reviewID), resp.NavigateTo)

	code, resp = doJSON(t, router, http.MethodPost, base+"/google-redirect", gin.H{"opened": false})
	require.Equal(t, http.StatusOK, code)
	assert.False(t, resp.Opened)
	assert.Equal(t, company.GoogleReviewURL, resp.ManualLink)

	code, resp = doJSON(t, router, http.MethodPost, base+"/google-redirect/manual", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, service.GamificationPath(company.ID, 5, reviewID), resp.NavigateTo)

	code, resp = doJSON(t, router, http.MethodPost, base+"/reward", gin.H{"phone": "010"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Fields, "phone")

	code, _ = doJSON(t, router, http.MethodPost, base+"/reward", gin.H{"phone": "+821012345678"})
	assert.Equal(t, http.StatusAccepted, code)

	code, resp = doJSON(t, router, http.MethodPost, base+"/reward", gin.H{"phone": "+821012345678"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "FLOW_INVALID_TRANSITION", resp.Error)
}

func TestReviewFlowController_GoogleRedirectOpened(t *testing.T) {
	router, company := setupFlowControllerTest(t)
	id := startSession(t, router, company.ID)
	base := "/api/v1/flow/sessions/" + id

	code, resp := doJSON(t, router, http.MethodPost, base+"/rating", gin.H{"rating": 5})
	require.Equal(t, http.StatusOK, code)
	reviewID := resp.Session.ReviewID

	// 팝업이 열린 경우 수동 확인은 필요 없다
	code, resp = doJSON(t, router, http.MethodPost, base+"/google-redirect", gin.H{"opened": true})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Opened)
	assert.Equal(t, service.GamificationPath(company.ID, 5, reviewID), resp.NavigateTo)

	code, resp = doJSON(t, router, http.MethodPost, base+"/google-redirect/manual", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "FLOW_INVALID_TRANSITION", resp.Error)
}

func TestFeedController_RejectsInvalidToken(t *testing.T) {
	router, company := setupFlowControllerTest(t)

	code, resp := doJSON(t, router, http.MethodGet, "/api/v1/companies/"+company.ID+"/feed?token=wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "COMPANY_FEED_TOKEN_INVALID", resp.Error)

	code, resp = doJSON(t, router, http.MethodGet, "/api/v1/companies/unknown/feed?token=feed-secret", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "COMPANY_NOT_FOUND", resp.Error)
}
