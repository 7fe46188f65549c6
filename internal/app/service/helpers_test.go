package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tagreview/tagreview-backend/config"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"github.com/tagreview/tagreview-backend/internal/db"
	"gorm.io/gorm"
)

var errSenderDown = errors.New("provider unavailable")

type sentMessage struct {
	Channel string
	To      string
	Subject string
	Body    string
}

// fakeSender records deliveries. failEmail/failSMS make the channel return an error.
type fakeSender struct {
	mu        sync.Mutex
	sent      []sentMessage
	failEmail bool
	failSMS   bool
	panicSMS  bool
}

func (f *fakeSender) SendEmail(ctx context.Context, to, subject, html, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEmail {
		return errSenderDown
	}
	f.sent = append(f.sent, sentMessage{Channel: "email", To: to, Subject: subject, Body: html})
	return nil
}

func (f *fakeSender) SendSMS(ctx context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicSMS {
		panic("sms client exploded")
	}
	if f.failSMS {
		return errSenderDown
	}
	f.sent = append(f.sent, sentMessage{Channel: "sms", To: to, Body: text})
	return nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeFeed struct {
	mu     sync.Mutex
	events []interface{}
}

func (f *fakeFeed) PublishToCompany(companyID string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, message)
	return nil
}

type recordingRouter struct {
	paths []string
}

func (r *recordingRouter) Navigate(path string) {
	r.paths = append(r.paths, path)
}

func (r *recordingRouter) last() string {
	if len(r.paths) == 0 {
		return ""
	}
	return r.paths[len(r.paths)-1]
}

type staticOpener struct {
	opened bool
	urls   []string
}

func (o *staticOpener) Open(url string) bool {
	o.urls = append(o.urls, url)
	return o.opened
}

// flakyReviewRepo injects failures into selected review store calls.
type flakyReviewRepo struct {
	repository.ReviewRepository
	mu             sync.Mutex
	createErr      error
	contactErr     error
	optionsErr     error
	contactCalls   int
	blockUntilDone bool
	optionsDelay   time.Duration
}

func (r *flakyReviewRepo) Create(ctx context.Context, review *model.Review) error {
	if r.blockUntilDone {
		<-ctx.Done()
		return ctx.Err()
	}
	if r.createErr != nil {
		return r.createErr
	}
	return r.ReviewRepository.Create(ctx, review)
}

func (r *flakyReviewRepo) UpdateContact(ctx context.Context, id string, email, phone *string) error {
	r.mu.Lock()
	r.contactCalls++
	err := r.contactErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.ReviewRepository.UpdateContact(ctx, id, email, phone)
}

func (r *flakyReviewRepo) UpdateFeedbackOptions(ctx context.Context, id string, issues []string) error {
	if r.optionsDelay > 0 {
		select {
		case <-time.After(r.optionsDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.optionsErr != nil {
		return r.optionsErr
	}
	return r.ReviewRepository.UpdateFeedbackOptions(ctx, id, issues)
}

var testReviewConfig = config.ReviewConfig{
	StoreTimeout:          5 * time.Second,
	SideEffectTimeout:     5 * time.Second,
	ContactUpdateAttempts: 2,
}

type flowEnv struct {
	db       *gorm.DB
	flow     ReviewFlowService
	reviews  ReviewService
	repo     *flakyReviewRepo
	sessions repository.SessionRepository
	sender   *fakeSender
	feed     *fakeFeed
	company  *model.Company
}

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	return testDB
}

func createCompany(t *testing.T, testDB *gorm.DB, couponType model.RewardType) *model.Company {
	company := &model.Company{
		Name:                 "우동 카페",
		GoogleReviewURL:      "https://g.page/r/udong-cafe/review",
		CouponType:           couponType,
		DiscountType:         model.DiscountTypePercent,
		DiscountValue:        10,
		CouponValidDays:      30,
		LotteryPrize:         "아메리카노 1잔",
		NotifyThankYou:       true,
		NotifyCoupon:         true,
		NotifyGoogleRedirect: true,
		NotifySMS:            true,
		NotifyMerchant:       true,
		NotificationEmail:    "owner@udong.cafe",
	}
	require.NoError(t, testDB.Create(company).Error)
	return company
}

func setupFlowTest(t *testing.T, couponType model.RewardType) *flowEnv {
	testDB := setupTestDB(t)
	company := createCompany(t, testDB, couponType)

	repo := &flakyReviewRepo{ReviewRepository: repository.NewReviewRepository(testDB)}
	reviews := NewReviewService(repo, testReviewConfig)
	rewards := NewRewardService(
		NewCouponGenerator(repository.NewCouponRepository(testDB)),
		repository.NewLotteryRepository(testDB),
	)
	content, err := NewContentGenerator()
	require.NoError(t, err)

	sender := &fakeSender{}
	feed := &fakeFeed{}
	notifier := NewNotificationService(sender, content, feed)
	sessions := repository.NewMemorySessionRepository()

	flow := NewReviewFlowService(
		reviews,
		rewards,
		notifier,
		NewPolicyProvider(repository.NewCompanyRepository(testDB)),
		sessions,
		testReviewConfig,
	)

	return &flowEnv{
		db:       testDB,
		flow:     flow,
		reviews:  reviews,
		repo:     repo,
		sessions: sessions,
		sender:   sender,
		feed:     feed,
		company:  company,
	}
}
