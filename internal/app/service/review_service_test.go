package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagreview/tagreview-backend/config"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
)

func setupReviewServiceTest(t *testing.T) (ReviewService, *flakyReviewRepo) {
	testDB := setupTestDB(t)
	repo := &flakyReviewRepo{ReviewRepository: repository.NewReviewRepository(testDB)}
	return NewReviewService(repo, testReviewConfig), repo
}

func TestReviewService_SubmitRating_Create(t *testing.T) {
	reviews, _ := setupReviewServiceTest(t)
	ctx := context.Background()

	id, err := reviews.SubmitRating(ctx, "c1", 2, "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	review, err := reviews.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.FlowTypeLowRating, review.FlowType)
	assert.Equal(t, "c1", review.CompanyID)
	assert.Nil(t, review.CompletedAt)
}

func TestReviewService_SubmitRating_RejectsBadInput(t *testing.T) {
	reviews, _ := setupReviewServiceTest(t)

	_, err := reviews.SubmitRating(context.Background(), "", 3, "")
	assert.ErrorIs(t, err, ErrMissingCompany)

	for _, rating := range []int{0, 6, -1} {
		_, err = reviews.SubmitRating(context.Background(), "c1", rating, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
	}
}

func TestReviewService_ReRateResetsDependentFields(t *testing.T) {
	reviews, _ := setupReviewServiceTest(t)
	ctx := context.Background()

	id, err := reviews.SubmitRating(ctx, "c1", 2, "")
	require.NoError(t, err)
	require.True(t, reviews.SubmitFeedback(ctx, id, FeedbackInput{
		Issues:  []string{"slow_service"},
		Comment: "기다림이 길었어요",
		Email:   "a@b.com",
	}))

	sameID, err := reviews.SubmitRating(ctx, "c1", 4, id)
	require.NoError(t, err)
	assert.Equal(t, id, sameID)

	review, err := reviews.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, model.FlowTypeMidRating, review.FlowType)
	assert.Empty(t, review.FeedbackOptions)
	assert.Nil(t, review.Comment)
	assert.Nil(t, review.CompletedAt)
	assert.Nil(t, review.RedirectedToGoogleAt)
	assert.Nil(t, review.GoogleRedirectType)
	// 연락처는 재평가로 지워지지 않는다
	assert.Equal(t, "a@b.com", review.ContactEmail())
}

func TestReviewService_SubmitRating_SameRatingTwiceUpdates(t *testing.T) {
	reviews, _ := setupReviewServiceTest(t)
	ctx := context.Background()

	id, err := reviews.SubmitRating(ctx, "c1", 5, "")
	require.NoError(t, err)
	again, err := reviews.SubmitRating(ctx, "c1", 5, id)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestReviewService_SubmitRating_PersistenceFailure(t *testing.T) {
	reviews, repo := setupReviewServiceTest(t)
	repo.createErr = errors.New("connection reset")

	_, err := reviews.SubmitRating(context.Background(), "c1", 3, "")
	assert.ErrorIs(t, err, ErrPersistence)

	_, err = reviews.SubmitRating(context.Background(), "c1", 3, "missing-review")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestReviewService_SubmitRating_Timeout(t *testing.T) {
	testDB := setupTestDB(t)
	repo := &flakyReviewRepo{ReviewRepository: repository.NewReviewRepository(testDB), blockUntilDone: true}
	reviews := NewReviewService(repo, config.ReviewConfig{StoreTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := reviews.SubmitRating(context.Background(), "c1", 3, "")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestReviewService_SubmitFeedback(t *testing.T) {
	reviews, _ := setupReviewServiceTest(t)
	ctx := context.Background()

	id, err := reviews.SubmitRating(ctx, "c1", 2, "")
	require.NoError(t, err)

	ok := reviews.SubmitFeedback(ctx, id, FeedbackInput{
		Issues:  []string{"slow_service", "slow_service", ""},
		Comment: "  too slow  ",
		Phone:   "+821012345678",
	})
	require.True(t, ok)

	review, err := reviews.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"slow_service"}, []string(review.FeedbackOptions))
	assert.Equal(t, "too slow", review.CommentText())
	assert.NotNil(t, review.CompletedAt)
	assert.Equal(t, "+821012345678", review.ContactPhone())
	assert.Nil(t, review.Email)
}

func TestReviewService_SubmitFeedback_ContactRetriedThenFails(t *testing.T) {
	reviews, repo := setupReviewServiceTest(t)
	ctx := context.Background()

	id, err := reviews.SubmitRating(ctx, "c1", 3, "")
	require.NoError(t, err)

	repo.contactErr = errors.New("write timeout")
	ok := reviews.SubmitFeedback(ctx, id, FeedbackInput{Email: "a@b.com"})
	assert.False(t, ok)
	assert.Equal(t, testReviewConfig.ContactUpdateAttempts, repo.contactCalls)

	// 피드백 단계는 이미 저장됨
	review, err := reviews.GetReview(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, review.CompletedAt)
	assert.Nil(t, review.Email)
}

func TestReviewService_SubmitFeedback_UnknownReview(t *testing.T) {
	reviews, _ := setupReviewServiceTest(t)

	assert.False(t, reviews.SubmitFeedback(context.Background(), "missing", FeedbackInput{Email: "a@b.com"}))
	assert.False(t, reviews.SubmitFeedback(context.Background(), "", FeedbackInput{Email: "a@b.com"}))
}

func TestReviewService_ToggleIssue_Optimistic(t *testing.T) {
	reviews, repo := setupReviewServiceTest(t)
	ctx := context.Background()

	id, err := reviews.SubmitRating(ctx, "c1", 1, "")
	require.NoError(t, err)

	issues := reviews.ToggleIssue(ctx, id, nil, "noise")
	assert.Equal(t, []string{"noise"}, issues)
	reviews.Wait()

	review, err := reviews.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"noise"}, []string(review.FeedbackOptions))

	// 저장 실패해도 로컬 토글은 유지된다
	repo.optionsErr = errors.New("store down")
	issues = reviews.ToggleIssue(ctx, id, issues, "dirty_table")
	assert.Equal(t, []string{"noise", "dirty_table"}, issues)
	issues = reviews.ToggleIssue(ctx, id, issues, "noise")
	assert.Equal(t, []string{"dirty_table"}, issues)
	reviews.Wait()

	review, err = reviews.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"noise"}, []string(review.FeedbackOptions))
}

func TestReviewService_MarkGoogleRedirect(t *testing.T) {
	reviews, _ := setupReviewServiceTest(t)
	ctx := context.Background()

	id, err := reviews.SubmitRating(ctx, "c1", 5, "")
	require.NoError(t, err)

	_, err = reviews.MarkGoogleRedirect(ctx, id, model.GoogleRedirectManual)
	require.NoError(t, err)
	review, err := reviews.MarkGoogleRedirect(ctx, id, model.GoogleRedirectManual)
	require.NoError(t, err)
	assert.Equal(t, []string{model.GamificationStepGoogleReview}, []string(review.GamificationStepsCompleted))

	stored, err := reviews.GetReview(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.RedirectedToGoogleAt)
	require.NotNil(t, stored.GoogleRedirectType)
	assert.Equal(t, model.GoogleRedirectManual, *stored.GoogleRedirectType)
	assert.Equal(t, []string{model.GamificationStepGoogleReview}, []string(stored.GamificationStepsCompleted))

	_, err = reviews.GetReview(ctx, "missing")
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestReviewService_ToggleIssue_LastToggleWins(t *testing.T) {
	reviews, repo := setupReviewServiceTest(t)
	ctx := context.Background()

	id, err := reviews.SubmitRating(ctx, "c1", 2, "")
	require.NoError(t, err)

	repo.optionsDelay = 50 * time.Millisecond
	issues := reviews.ToggleIssue(ctx, id, nil, "noise")
	issues = reviews.ToggleIssue(ctx, id, issues, "dirty_table")
	issues = reviews.ToggleIssue(ctx, id, issues, "noise")
	assert.Equal(t, []string{"dirty_table"}, issues)
	reviews.Wait()

	review, err := reviews.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"dirty_table"}, []string(review.FeedbackOptions))
}

func TestReviewService_SubmitFeedback_OverridesPendingToggle(t *testing.T) {
	reviews, repo := setupReviewServiceTest(t)
	ctx := context.Background()

	id, err := reviews.SubmitRating(ctx, "c1", 2, "")
	require.NoError(t, err)

	repo.optionsDelay = 200 * time.Millisecond
	reviews.ToggleIssue(ctx, id, nil, "noise")
	require.True(t, reviews.SubmitFeedback(ctx, id, FeedbackInput{
		Issues: []string{"slow_service"},
		Email:  "a@b.com",
	}))
	reviews.Wait()

	review, err := reviews.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"slow_service"}, []string(review.FeedbackOptions))
	assert.NotNil(t, review.CompletedAt)
}

func TestReviewService_ReRate_OverridesPendingToggle(t *testing.T) {
	reviews, repo := setupReviewServiceTest(t)
	ctx := context.Background()

	id, err := reviews.SubmitRating(ctx, "c1", 2, "")
	require.NoError(t, err)

	repo.optionsDelay = 200 * time.Millisecond
	reviews.ToggleIssue(ctx, id, nil, "slow_service")
	_, err = reviews.SubmitRating(ctx, "c1", 4, id)
	require.NoError(t, err)
	reviews.Wait()

	review, err := reviews.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)
	assert.Empty(t, review.FeedbackOptions)
}
