package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
)

func TestPolicyProvider_GetPolicy(t *testing.T) {
	testDB := setupTestDB(t)
	company := createCompany(t, testDB, model.RewardTypeLottery)
	policies := NewPolicyProvider(repository.NewCompanyRepository(testDB))
	ctx := context.Background()

	policy, err := policies.GetPolicy(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RewardTypeLottery, policy.CouponType)
	assert.True(t, policy.Notifications.MerchantAlert)
	assert.Equal(t, company.ID, policy.Company.ID)

	_, err = policies.GetPolicy(ctx, "")
	assert.ErrorIs(t, err, ErrMissingCompany)

	_, err = policies.GetPolicy(ctx, "no-such-company")
	assert.ErrorIs(t, err, ErrCompanyNotFound)
}

func TestPolicyFromCompany_DefaultsToNone(t *testing.T) {
	policy := PolicyFromCompany(&model.Company{ID: "c-1"})
	assert.Equal(t, model.RewardTypeNone, policy.CouponType)
	assert.False(t, policy.Notifications.ThankYou)
}

func TestAuthorizeFeed(t *testing.T) {
	testDB := setupTestDB(t)
	company := createCompany(t, testDB, model.RewardTypeNone)
	policies := NewPolicyProvider(repository.NewCompanyRepository(testDB))
	ctx := context.Background()

	// 토큰 미설정 매장은 접속 불가
	_, err := AuthorizeFeed(ctx, policies, company.ID, "")
	assert.ErrorIs(t, err, ErrInvalidFeedToken)

	require.NoError(t, testDB.Model(company).Update("feed_token", "secret-token").Error)

	_, err = AuthorizeFeed(ctx, policies, company.ID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidFeedToken)

	got, err := AuthorizeFeed(ctx, policies, company.ID, "secret-token")
	require.NoError(t, err)
	assert.Equal(t, company.Name, got.Name)
}
