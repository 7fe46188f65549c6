package service

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"github.com/tagreview/tagreview-backend/pkg/logger"
	"gorm.io/gorm"
)

// NotificationFlags 매장별 알림 채널 설정
type NotificationFlags struct {
	ThankYou       bool
	Coupon         bool
	GoogleRedirect bool
	SMS            bool
	MerchantAlert  bool
}

// Policy 매장의 보상/알림 정책
type Policy struct {
	CouponType    model.RewardType
	Notifications NotificationFlags
	Company       *model.Company
}

// PolicyProvider 매장 정책 조회 인터페이스
type PolicyProvider interface {
	GetPolicy(ctx context.Context, companyID string) (*Policy, error)
}

type companyPolicyProvider struct {
	companyRepo repository.CompanyRepository
}

// NewPolicyProvider builds policies from company rows.
func NewPolicyProvider(companyRepo repository.CompanyRepository) PolicyProvider {
	return &companyPolicyProvider{companyRepo: companyRepo}
}

func (p *companyPolicyProvider) GetPolicy(ctx context.Context, companyID string) (*Policy, error) {
	if companyID == "" {
		return nil, ErrMissingCompany
	}

	company, err := p.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Company not found for policy", map[string]interface{}{
				"company_id": companyID,
			})
			return nil, ErrCompanyNotFound
		}
		return nil, storeError("find company", err)
	}

	return PolicyFromCompany(company), nil
}

// PolicyFromCompany 매장 정보에서 정책 추출
func PolicyFromCompany(company *model.Company) *Policy {
	couponType := company.CouponType
	if couponType == "" {
		couponType = model.RewardTypeNone
	}
	return &Policy{
		CouponType: couponType,
		Notifications: NotificationFlags{
			ThankYou:       company.NotifyThankYou,
			Coupon:         company.NotifyCoupon,
			GoogleRedirect: company.NotifyGoogleRedirect,
			SMS:            company.NotifySMS,
			MerchantAlert:  company.NotifyMerchant,
		},
		Company: company,
	}
}

// AuthorizeFeed 매장 실시간 피드 접속 토큰 확인
func AuthorizeFeed(ctx context.Context, policies PolicyProvider, companyID, token string) (*model.Company, error) {
	policy, err := policies.GetPolicy(ctx, companyID)
	if err != nil {
		return nil, err
	}
	expected := policy.Company.FeedToken
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return nil, ErrInvalidFeedToken
	}
	return policy.Company, nil
}
