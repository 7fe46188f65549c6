package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/pkg/logger"
)

// FeedPublisher 가맹점 실시간 피드 발행 인터페이스
type FeedPublisher interface {
	PublishToCompany(companyID string, message interface{}) error
}

// FeedEvent 가맹점 대시보드로 전달되는 이벤트. 고객 연락처는 포함하지 않는다.
type FeedEvent struct {
	Type      string         `json:"type"`
	ReviewID  string         `json:"review_id"`
	Rating    int            `json:"rating"`
	FlowType  model.FlowType `json:"flow_type"`
	Issues    []string       `json:"issues"`
	Comment   string         `json:"comment,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

const FeedEventReviewCompleted = "review_completed"

// NotifyOptions 발송할 알림 종류
type NotifyOptions struct {
	SendThankYou       bool
	SendCoupon         bool
	Coupon             *model.Coupon
	SendGoogleRedirect bool
	SendSMS            bool
	SendMerchantAlert  bool
	PublishFeed        bool
}

// NotificationService 리뷰 후속 알림 발송 인터페이스.
// 채널별 실패는 로그로 남기고 다른 채널 발송을 막지 않는다.
// 반환되는 에러는 로그 집계용이다.
type NotificationService interface {
	Notify(ctx context.Context, review *model.Review, company *model.Company, opts NotifyOptions) error
	NotifyLotteryWinner(ctx context.Context, entry *model.LotteryEntry, company *model.Company) error
}

type notificationService struct {
	sender  NotificationSender
	content ContentGenerator
	feed    FeedPublisher
}

// NewNotificationService 알림 서비스 생성자. feed 는 nil 일 수 있다.
func NewNotificationService(sender NotificationSender, content ContentGenerator, feed FeedPublisher) NotificationService {
	return &notificationService{
		sender:  sender,
		content: content,
		feed:    feed,
	}
}

func (s *notificationService) Notify(ctx context.Context, review *model.Review, company *model.Company, opts NotifyOptions) error {
	data := ContentContext{
		CompanyName: company.Name,
		Rating:      review.Rating,
		Comment:     review.CommentText(),
		Issues:      review.FeedbackOptions,
		ReviewURL:   company.GoogleReviewURL,
	}
	withCoupon := opts.SendCoupon && opts.Coupon != nil
	if withCoupon {
		data.CouponCode = opts.Coupon.Code
		if opts.Coupon.ExpiresAt != nil {
			data.ExpiresOn = opts.Coupon.ExpiresAt.Format("2006-01-02")
		}
	}

	var failed []error
	record := func(err error) {
		if err != nil {
			failed = append(failed, err)
		}
	}

	if email := review.ContactEmail(); email != "" {
		if opts.SendThankYou {
			record(s.sendEmail(ctx, "customer_email", review.ID, email, ContentThankYou, data))
		}
		if withCoupon {
			record(s.sendEmail(ctx, "customer_email", review.ID, email, ContentCoupon, data))
		}
		if opts.SendGoogleRedirect && company.GoogleReviewURL != "" {
			record(s.sendEmail(ctx, "customer_email", review.ID, email, ContentGoogleRedirect, data))
		}
	}

	if phone := review.ContactPhone(); phone != "" && opts.SendSMS {
		kind := ContentThankYou
		if withCoupon {
			kind = ContentCoupon
		}
		record(s.sendSMS(ctx, review.ID, phone, kind, data))
	}

	if opts.SendMerchantAlert && company.NotificationEmail != "" {
		record(s.sendEmail(ctx, "merchant_email", review.ID, company.NotificationEmail, ContentFeedback, data))
	}

	if opts.PublishFeed && s.feed != nil {
		record(s.attempt("merchant_feed", review.ID, func() error {
			return s.feed.PublishToCompany(company.ID, FeedEvent{
				Type:      FeedEventReviewCompleted,
				ReviewID:  review.ID,
				Rating:    review.Rating,
				FlowType:  review.FlowType,
				Issues:    review.FeedbackOptions,
				Comment:   review.CommentText(),
				Timestamp: time.Now(),
			})
		}))
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %w", ErrNotification, errors.Join(failed...))
	}
	return nil
}

// NotifyLotteryWinner 추첨 당첨 안내 (이메일, SMS 순서)
func (s *notificationService) NotifyLotteryWinner(ctx context.Context, entry *model.LotteryEntry, company *model.Company) error {
	data := ContentContext{
		CompanyName: company.Name,
		Prize:       company.LotteryPrize,
	}

	var failed []error
	if entry.Email != nil && *entry.Email != "" {
		if err := s.sendEmail(ctx, "winner_email", entry.ReviewID, *entry.Email, ContentLotteryWin, data); err != nil {
			failed = append(failed, err)
		}
	}
	if entry.Phone != nil && *entry.Phone != "" {
		if err := s.sendSMS(ctx, entry.ReviewID, *entry.Phone, ContentLotteryWin, data); err != nil {
			failed = append(failed, err)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %w", ErrNotification, errors.Join(failed...))
	}
	return nil
}

func (s *notificationService) sendEmail(ctx context.Context, channel, reviewID, to string, kind ContentKind, data ContentContext) error {
	return s.attempt(channel+":"+string(kind), reviewID, func() error {
		content, err := s.content.Generate(kind, data)
		if err != nil {
			return err
		}
		return s.sender.SendEmail(ctx, to, content.Subject, content.HTML, content.Text)
	})
}

func (s *notificationService) sendSMS(ctx context.Context, reviewID, to string, kind ContentKind, data ContentContext) error {
	return s.attempt("customer_sms:"+string(kind), reviewID, func() error {
		content, err := s.content.Generate(kind, data)
		if err != nil {
			return err
		}
		return s.sender.SendSMS(ctx, to, content.Text)
	})
}

// attempt isolates one channel: panics become errors and every failure is logged here.
func (s *notificationService) attempt(channel, reviewID string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", channel, r)
		}
		if err != nil {
			logger.Error("Notification channel failed", err, map[string]interface{}{
				"channel":   channel,
				"review_id": reviewID,
			})
		}
	}()
	return fn()
}
