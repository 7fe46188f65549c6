package service

import (
	"context"
	"errors"

	"github.com/tagreview/tagreview-backend/pkg/logger"
	"github.com/tagreview/tagreview-backend/pkg/messaging/resend"
	"github.com/tagreview/tagreview-backend/pkg/messaging/twilio"
)

// ErrChannelNotConfigured is returned by a sender whose provider has no credentials.
var ErrChannelNotConfigured = errors.New("notification channel not configured")

// NotificationSender 이메일/SMS 발송 인터페이스
type NotificationSender interface {
	SendEmail(ctx context.Context, to, subject, html, text string) error
	SendSMS(ctx context.Context, to, text string) error
}

type messagingSender struct {
	email *resend.Client
	sms   *twilio.Client
}

// NewMessagingSender sends email through Resend and SMS through Twilio.
// Either client may be nil; that channel then fails with ErrChannelNotConfigured.
func NewMessagingSender(email *resend.Client, sms *twilio.Client) NotificationSender {
	return &messagingSender{email: email, sms: sms}
}

func (s *messagingSender) SendEmail(ctx context.Context, to, subject, html, text string) error {
	if s.email == nil {
		return ErrChannelNotConfigured
	}
	_, err := s.email.Send(ctx, resend.SendEmailRequest{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    text,
	})
	return err
}

func (s *messagingSender) SendSMS(ctx context.Context, to, text string) error {
	if s.sms == nil {
		return ErrChannelNotConfigured
	}
	_, err := s.sms.SendSMS(ctx, to, text)
	return err
}

type logSender struct{}

// NewLogSender only logs messages. Used in development when no provider is configured.
func NewLogSender() NotificationSender {
	return logSender{}
}

func (logSender) SendEmail(ctx context.Context, to, subject, html, text string) error {
	logger.Info("Email (log only)", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}

func (logSender) SendSMS(ctx context.Context, to, text string) error {
	logger.Info("SMS (log only)", map[string]interface{}{
		"to":   to,
		"text": text,
	})
	return nil
}
