package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ConfigurationError: 태그 링크에 매장 정보가 없거나 잘못됨
	ErrMissingCompany          = errors.New("company id is required")
	ErrCompanyNotFound         = errors.New("company not found")
	ErrGoogleReviewUnavailable = errors.New("company has no google review url")

	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrValidation is wrapped by *FieldError
	ErrValidation = errors.New("validation failed")

	// ErrPersistence wraps store failures and store timeouts. Always retryable by the user.
	ErrPersistence = errors.New("review store operation failed")

	// 후속 작업 실패 (로그 전용, 사용자에게 노출하지 않음)
	ErrRewardIssuance = errors.New("reward issuance failed")
	ErrNotification   = errors.New("notification dispatch failed")

	ErrSubmissionInProgress = errors.New("another submission is in progress")
	ErrInvalidTransition    = errors.New("action not allowed in current flow state")
	ErrSessionNotFound      = errors.New("flow session not found")
	ErrReviewNotFound       = errors.New("review not found")
	ErrInvalidFeedToken     = errors.New("invalid feed token")
)

// FieldError 필드 단위 검증 오류
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

func newFieldError(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// storeError classifies a repository failure as ErrPersistence.
// Record-not-found additionally matches ErrReviewNotFound.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s: %w", ErrPersistence, op, ErrReviewNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s timed out: %v", ErrPersistence, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
	}
}

// optionalString maps blank input to a NULL column.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
