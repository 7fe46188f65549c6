package errors

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code      string // 에러 코드 (codes.go 참조)
	Message   string // 사용자 친화적 메시지
	Retryable bool
}

// ParseError 저장소/드라이버 에러를 사용자 친화적인 메시지와 코드로 변환
// 보안상 민감한 정보는 숨긴다
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "서버 오류가 발생했습니다",
		}
	}

	errLower := strings.ToLower(err.Error())

	// 1. GORM 기본 에러 (TranslateError 사용)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return getNotFoundInfo(context)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(errLower, "duplicate key") ||
		strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower, context)
	}

	// 2. 시간 초과 / 연결 실패 - 재시도 가능
	if isTransient(err, errLower) {
		return ErrorInfo{
			Code:      InternalDatabaseError,
			Message:   "일시적인 오류가 발생했습니다. 다시 시도해주세요",
			Retryable: true,
		}
	}

	// 3. Not null constraint violation (23502)
	if strings.Contains(errLower, "null value") && strings.Contains(errLower, "violates not-null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "필수 항목이 누락되었습니다"}
	}

	// 4. Check constraint violation (23514)
	if strings.Contains(errLower, "check constraint") {
		if strings.Contains(errLower, "rating") {
			return ErrorInfo{Code: ReviewInvalidRating, Message: "평점은 1~5 사이의 값이어야 합니다"}
		}
		return ErrorInfo{Code: ValidationInvalidInput, Message: "입력값이 유효하지 않습니다"}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요",
	}
}

func isTransient(err error, errLower string) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "connection reset") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "database is locked")
}

// parseDuplicateKeyError Unique constraint 위반 에러 파싱
func parseDuplicateKeyError(errLower string, context string) ErrorInfo {
	contextLower := strings.ToLower(context)

	if strings.Contains(errLower, "coupons") || strings.Contains(contextLower, "coupon") {
		return ErrorInfo{Code: RewardCouponExists, Message: "이미 쿠폰이 발급된 리뷰입니다"}
	}
	if strings.Contains(errLower, "lottery_entries") || strings.Contains(contextLower, "lottery") {
		return ErrorInfo{Code: RewardEntryExists, Message: "이미 응모한 리뷰입니다"}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "이미 존재하는 데이터입니다",
	}
}

// getNotFoundInfo context에 따른 Not Found 코드/메시지
func getNotFoundInfo(context string) ErrorInfo {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "company") || strings.Contains(contextLower, "매장"):
		return ErrorInfo{Code: CompanyNotFound, Message: "매장을 찾을 수 없습니다"}
	case strings.Contains(contextLower, "review") || strings.Contains(contextLower, "리뷰"):
		return ErrorInfo{Code: ReviewNotFound, Message: "리뷰를 찾을 수 없습니다"}
	case strings.Contains(contextLower, "session") || strings.Contains(contextLower, "세션"):
		return ErrorInfo{Code: FlowSessionNotFound, Message: "세션이 만료되었습니다. 태그를 다시 스캔해주세요"}
	}
	return ErrorInfo{Code: ResourceNotFound, Message: "요청한 데이터를 찾을 수 없습니다"}
}

// ParseAndRespond 에러를 파싱하여 응답 반환 (헬퍼 함수)
// controller에서 간편하게 사용할 수 있도록
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:     errorInfo.Code,
		Message:   errorInfo.Message,
		Retryable: errorInfo.Retryable,
	})
}
