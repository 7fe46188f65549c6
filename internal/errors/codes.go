package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // 잘못된 입력
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // 잘못된 형식
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"  // 범위 초과
	ValidationRequired      = "VALIDATION_REQUIRED"       // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 매장 (COMPANY_) ====================
	CompanyNotFound          = "COMPANY_NOT_FOUND"          // 매장 없음
	CompanyNoGoogleReviewURL = "COMPANY_NO_GOOGLE_REVIEW"   // 구글 리뷰 주소 미설정
	CompanyFeedTokenInvalid  = "COMPANY_FEED_TOKEN_INVALID" // 피드 토큰 불일치

	// ==================== 리뷰 (REVIEW_) ====================
	ReviewNotFound      = "REVIEW_NOT_FOUND"      // 리뷰 없음
	ReviewInvalidRating = "REVIEW_INVALID_RATING" // 잘못된 평점

	// ==================== 리뷰 플로우 (FLOW_) ====================
	FlowMissingCompany       = "FLOW_MISSING_COMPANY"        // 태그 링크에 매장 정보 없음
	FlowSessionNotFound      = "FLOW_SESSION_NOT_FOUND"      // 세션 없음/만료
	FlowSubmissionInProgress = "FLOW_SUBMISSION_IN_PROGRESS" // 이전 요청 처리 중
	FlowInvalidTransition    = "FLOW_INVALID_TRANSITION"     // 현재 단계에서 불가능한 동작

	// ==================== 보상 (REWARD_) ====================
	RewardCouponExists = "REWARD_COUPON_EXISTS" // 리뷰당 쿠폰 중복
	RewardEntryExists  = "REWARD_ENTRY_EXISTS"  // 리뷰당 응모 중복

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"   // 설정 오류
)
