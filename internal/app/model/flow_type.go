package model

// FlowType 별점에 따른 리뷰 플로우 분류
type FlowType string

const (
	FlowTypeLowRating              FlowType = "low_rating"
	FlowTypeMidRating              FlowType = "mid_rating"
	FlowTypeHighRatingGamification FlowType = "high_rating_gamification"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating 별점이 1~5 범위인지 확인
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// ClassifyRating 별점을 플로우 타입으로 분류한다.
// 호출자는 ValidRating으로 범위를 먼저 확인해야 한다.
func ClassifyRating(rating int) FlowType {
	switch {
	case rating >= MaxRating:
		return FlowTypeHighRatingGamification
	case rating == 4:
		return FlowTypeMidRating
	default:
		return FlowTypeLowRating
	}
}

// ShowsFeedbackForm 피드백 폼을 보여주는 플로우인지 여부
func (f FlowType) ShowsFeedbackForm() bool {
	return f == FlowTypeLowRating || f == FlowTypeMidRating
}

// ToggleIssue returns a new issue set with issue added if absent or removed if present.
// The input slice is never modified.
func ToggleIssue(issues []string, issue string) []string {
	result := make([]string, 0, len(issues)+1)
	found := false
	for _, existing := range issues {
		if existing == issue {
			found = true
			continue
		}
		result = append(result, existing)
	}
	if !found {
		result = append(result, issue)
	}
	return result
}

// NormalizeIssues 중복 및 빈 값 제거 (순서 유지)
func NormalizeIssues(issues []string) []string {
	seen := make(map[string]bool, len(issues))
	result := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue == "" || seen[issue] {
			continue
		}
		seen[issue] = true
		result = append(result, issue)
	}
	return result
}
