package model

import "time"

// FlowState 리뷰 플로우 상태
type FlowState string

const (
	FlowStateIdle            FlowState = "idle"
	FlowStateFeedbackPending FlowState = "feedback_pending"
	FlowStateRedirecting     FlowState = "redirecting"
	FlowStateCompleted       FlowState = "completed"
)

// FlowSession 브라우저 세션 하나의 진행 중 상태.
// Issues/Comment/Email/Phone 은 화면 기준(local view)이며 리뷰 레코드와 다를 수 있다.
type FlowSession struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	State     FlowState `json:"state"`

	Rating   int    `json:"rating,omitempty"`
	ReviewID string `json:"review_id,omitempty"`

	Issues  []string `json:"issues"`
	Comment string   `json:"comment,omitempty"`
	Email   string   `json:"email,omitempty"`
	Phone   string   `json:"phone,omitempty"`

	// 팝업이 차단되었을 때 사용자가 직접 눌러야 하는 링크
	ManualRedirectURL string `json:"manual_redirect_url,omitempty"`

	RewardClaimed bool      `json:"reward_claimed,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewFlowSession creates an idle session for a company.
func NewFlowSession(id, companyID string) *FlowSession {
	return &FlowSession{
		ID:        id,
		CompanyID: companyID,
		State:     FlowStateIdle,
		Issues:    []string{},
		UpdatedAt: time.Now(),
	}
}
