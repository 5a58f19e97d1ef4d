package model

import "time"

type AuthAction string

const (
	ActionLoginSuccess    AuthAction = "login.success"
	ActionLoginFailure    AuthAction = "login.failure"
	ActionTokenRefresh    AuthAction = "token.refresh"
	ActionTokenCompromise AuthAction = "token.compromise"
	ActionLogout          AuthAction = "logout"
	ActionAccountFind     AuthAction = "account.find"
	ActionPasswordReset   AuthAction = "password.reset"
	ActionRecoveryBlocked AuthAction = "recovery.blocked"
)

const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

// AuthEvent is one row of the authentication audit trail. It never carries
// passwords or token strings.
type AuthEvent struct {
	ID         int64      `json:"id"`
	Action     AuthAction `json:"action"`
	OccurredAt time.Time  `json:"occurred_at"`
	MemberID   *int64     `json:"member_id,omitempty"`
	Email      string     `json:"email,omitempty"`
	IP         string     `json:"ip,omitempty"`
	Status     string     `json:"status"`
	Detail     string     `json:"detail,omitempty"`
}

type AuthEventQuery struct {
	Action   string
	MemberID *int64
	Status   string
	From     time.Time
	To       time.Time
	Page     int
	Limit    int
}

func (q *AuthEventQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
}

type AuthEventList struct {
	Items []AuthEvent `json:"items"`
}
