package enums

import "fmt"

// AppealStatus values are persisted as their string tag.
type AppealStatus string

const (
	AppealStatusAccepted   AppealStatus = "accepted"
	AppealStatusInProgress AppealStatus = "in_progress"
	AppealStatusDone       AppealStatus = "done"
	AppealStatusCancelled  AppealStatus = "cancelled"
	AppealStatusRejected   AppealStatus = "rejected"
)

func ParseAppealStatus(value string) (AppealStatus, error) {
	switch AppealStatus(value) {
	case AppealStatusAccepted, AppealStatusInProgress, AppealStatusDone, AppealStatusCancelled, AppealStatusRejected:
		return AppealStatus(value), nil
	default:
		return "", fmt.Errorf("unknown appeal status %q", value)
	}
}

// Terminal reports whether no transition leaves the status.
func (s AppealStatus) Terminal() bool {
	switch s {
	case AppealStatusDone, AppealStatusCancelled, AppealStatusRejected:
		return true
	default:
		return false
	}
}
