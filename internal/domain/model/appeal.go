package model

import (
	"time"

	"github.com/Appeals-service/Appeals-service/internal/domain/enums"
)

// Appeal is a citizen-filed complaint record. ExecutorID is non-nil exactly
// when the status is in_progress, done or cancelled.
type Appeal struct {
	ID                 int64                    `json:"id"`
	UserID             string                   `json:"user_id"`
	ExecutorID         *string                  `json:"executor_id,omitempty"`
	Message            string                   `json:"message"`
	Photo              []string                 `json:"photo,omitempty"`
	ResponsibilityArea enums.ResponsibilityArea `json:"responsibility_area"`
	Status             enums.AppealStatus       `json:"status"`
	Comment            *string                  `json:"comment,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}
