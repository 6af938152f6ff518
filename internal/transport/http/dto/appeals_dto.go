package dto

import (
	"time"

	"github.com/Appeals-service/Appeals-service/internal/domain/model"
)

type AppealCreateResponse struct {
	ID int64 `json:"id"`
}

type AppealResponse struct {
	ID                 int64     `json:"id"`
	UserID             string    `json:"user_id"`
	ExecutorID         *string   `json:"executor_id,omitempty"`
	Message            string    `json:"message"`
	Photo              []string  `json:"photo,omitempty"`
	ResponsibilityArea string    `json:"responsibility_area"`
	Status             string    `json:"status"`
	Comment            *string   `json:"comment,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func NewAppealResponse(appeal model.Appeal) AppealResponse {
	return AppealResponse{
		ID:                 appeal.ID,
		UserID:             appeal.UserID,
		ExecutorID:         appeal.ExecutorID,
		Message:            appeal.Message,
		Photo:              appeal.Photo,
		ResponsibilityArea: string(appeal.ResponsibilityArea),
		Status:             string(appeal.Status),
		Comment:            appeal.Comment,
		CreatedAt:          appeal.CreatedAt,
		UpdatedAt:          appeal.UpdatedAt,
	}
}

func NewAppealListResponse(appeals []model.Appeal) []AppealResponse {
	out := make([]AppealResponse, 0, len(appeals))
	for _, appeal := range appeals {
		out = append(out, NewAppealResponse(appeal))
	}
	return out
}

type ExecutorAppealUpdateRequest struct {
	Status  *string `json:"status"`
	Comment *string `json:"comment"`
}

type AssignRequest struct {
	ExecutorID string `json:"executor_id"`
}
