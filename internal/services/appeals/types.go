package appeals

import (
	"context"
	"time"

	"github.com/Appeals-service/Appeals-service/internal/domain/enums"
	"github.com/Appeals-service/Appeals-service/internal/domain/model"
)

// ListFilters scopes a list/photo-set query. UserID and ExecutorID are
// mutually exclusive ownership filters; when both are set UserID wins.
type ListFilters struct {
	UserID      string
	ExecutorID  string
	Status      enums.AppealStatus
	Area        enums.ResponsibilityArea
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// MutationFilter is the condition set of a conditional update/delete. Zero
// fields are omitted from the WHERE clause; the id is always present. A
// mutation whose filter matches no row reports not-matched instead of
// distinguishing a missing row from a foreign one.
type MutationFilter struct {
	ID         int64
	UserID     string
	ExecutorID string
	Status     enums.AppealStatus
}

type InsertValues struct {
	UserID  string
	Message string
	Photo   []string
	Area    enums.ResponsibilityArea
	Status  enums.AppealStatus
}

// UpdateValues holds the writable fields of an update; nil means untouched.
type UpdateValues struct {
	Message    *string
	Photo      *[]string
	Area       *enums.ResponsibilityArea
	Status     *enums.AppealStatus
	Comment    *string
	ExecutorID *string
}

// Empty reports whether the value set would change nothing.
func (v UpdateValues) Empty() bool {
	return v.Message == nil && v.Photo == nil && v.Area == nil &&
		v.Status == nil && v.Comment == nil && v.ExecutorID == nil
}

type Store interface {
	Insert(ctx context.Context, values InsertValues) (int64, error)
	SelectList(ctx context.Context, filters ListFilters) ([]model.Appeal, error)
	SelectOne(ctx context.Context, id int64, userID, executorID string) (model.Appeal, bool, error)
	SelectPhotoSets(ctx context.Context, filters ListFilters) ([][]string, error)
	Update(ctx context.Context, filter MutationFilter, values UpdateValues) (model.Appeal, []string, bool, error)
	Delete(ctx context.Context, filter MutationFilter) ([]string, bool, error)
}

// PhotoFile is one uploaded photo in upload order.
type PhotoFile struct {
	Name string
	Data []byte
}

type CreateInput struct {
	Message string
	Area    enums.ResponsibilityArea
	Photos  []PhotoFile
}

// ListQuery is the caller-facing filter set; Self scopes the result to the
// actor's own rows for non-admin roles and is ignored for admins.
type ListQuery struct {
	Status      enums.AppealStatus
	Area        enums.ResponsibilityArea
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
	Self        bool
}

// UserUpdateInput carries the filer-writable fields. A nil Photos slice
// leaves the photo set untouched; a non-nil one replaces it.
type UserUpdateInput struct {
	Message *string
	Area    *enums.ResponsibilityArea
	Photos  []PhotoFile
}

type ExecutorUpdateInput struct {
	Status  *enums.AppealStatus
	Comment *string
}
