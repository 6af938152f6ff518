package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	appealsvc "github.com/Appeals-service/Appeals-service/internal/services/appeals"

	"github.com/Appeals-service/Appeals-service/internal/domain/model"
)

const appealColumns = "id, user_id, executor_id, message, photo, responsibility_area, status, comment, created_at, updated_at"

type AppealRepo struct {
	pool *pgxpool.Pool
}

func NewAppealRepo(pool *pgxpool.Pool) *AppealRepo {
	return &AppealRepo{pool: pool}
}

func (r *AppealRepo) Insert(ctx context.Context, values appealsvc.InsertValues) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
INSERT INTO appeals (user_id, message, photo, responsibility_area, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
RETURNING id
`, values.UserID, values.Message, values.Photo, string(values.Area), string(values.Status)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", appealsvc.ErrConflict, constraintDetail(err))
		}
		return 0, fmt.Errorf("insert appeal: %w", err)
	}

	return id, nil
}

func (r *AppealRepo) SelectList(ctx context.Context, filters appealsvc.ListFilters) ([]model.Appeal, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	where, args := listWhere(filters)
	query := "SELECT " + appealColumns + " FROM appeals" + where + " ORDER BY id ASC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select appeals: %w", err)
	}
	defer rows.Close()

	appeals := make([]model.Appeal, 0)
	for rows.Next() {
		appeal, err := scanAppeal(rows)
		if err != nil {
			return nil, err
		}
		appeals = append(appeals, appeal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appeals: %w", err)
	}

	return appeals, nil
}

func (r *AppealRepo) SelectOne(ctx context.Context, id int64, userID, executorID string) (model.Appeal, bool, error) {
	if r.pool == nil {
		return model.Appeal{}, false, fmt.Errorf("postgres pool is nil")
	}

	conditions := []string{"id = $1"}
	args := []any{id}
	if userID != "" {
		args = append(args, userID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if executorID != "" {
		args = append(args, executorID)
		conditions = append(conditions, fmt.Sprintf("executor_id = $%d", len(args)))
	}

	query := "SELECT " + appealColumns + " FROM appeals WHERE " + strings.Join(conditions, " AND ")
	appeal, err := scanAppeal(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appeal{}, false, nil
	}
	if err != nil {
		return model.Appeal{}, false, err
	}

	return appeal, true, nil
}

func (r *AppealRepo) SelectPhotoSets(ctx context.Context, filters appealsvc.ListFilters) ([][]string, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	where, args := listWhere(filters)
	rows, err := r.pool.Query(ctx, "SELECT photo FROM appeals"+where+" ORDER BY id ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("select photo sets: %w", err)
	}
	defer rows.Close()

	sets := make([][]string, 0)
	for rows.Next() {
		var photos []string
		if err := rows.Scan(&photos); err != nil {
			return nil, fmt.Errorf("scan photo set: %w", err)
		}
		sets = append(sets, photos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo sets: %w", err)
	}

	return sets, nil
}

// Update applies the changes to the single row matching the filter. The prior
// photo set is read under lock in the same transaction so the caller can
// reconcile object storage; matched=false means the filter hit nothing.
func (r *AppealRepo) Update(ctx context.Context, filter appealsvc.MutationFilter, values appealsvc.UpdateValues) (model.Appeal, []string, bool, error) {
	if values.Empty() {
		return model.Appeal{}, nil, false, fmt.Errorf("%w: no fields to update", appealsvc.ErrBadRequest)
	}

	var (
		appeal      model.Appeal
		priorPhotos []string
		matched     bool
	)
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		where, args := mutationWhere(filter)

		err := tx.QueryRow(ctx, "SELECT photo FROM appeals"+where+" FOR UPDATE", args...).Scan(&priorPhotos)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock appeal row: %w", err)
		}

		assignments, args := updateSet(values, args)
		query := "UPDATE appeals SET " + strings.Join(assignments, ", ") + where + " RETURNING " + appealColumns

		appeal, err = scanAppeal(tx.QueryRow(ctx, query, args...))
		if err != nil {
			return err
		}

		matched = true
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return model.Appeal{}, nil, false, fmt.Errorf("%w: %s", appealsvc.ErrConflict, constraintDetail(err))
		}
		return model.Appeal{}, nil, false, err
	}
	if !matched {
		return model.Appeal{}, nil, false, nil
	}

	return appeal, priorPhotos, true, nil
}

func (r *AppealRepo) Delete(ctx context.Context, filter appealsvc.MutationFilter) ([]string, bool, error) {
	if r.pool == nil {
		return nil, false, fmt.Errorf("postgres pool is nil")
	}

	where, args := mutationWhere(filter)
	var photos []string
	err := r.pool.QueryRow(ctx, "DELETE FROM appeals"+where+" RETURNING photo", args...).Scan(&photos)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("delete appeal: %w", err)
	}

	return photos, true, nil
}

// Ping reports storage liveness for the health endpoint.
func (r *AppealRepo) Ping(ctx context.Context) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	return r.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppeal(row rowScanner) (model.Appeal, error) {
	var appeal model.Appeal
	err := row.Scan(
		&appeal.ID,
		&appeal.UserID,
		&appeal.ExecutorID,
		&appeal.Message,
		&appeal.Photo,
		&appeal.ResponsibilityArea,
		&appeal.Status,
		&appeal.Comment,
		&appeal.CreatedAt,
		&appeal.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appeal{}, err
	}
	if err != nil {
		return model.Appeal{}, fmt.Errorf("scan appeal: %w", err)
	}
	return appeal, nil
}

// listWhere builds the WHERE clause of a list query. UserID takes precedence
// over ExecutorID; CreatedTo is widened by a day so the filter is inclusive
// of the named date.
func listWhere(filters appealsvc.ListFilters) (string, []any) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 4)

	switch {
	case filters.UserID != "":
		args = append(args, filters.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	case filters.ExecutorID != "":
		args = append(args, filters.ExecutorID)
		conditions = append(conditions, fmt.Sprintf("executor_id = $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, string(filters.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.Area != "" {
		args = append(args, string(filters.Area))
		conditions = append(conditions, fmt.Sprintf("responsibility_area = $%d", len(args)))
	}
	if filters.CreatedFrom != nil {
		args = append(args, *filters.CreatedFrom)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filters.CreatedTo != nil {
		args = append(args, filters.CreatedTo.Add(24*time.Hour))
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func mutationWhere(filter appealsvc.MutationFilter) (string, []any) {
	conditions := []string{"id = $1"}
	args := []any{filter.ID}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.ExecutorID != "" {
		args = append(args, filter.ExecutorID)
		conditions = append(conditions, fmt.Sprintf("executor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

func updateSet(values appealsvc.UpdateValues, args []any) ([]string, []any) {
	assignments := make([]string, 0, 7)

	if values.Message != nil {
		args = append(args, *values.Message)
		assignments = append(assignments, fmt.Sprintf("message = $%d", len(args)))
	}
	if values.Photo != nil {
		args = append(args, *values.Photo)
		assignments = append(assignments, fmt.Sprintf("photo = $%d", len(args)))
	}
	if values.Area != nil {
		args = append(args, string(*values.Area))
		assignments = append(assignments, fmt.Sprintf("responsibility_area = $%d", len(args)))
	}
	if values.Status != nil {
		args = append(args, string(*values.Status))
		assignments = append(assignments, fmt.Sprintf("status = $%d", len(args)))
	}
	if values.Comment != nil {
		args = append(args, *values.Comment)
		assignments = append(assignments, fmt.Sprintf("comment = $%d", len(args)))
	}
	if values.ExecutorID != nil {
		args = append(args, *values.ExecutorID)
		assignments = append(assignments, fmt.Sprintf("executor_id = $%d", len(args)))
	}
	assignments = append(assignments, "updated_at = NOW()")

	return assignments, args
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func constraintDetail(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Detail != "" {
			return pgErr.Detail
		}
		return pgErr.Message
	}
	return err.Error()
}
