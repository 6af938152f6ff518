// Package appeals enforces the appeal lifecycle: role-scoped state
// transitions executed as conditional store writes, with storage and broker
// side effects dispatched only after the write has committed.
package appeals

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Appeals-service/Appeals-service/internal/domain/enums"
	"github.com/Appeals-service/Appeals-service/internal/domain/model"
	"github.com/Appeals-service/Appeals-service/internal/services/auth"
	"github.com/Appeals-service/Appeals-service/internal/services/dispatch"
)

const (
	messageMinLen = 10
	messageMaxLen = 500
)

// Effects is the post-commit side-effect surface. Nothing here may fail the
// call that triggered it.
type Effects interface {
	UploadPhotos(files map[string][]byte)
	DeletePhotos(keys []string)
	PublishNotification(n dispatch.Notification)
	PublishAuditLog(level enums.LogLevel, message string)
	Submit(name string, fn func(context.Context) error)
}

// EmailLookup resolves a notification recipient through the authorization
// gateway; the raw (status, body) pair is the gateway's contract.
type EmailLookup interface {
	UserEmail(ctx context.Context, userID string) (int, []byte, error)
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Service struct {
	store    Store
	effects  Effects
	emails   EmailLookup
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewService(store Store, effects Effects, emails EmailLookup, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		effects: effects,
		emails:  emails,
		logger:  log,
	}
}

// AttachCache enables read-path caching for list and get operations.
func (s *Service) AttachCache(cache Cache, ttl time.Duration) {
	s.cache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	} else {
		s.cacheTTL = time.Minute
	}
}

// Create files a new appeal on behalf of the actor; the row always starts in
// the accepted status with no executor.
func (s *Service) Create(ctx context.Context, actor auth.Identity, in CreateInput) (int64, error) {
	if !createRoles[actor.Role] {
		return 0, ErrForbidden
	}
	if err := validateMessage(in.Message); err != nil {
		return 0, err
	}
	if in.Area == "" {
		return 0, fmt.Errorf("%w: responsibility area is required", ErrValidation)
	}
	if s.store == nil {
		return 0, fmt.Errorf("appeal store is not configured")
	}

	keys, files, err := photoObjects(actor.UserID, in.Photos)
	if err != nil {
		return 0, err
	}

	id, err := s.store.Insert(ctx, InsertValues{
		UserID:  actor.UserID,
		Message: in.Message,
		Photo:   keys,
		Area:    in.Area,
		Status:  enums.AppealStatusAccepted,
	})
	if err != nil {
		return 0, err
	}

	if s.effects != nil {
		if len(files) > 0 {
			s.effects.UploadPhotos(files)
		}
		s.effects.PublishAuditLog(enums.LogLevelInfo,
			fmt.Sprintf("appeal %d created by user %s", id, actor.UserID))
	}
	s.logger.Info("appeal created",
		zap.Int64("appeal_id", id),
		zap.String("user_id", actor.UserID),
		zap.String("area", string(in.Area)),
	)

	return id, nil
}

// List returns appeals visible to the actor. Self scoping applies the
// role-matching ownership filter; admins always see everything.
func (s *Service) List(ctx context.Context, actor auth.Identity, q ListQuery) ([]model.Appeal, error) {
	if s.store == nil {
		return nil, fmt.Errorf("appeal store is not configured")
	}

	filters := ListFilters{
		Status:      q.Status,
		Area:        q.Area,
		CreatedFrom: q.CreatedFrom,
		CreatedTo:   q.CreatedTo,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if q.Self {
		switch actor.Role {
		case enums.RoleUser:
			filters.UserID = actor.UserID
		case enums.RoleExecutor:
			filters.ExecutorID = actor.UserID
		}
	}

	key := cacheKey("appeals_list", actor, filters)
	if cached, ok := s.cachedRows(ctx, key); ok {
		return cached, nil
	}

	rows, err := s.store.SelectList(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("select appeals: %w", err)
	}

	s.storeRows(key, rows)
	return rows, nil
}

// Get returns one appeal, scoped to the actor's ownership for non-admins.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id int64) (model.Appeal, error) {
	if id <= 0 {
		return model.Appeal{}, fmt.Errorf("%w: invalid appeal id", ErrValidation)
	}
	if s.store == nil {
		return model.Appeal{}, fmt.Errorf("appeal store is not configured")
	}

	var userID, executorID string
	switch actor.Role {
	case enums.RoleUser:
		userID = actor.UserID
	case enums.RoleExecutor:
		executorID = actor.UserID
	}

	key := cacheKey("appeal_detail", actor, id)
	if cached, ok := s.cachedRow(ctx, key); ok {
		return cached, nil
	}

	row, found, err := s.store.SelectOne(ctx, id, userID, executorID)
	if err != nil {
		return model.Appeal{}, fmt.Errorf("select appeal: %w", err)
	}
	if !found {
		return model.Appeal{}, ErrNotFound
	}

	s.storeRow(key, row)
	return row, nil
}

// UserUpdate edits the filer-writable fields. For the filer role the write
// only matches an owned row still in the accepted status; an admin edit is
// unconditional.
func (s *Service) UserUpdate(ctx context.Context, actor auth.Identity, id int64, in UserUpdateInput) (model.Appeal, error) {
	filter, ok := mutationFilter(opUserEdit, actor.Role, actor.UserID, id)
	if !ok {
		return model.Appeal{}, ErrForbidden
	}
	if in.Message == nil && in.Area == nil && in.Photos == nil {
		return model.Appeal{}, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if in.Message != nil {
		if err := validateMessage(*in.Message); err != nil {
			return model.Appeal{}, err
		}
	}
	if s.store == nil {
		return model.Appeal{}, fmt.Errorf("appeal store is not configured")
	}

	values := UpdateValues{
		Message: in.Message,
		Area:    in.Area,
	}

	var newFiles map[string][]byte
	if in.Photos != nil {
		keys, files, err := photoObjects(actor.UserID, in.Photos)
		if err != nil {
			return model.Appeal{}, err
		}
		values.Photo = &keys
		newFiles = files
	}

	row, priorPhotos, matched, err := s.store.Update(ctx, filter, values)
	if err != nil {
		return model.Appeal{}, err
	}
	if !matched {
		return model.Appeal{}, ErrNotFound
	}

	if in.Photos != nil && s.effects != nil {
		// Old objects are removed and new ones stored concurrently; a
		// transient window with both or neither visible is accepted.
		if len(priorPhotos) > 0 {
			s.effects.DeletePhotos(priorPhotos)
		}
		if len(newFiles) > 0 {
			s.effects.UploadPhotos(newFiles)
		}
	}
	if s.effects != nil {
		s.effects.PublishAuditLog(enums.LogLevelInfo,
			fmt.Sprintf("appeal %d updated by user %s", id, actor.UserID))
	}

	return row, nil
}

// ExecutorUpdate closes or annotates an appeal. The executor filter requires
// assignment to the actor and the in_progress status; the admin filter is
// unconditional. A status change publishes a notification to the filer, and
// an unreachable recipient fails the call even though the row is committed.
func (s *Service) ExecutorUpdate(ctx context.Context, actor auth.Identity, id int64, in ExecutorUpdateInput) (model.Appeal, error) {
	filter, ok := mutationFilter(opExecutorEdit, actor.Role, actor.UserID, id)
	if !ok {
		return model.Appeal{}, ErrForbidden
	}
	if in.Status == nil && in.Comment == nil {
		return model.Appeal{}, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if in.Status != nil {
		if !in.Status.Terminal() {
			return model.Appeal{}, fmt.Errorf("%w: status %q is not a closing status", ErrValidation, *in.Status)
		}
		// Rejection happens straight from accepted, which only the admin's
		// unconditional filter can reach.
		if *in.Status == enums.AppealStatusRejected && actor.Role != enums.RoleAdmin {
			return model.Appeal{}, fmt.Errorf("%w: status %q is not a closing status", ErrValidation, *in.Status)
		}
	}
	if s.store == nil {
		return model.Appeal{}, fmt.Errorf("appeal store is not configured")
	}

	row, _, matched, err := s.store.Update(ctx, filter, UpdateValues{
		Status:  in.Status,
		Comment: in.Comment,
	})
	if err != nil {
		return model.Appeal{}, err
	}
	if !matched {
		return model.Appeal{}, ErrNotFound
	}

	if in.Status != nil {
		if err := s.notifyFiler(ctx, row); err != nil {
			return model.Appeal{}, err
		}
	}
	if s.effects != nil {
		s.effects.PublishAuditLog(enums.LogLevelInfo,
			fmt.Sprintf("appeal %d moved to %s by %s", id, row.Status, actor.UserID))
	}

	return row, nil
}

// Assign puts an accepted appeal into work. Executors self-assign; admins
// must name the target executor explicitly.
func (s *Service) Assign(ctx context.Context, actor auth.Identity, id int64, executorID string) (model.Appeal, error) {
	filter, ok := mutationFilter(opAssign, actor.Role, actor.UserID, id)
	if !ok {
		return model.Appeal{}, ErrForbidden
	}

	target := executorID
	switch actor.Role {
	case enums.RoleExecutor:
		target = actor.UserID
	case enums.RoleAdmin:
		if target == "" {
			return model.Appeal{}, fmt.Errorf("%w: executor id is required", ErrValidation)
		}
	}
	if s.store == nil {
		return model.Appeal{}, fmt.Errorf("appeal store is not configured")
	}

	inProgress := enums.AppealStatusInProgress
	row, _, matched, err := s.store.Update(ctx, filter, UpdateValues{
		ExecutorID: &target,
		Status:     &inProgress,
	})
	if err != nil {
		return model.Appeal{}, err
	}
	if !matched {
		return model.Appeal{}, ErrNotFound
	}

	if s.effects != nil {
		s.effects.PublishAuditLog(enums.LogLevelInfo,
			fmt.Sprintf("appeal %d assigned to executor %s", id, target))
	}

	return row, nil
}

// Delete removes an appeal; the filer can only delete an owned accepted row,
// an admin any row. Photo objects are removed after the row is gone.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id int64) error {
	filter, ok := mutationFilter(opDelete, actor.Role, actor.UserID, id)
	if !ok {
		return ErrForbidden
	}
	if s.store == nil {
		return fmt.Errorf("appeal store is not configured")
	}

	photoKeys, matched, err := s.store.Delete(ctx, filter)
	if err != nil {
		return err
	}
	if !matched {
		return ErrNotFound
	}

	if s.effects != nil {
		if len(photoKeys) > 0 {
			s.effects.DeletePhotos(photoKeys)
		}
		s.effects.PublishAuditLog(enums.LogLevelInfo,
			fmt.Sprintf("appeal %d deleted by %s", id, actor.UserID))
	}

	return nil
}

func (s *Service) notifyFiler(ctx context.Context, row model.Appeal) error {
	if s.emails == nil {
		return fmt.Errorf("%w: notification recipient lookup is not configured", ErrBadRequest)
	}

	status, body, err := s.emails.UserEmail(ctx, row.UserID)
	if err != nil {
		return fmt.Errorf("%w: resolve recipient email: %v", ErrBadRequest, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: recipient email lookup returned status %d", ErrBadRequest, status)
	}

	email := strings.Trim(strings.TrimSpace(string(body)), `"`)
	comment := ""
	if row.Comment != nil {
		comment = *row.Comment
	}

	if s.effects != nil {
		s.effects.PublishNotification(dispatch.Notification{
			Email:    email,
			AppealID: row.ID,
			Status:   string(row.Status),
			Comment:  comment,
		})
	}

	return nil
}

func (s *Service) cachedRows(ctx context.Context, key string) ([]model.Appeal, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, hit, err := s.cache.Get(ctx, key)
	if err != nil || !hit {
		return nil, false
	}
	var rows []model.Appeal
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *Service) cachedRow(ctx context.Context, key string) (model.Appeal, bool) {
	if s.cache == nil {
		return model.Appeal{}, false
	}
	data, hit, err := s.cache.Get(ctx, key)
	if err != nil || !hit {
		return model.Appeal{}, false
	}
	var row model.Appeal
	if err := json.Unmarshal(data, &row); err != nil {
		return model.Appeal{}, false
	}
	return row, true
}

func (s *Service) storeRows(key string, rows []model.Appeal) {
	if s.cache == nil || s.effects == nil {
		return
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return
	}
	ttl := s.cacheTTL
	s.effects.Submit("cache appeals list", func(ctx context.Context) error {
		return s.cache.Set(ctx, key, payload, ttl)
	})
}

func (s *Service) storeRow(key string, row model.Appeal) {
	if s.cache == nil || s.effects == nil {
		return
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return
	}
	ttl := s.cacheTTL
	s.effects.Submit("cache appeal detail", func(ctx context.Context) error {
		return s.cache.Set(ctx, key, payload, ttl)
	})
}

func validateMessage(message string) error {
	length := utf8.RuneCountInString(message)
	if length < messageMinLen || length > messageMaxLen {
		return fmt.Errorf("%w: message length must be between %d and %d characters",
			ErrValidation, messageMinLen, messageMaxLen)
	}
	return nil
}

// photoObjects builds storage keys scoped by the owner id, preserving upload
// order, plus the key→content map handed to the dispatcher.
func photoObjects(userID string, photos []PhotoFile) ([]string, map[string][]byte, error) {
	if photos == nil {
		return nil, nil, nil
	}

	keys := make([]string, 0, len(photos))
	files := make(map[string][]byte, len(photos))
	for _, photo := range photos {
		name := path.Base(strings.TrimSpace(photo.Name))
		if name == "" || name == "." || name == "/" {
			return nil, nil, fmt.Errorf("%w: photo file name is required", ErrValidation)
		}
		key := userID + "_" + name
		keys = append(keys, key)
		files[key] = photo.Data
	}

	return keys, files, nil
}

func cacheKey(parts ...any) string {
	raw, _ := json.Marshal(parts)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
