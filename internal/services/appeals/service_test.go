package appeals

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Appeals-service/Appeals-service/internal/domain/enums"
	"github.com/Appeals-service/Appeals-service/internal/domain/model"
	"github.com/Appeals-service/Appeals-service/internal/services/auth"
	"github.com/Appeals-service/Appeals-service/internal/services/dispatch"
)

type memStore struct {
	rows       map[int64]model.Appeal
	nextID     int64
	lastList   ListFilters
	updateHits int
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]model.Appeal{}, nextID: 1}
}

func (m *memStore) matches(f MutationFilter, row model.Appeal) bool {
	if f.ID != row.ID {
		return false
	}
	if f.UserID != "" && f.UserID != row.UserID {
		return false
	}
	if f.ExecutorID != "" && (row.ExecutorID == nil || *row.ExecutorID != f.ExecutorID) {
		return false
	}
	if f.Status != "" && f.Status != row.Status {
		return false
	}
	return true
}

func (m *memStore) Insert(_ context.Context, values InsertValues) (int64, error) {
	id := m.nextID
	m.nextID++
	m.rows[id] = model.Appeal{
		ID:                 id,
		UserID:             values.UserID,
		Message:            values.Message,
		Photo:              values.Photo,
		ResponsibilityArea: values.Area,
		Status:             values.Status,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	return id, nil
}

func (m *memStore) SelectList(_ context.Context, filters ListFilters) ([]model.Appeal, error) {
	m.lastList = filters
	var out []model.Appeal
	for _, row := range m.rows {
		if filters.UserID != "" && row.UserID != filters.UserID {
			continue
		}
		if filters.ExecutorID != "" && (row.ExecutorID == nil || *row.ExecutorID != filters.ExecutorID) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *memStore) SelectOne(_ context.Context, id int64, userID, executorID string) (model.Appeal, bool, error) {
	row, ok := m.rows[id]
	if !ok {
		return model.Appeal{}, false, nil
	}
	if userID != "" && row.UserID != userID {
		return model.Appeal{}, false, nil
	}
	if executorID != "" && (row.ExecutorID == nil || *row.ExecutorID != executorID) {
		return model.Appeal{}, false, nil
	}
	return row, true, nil
}

func (m *memStore) SelectPhotoSets(_ context.Context, filters ListFilters) ([][]string, error) {
	var out [][]string
	for _, row := range m.rows {
		if filters.UserID != "" && row.UserID != filters.UserID {
			continue
		}
		out = append(out, row.Photo)
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, filter MutationFilter, values UpdateValues) (model.Appeal, []string, bool, error) {
	m.updateHits++
	row, ok := m.rows[filter.ID]
	if !ok || !m.matches(filter, row) {
		return model.Appeal{}, nil, false, nil
	}

	prior := row.Photo
	if values.Message != nil {
		row.Message = *values.Message
	}
	if values.Photo != nil {
		row.Photo = *values.Photo
	}
	if values.Area != nil {
		row.ResponsibilityArea = *values.Area
	}
	if values.Status != nil {
		row.Status = *values.Status
	}
	if values.Comment != nil {
		row.Comment = values.Comment
	}
	if values.ExecutorID != nil {
		row.ExecutorID = values.ExecutorID
	}
	row.UpdatedAt = time.Now()
	m.rows[filter.ID] = row
	return row, prior, true, nil
}

func (m *memStore) Delete(_ context.Context, filter MutationFilter) ([]string, bool, error) {
	row, ok := m.rows[filter.ID]
	if !ok || !m.matches(filter, row) {
		return nil, false, nil
	}
	delete(m.rows, filter.ID)
	return row.Photo, true, nil
}

type recordedEffects struct {
	uploads       []map[string][]byte
	deletions     [][]string
	notifications []dispatch.Notification
	auditLines    []string
}

func (e *recordedEffects) UploadPhotos(files map[string][]byte) { e.uploads = append(e.uploads, files) }
func (e *recordedEffects) DeletePhotos(keys []string)           { e.deletions = append(e.deletions, keys) }
func (e *recordedEffects) PublishNotification(n dispatch.Notification) {
	e.notifications = append(e.notifications, n)
}
func (e *recordedEffects) PublishAuditLog(_ enums.LogLevel, message string) {
	e.auditLines = append(e.auditLines, message)
}
func (e *recordedEffects) Submit(_ string, fn func(context.Context) error) {
	_ = fn(context.Background())
}

type fakeEmails struct {
	status int
	body   string
	err    error
	asked  []string
}

func (f *fakeEmails) UserEmail(_ context.Context, userID string) (int, []byte, error) {
	f.asked = append(f.asked, userID)
	return f.status, []byte(f.body), f.err
}

func newTestService(t *testing.T) (*Service, *memStore, *recordedEffects, *fakeEmails) {
	t.Helper()
	store := newMemStore()
	effects := &recordedEffects{}
	emails := &fakeEmails{status: 200, body: `"filer@mail.test"`}
	return NewService(store, effects, emails, nil), store, effects, emails
}

func filer(id string) auth.Identity    { return auth.Identity{UserID: id, Role: enums.RoleUser} }
func executor(id string) auth.Identity { return auth.Identity{UserID: id, Role: enums.RoleExecutor} }
func admin(id string) auth.Identity    { return auth.Identity{UserID: id, Role: enums.RoleAdmin} }

const validMessage = "the streetlight on the corner has been broken for a week"

func mustCreate(t *testing.T, svc *Service, actor auth.Identity, photos ...PhotoFile) int64 {
	t.Helper()
	id, err := svc.Create(context.Background(), actor, CreateInput{
		Message: validMessage,
		Area:    enums.AreaHousing,
		Photos:  photos,
	})
	if err != nil {
		t.Fatalf("create appeal: %v", err)
	}
	return id
}

func TestCreateStartsAccepted(t *testing.T) {
	svc, store, _, _ := newTestService(t)

	id := mustCreate(t, svc, filer("u1"))

	row := store.rows[id]
	if row.Status != enums.AppealStatusAccepted {
		t.Fatalf("new appeal status = %s, want accepted", row.Status)
	}
	if row.ExecutorID != nil {
		t.Fatalf("new appeal has executor %q", *row.ExecutorID)
	}
}

func TestCreateRejectsExecutorRole(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), executor("e1"), CreateInput{
		Message: validMessage,
		Area:    enums.AreaHousing,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestCreateValidatesMessageLength(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	for _, message := range []string{"short", strings.Repeat("x", 501)} {
		_, err := svc.Create(context.Background(), filer("u1"), CreateInput{
			Message: message,
			Area:    enums.AreaHousing,
		})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("message %q: err = %v, want ErrValidation", message[:5], err)
		}
	}
}

func TestCreatePhotoKeysScopedAndOrdered(t *testing.T) {
	svc, store, effects, _ := newTestService(t)

	id := mustCreate(t, svc, filer("u7"),
		PhotoFile{Name: "front.jpg", Data: []byte{1}},
		PhotoFile{Name: "back.jpg", Data: []byte{2}},
	)

	got := store.rows[id].Photo
	want := []string{"u7_front.jpg", "u7_back.jpg"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("photo keys = %v, want %v", got, want)
	}

	if len(effects.uploads) != 1 {
		t.Fatalf("uploads dispatched = %d, want 1", len(effects.uploads))
	}
	for _, key := range want {
		if _, ok := effects.uploads[0][key]; !ok {
			t.Fatalf("object %q not dispatched for upload", key)
		}
	}
}

func TestUserUpdateOnlyAcceptedOwnRow(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, filer("u1"))

	newMsg := "please also note the pavement is cracked along the block"
	if _, err := svc.UserUpdate(ctx, filer("u1"), id, UserUpdateInput{Message: &newMsg}); err != nil {
		t.Fatalf("edit own accepted appeal: %v", err)
	}

	// A foreign row and an own in-progress row both collapse to not found.
	if _, err := svc.UserUpdate(ctx, filer("u2"), id, UserUpdateInput{Message: &newMsg}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign edit err = %v, want ErrNotFound", err)
	}

	if _, err := svc.Assign(ctx, executor("e1"), id, ""); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.UserUpdate(ctx, filer("u1"), id, UserUpdateInput{Message: &newMsg}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("edit of in-progress appeal err = %v, want ErrNotFound", err)
	}
	if store.rows[id].Status != enums.AppealStatusInProgress {
		t.Fatalf("status = %s, want in_progress untouched", store.rows[id].Status)
	}
}

func TestUserUpdatePhotoReplacementSwapsObjects(t *testing.T) {
	svc, store, effects, _ := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, filer("u3"), PhotoFile{Name: "old.png", Data: []byte{9}})

	_, err := svc.UserUpdate(ctx, filer("u3"), id, UserUpdateInput{
		Photos: []PhotoFile{{Name: "new.png", Data: []byte{4}}},
	})
	if err != nil {
		t.Fatalf("update photos: %v", err)
	}

	if got := store.rows[id].Photo; len(got) != 1 || got[0] != "u3_new.png" {
		t.Fatalf("photo set after update = %v", got)
	}
	if len(effects.deletions) != 1 || effects.deletions[0][0] != "u3_old.png" {
		t.Fatalf("deletions = %v, want the prior object", effects.deletions)
	}
	if _, ok := effects.uploads[len(effects.uploads)-1]["u3_new.png"]; !ok {
		t.Fatal("replacement object not dispatched for upload")
	}
}

func TestExecutorUpdateRequiresAssignmentAndProgress(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, filer("u1"))

	done := enums.AppealStatusDone
	comment := "fixed"

	// Still accepted: even the future assignee cannot close it.
	_, err := svc.ExecutorUpdate(ctx, executor("e1"), id, ExecutorUpdateInput{Status: &done, Comment: &comment})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("close unassigned appeal err = %v, want ErrNotFound", err)
	}

	if _, err := svc.Assign(ctx, executor("e1"), id, ""); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// Assigned to e1: a different executor still cannot touch it.
	_, err = svc.ExecutorUpdate(ctx, executor("e2"), id, ExecutorUpdateInput{Status: &done, Comment: &comment})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign executor err = %v, want ErrNotFound", err)
	}

	row, err := svc.ExecutorUpdate(ctx, executor("e1"), id, ExecutorUpdateInput{Status: &done, Comment: &comment})
	if err != nil {
		t.Fatalf("close by assignee: %v", err)
	}
	if row.Status != enums.AppealStatusDone {
		t.Fatalf("status = %s, want done", row.Status)
	}
}

func TestExecutorUpdateRejectsNonClosingStatus(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	id := mustCreate(t, svc, filer("u1"))

	accepted := enums.AppealStatusAccepted
	_, err := svc.ExecutorUpdate(context.Background(), admin("a1"), id, ExecutorUpdateInput{Status: &accepted})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if store.updateHits != 0 {
		t.Fatal("store reached despite invalid status")
	}
}

func TestClosingPublishesNotificationToFiler(t *testing.T) {
	svc, _, effects, emails := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, filer("u9"))

	if _, err := svc.Assign(ctx, executor("e1"), id, ""); err != nil {
		t.Fatalf("assign: %v", err)
	}

	done := enums.AppealStatusDone
	comment := "replaced the bulb"
	if _, err := svc.ExecutorUpdate(ctx, executor("e1"), id, ExecutorUpdateInput{Status: &done, Comment: &comment}); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(emails.asked) != 1 || emails.asked[0] != "u9" {
		t.Fatalf("email lookups = %v, want [u9]", emails.asked)
	}
	if len(effects.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(effects.notifications))
	}
	n := effects.notifications[0]
	if n.Email != "filer@mail.test" || n.AppealID != id || n.Status != "done" || n.Comment != comment {
		t.Fatalf("notification = %+v", n)
	}
}

func TestClosingFailsWhenRecipientUnreachable(t *testing.T) {
	svc, store, effects, emails := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, filer("u1"))
	if _, err := svc.Assign(ctx, executor("e1"), id, ""); err != nil {
		t.Fatalf("assign: %v", err)
	}

	emails.status = 404
	cancelled := enums.AppealStatusCancelled
	_, err := svc.ExecutorUpdate(ctx, executor("e1"), id, ExecutorUpdateInput{Status: &cancelled})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}

	// The row change is already committed; only the notification failed.
	if store.rows[id].Status != enums.AppealStatusCancelled {
		t.Fatalf("status = %s, want cancelled", store.rows[id].Status)
	}
	if len(effects.notifications) != 0 {
		t.Fatal("notification published despite failed lookup")
	}
}

func TestAssignSelfThenRepeatNotFound(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, filer("u1"))

	row, err := svc.Assign(ctx, executor("e1"), id, "ignored")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if row.ExecutorID == nil || *row.ExecutorID != "e1" {
		t.Fatalf("executor = %v, want e1 (self-assignment ignores the request body)", row.ExecutorID)
	}
	if row.Status != enums.AppealStatusInProgress {
		t.Fatalf("status = %s, want in_progress", row.Status)
	}

	// No longer accepted, so a second claim matches nothing.
	if _, err := svc.Assign(ctx, executor("e2"), id, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second assign err = %v, want ErrNotFound", err)
	}
	if *store.rows[id].ExecutorID != "e1" {
		t.Fatal("assignment overwritten")
	}
}

func TestAssignByAdminRequiresExecutorID(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, filer("u1"))

	if _, err := svc.Assign(ctx, admin("a1"), id, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if store.updateHits != 0 {
		t.Fatal("store reached without an executor id")
	}

	row, err := svc.Assign(ctx, admin("a1"), id, "e5")
	if err != nil {
		t.Fatalf("admin assign: %v", err)
	}
	if row.ExecutorID == nil || *row.ExecutorID != "e5" {
		t.Fatalf("executor = %v, want e5", row.ExecutorID)
	}
}

func TestAssignForbiddenForFiler(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	id := mustCreate(t, svc, filer("u1"))

	if _, err := svc.Assign(context.Background(), filer("u1"), id, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestDeleteRemovesPhotosAndIsIdempotentlyNotFound(t *testing.T) {
	svc, _, effects, _ := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, filer("u1"), PhotoFile{Name: "a.jpg", Data: []byte{1}})

	if err := svc.Delete(ctx, filer("u1"), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(effects.deletions) != 1 || effects.deletions[0][0] != "u1_a.jpg" {
		t.Fatalf("deletions = %v", effects.deletions)
	}

	if err := svc.Delete(ctx, filer("u1"), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeat delete err = %v, want ErrNotFound", err)
	}
}

func TestDeleteForbiddenForExecutor(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	id := mustCreate(t, svc, filer("u1"))

	if err := svc.Delete(context.Background(), executor("e1"), id); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestListSelfScopesByRole(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.List(ctx, filer("u1"), ListQuery{Self: true}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if store.lastList.UserID != "u1" || store.lastList.ExecutorID != "" {
		t.Fatalf("filer self filter = %+v", store.lastList)
	}

	if _, err := svc.List(ctx, executor("e1"), ListQuery{Self: true}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if store.lastList.ExecutorID != "e1" || store.lastList.UserID != "" {
		t.Fatalf("executor self filter = %+v", store.lastList)
	}

	// Admins see everything even with the self flag set.
	if _, err := svc.List(ctx, admin("a1"), ListQuery{Self: true}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if store.lastList.UserID != "" || store.lastList.ExecutorID != "" {
		t.Fatalf("admin self filter = %+v", store.lastList)
	}
}

func TestGetScopedByOwnership(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, filer("u1"))

	if _, err := svc.Get(ctx, filer("u1"), id); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := svc.Get(ctx, filer("u2"), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign get err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, admin("a1"), id); err != nil {
		t.Fatalf("admin get: %v", err)
	}
}

type countingCache struct {
	data map[string][]byte
	gets int
	sets int
}

func (c *countingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.gets++
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.sets++
	c.data[key] = value
	return nil
}

func TestGetServedFromCacheOnRepeat(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	cache := &countingCache{data: map[string][]byte{}}
	svc.AttachCache(cache, time.Minute)
	ctx := context.Background()
	id := mustCreate(t, svc, filer("u1"))

	first, err := svc.Get(ctx, filer("u1"), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}

	// Mutate the backing row: a cache hit must serve the stale copy.
	row := store.rows[id]
	row.Message = "changed behind the cache"
	store.rows[id] = row

	second, err := svc.Get(ctx, filer("u1"), id)
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if second.Message != first.Message {
		t.Fatalf("cached message = %q, want %q", second.Message, first.Message)
	}
}
