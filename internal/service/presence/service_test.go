package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/repository"
	"github.com/caresync/portal-api/pkg/logger"
)

type fakePresenceRepo struct {
	mu   sync.Mutex
	recs map[uuid.UUID]model.PresenceRecord
	fail bool
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{recs: make(map[uuid.UUID]model.PresenceRecord)}
}

func (f *fakePresenceRepo) Upsert(_ context.Context, rec *model.PresenceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("storage down")
	}
	f.recs[rec.UserID] = *rec
	return nil
}

func (f *fakePresenceRepo) Delete(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("storage down")
	}
	delete(f.recs, userID)
	return nil
}

func (f *fakePresenceRepo) Get(_ context.Context, userID uuid.UUID) (*model.PresenceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("storage down")
	}
	rec, ok := f.recs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (f *fakePresenceRepo) ListByUserIDs(_ context.Context, userIDs []uuid.UUID) ([]*model.PresenceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("storage down")
	}
	var out []*model.PresenceRecord
	for _, id := range userIDs {
		if rec, ok := f.recs[id]; ok {
			r := rec
			out = append(out, &r)
		}
	}
	return out, nil
}

func (f *fakePresenceRepo) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, rec := range f.recs {
		if rec.LastActivity.Before(before) {
			delete(f.recs, id)
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Create(context.Context, *model.User) error { return nil }
func (f *fakeUserRepo) Update(context.Context, *model.User) error { return nil }
func (f *fakeUserRepo) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, repository.ErrNotFound
}
func (f *fakeUserRepo) ListByRole(context.Context, string) ([]*model.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type recordingBus struct {
	mu     sync.Mutex
	events []model.PresenceStatus
}

func (b *recordingBus) Publish(status model.PresenceStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, status)
}

func (b *recordingBus) all() []model.PresenceStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.PresenceStatus(nil), b.events...)
}

func newTestService(repo *fakePresenceRepo, bus Broadcaster, users repository.UserRepository) *Service {
	if users == nil {
		users = &fakeUserRepo{}
	}
	return &Service{
		repo:     repo,
		users:    users,
		bus:      bus,
		logger:   logger.NewLogger(nil),
		profiles: gocache.New(time.Minute, time.Minute),
		window:   FreshnessWindow,
		now:      time.Now,
	}
}

func TestMarkActiveThenIsActive(t *testing.T) {
	repo := newFakePresenceRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus, nil)

	userID := uuid.New()
	svc.MarkActive(context.Background(), userID, "10.0.0.1", "test-agent")

	assert.True(t, svc.IsActive(context.Background(), userID))

	events := bus.all()
	require.Len(t, events, 1)
	assert.Equal(t, userID, events[0].UserID)
	assert.True(t, events[0].IsActive)
	require.NotNil(t, events[0].LastActivity)
}

func TestIsActiveExpiresWithoutExplicitCall(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := newTestService(repo, &recordingBus{}, nil)

	base := time.Now()
	svc.now = func() time.Time { return base }

	userID := uuid.New()
	svc.MarkActive(context.Background(), userID, "", "")
	assert.True(t, svc.IsActive(context.Background(), userID))

	// Exactly at the window boundary still counts as active.
	svc.now = func() time.Time { return base.Add(FreshnessWindow) }
	assert.True(t, svc.IsActive(context.Background(), userID))

	// Six minutes of silence and the same row reads as inactive.
	svc.now = func() time.Time { return base.Add(6 * time.Minute) }
	assert.False(t, svc.IsActive(context.Background(), userID))
}

func TestMarkInactiveImmediate(t *testing.T) {
	repo := newFakePresenceRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus, nil)

	userID := uuid.New()
	svc.MarkActive(context.Background(), userID, "", "")
	svc.MarkInactive(context.Background(), userID)

	assert.False(t, svc.IsActive(context.Background(), userID))

	events := bus.all()
	require.Len(t, events, 2)
	assert.False(t, events[1].IsActive)
	assert.Nil(t, events[1].LastActivity)
}

func TestHeartbeatRefreshesWindow(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := newTestService(repo, &recordingBus{}, nil)

	base := time.Now()
	svc.now = func() time.Time { return base }

	userID := uuid.New()
	svc.MarkActive(context.Background(), userID, "", "")

	// Heartbeat at t+4m pushes the window forward.
	svc.now = func() time.Time { return base.Add(4 * time.Minute) }
	svc.MarkActive(context.Background(), userID, "", "")

	svc.now = func() time.Time { return base.Add(8 * time.Minute) }
	assert.True(t, svc.IsActive(context.Background(), userID))
}

func TestMarkActiveStorageFailureSwallowed(t *testing.T) {
	repo := newFakePresenceRepo()
	repo.fail = true
	bus := &recordingBus{}
	svc := newTestService(repo, bus, nil)

	// Must not panic or publish.
	svc.MarkActive(context.Background(), uuid.New(), "", "")
	assert.Empty(t, bus.all())
}

func TestReadFailureDegradesToInactive(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := newTestService(repo, &recordingBus{}, nil)

	userID := uuid.New()
	svc.MarkActive(context.Background(), userID, "", "")

	repo.fail = true
	assert.False(t, svc.IsActive(context.Background(), userID))
	assert.Empty(t, svc.ListActivity(context.Background(), []uuid.UUID{userID}))
}

func TestListActivityBatch(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := newTestService(repo, &recordingBus{}, nil)

	base := time.Now()
	svc.now = func() time.Time { return base }

	fresh := uuid.New()
	stale := uuid.New()
	missing := uuid.New()

	svc.MarkActive(context.Background(), stale, "", "")
	svc.now = func() time.Time { return base.Add(10 * time.Minute) }
	svc.MarkActive(context.Background(), fresh, "", "")

	acts := svc.ListActivity(context.Background(), []uuid.UUID{fresh, stale, missing})
	require.Len(t, acts, 2)
	assert.True(t, acts[fresh].Active)
	assert.False(t, acts[stale].Active)
	require.NotNil(t, acts[stale].LastActivity)
	_, ok := acts[missing]
	assert.False(t, ok)

	active := svc.ListActive(context.Background(), []uuid.UUID{fresh, stale, missing})
	assert.Equal(t, map[uuid.UUID]bool{fresh: true}, active)
}

func TestPublishIncludesProfileSummary(t *testing.T) {
	repo := newFakePresenceRepo()
	bus := &recordingBus{}

	userID := uuid.New()
	user := &model.User{
		Email:     "doc@example.com",
		FirstName: "Ann",
		LastName:  "Reyes",
		Role:      model.RolePractitioner,
	}
	user.ID = userID
	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{userID: user}}

	svc := newTestService(repo, bus, users)
	svc.MarkActive(context.Background(), userID, "", "")

	events := bus.all()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].ProfileSummary)
	assert.Equal(t, "Ann Reyes", events[0].ProfileSummary.Name)
}
