package practitioner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caresync/portal-api/internal/middleware"
	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/repository"
	"github.com/caresync/portal-api/internal/service/audit"
	"github.com/caresync/portal-api/internal/service/availability"
	"github.com/caresync/portal-api/internal/service/presence"
	apperrors "github.com/caresync/portal-api/pkg/errors"
	"github.com/caresync/portal-api/pkg/logger"
	"github.com/caresync/portal-api/pkg/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validator.RegisterCustom(); err != nil {
		panic(err)
	}
}

type slotKey struct {
	practitionerID uuid.UUID
	day            string
}

type fakeSlotRepo struct {
	mu    sync.Mutex
	slots map[slotKey]model.AvailabilitySlot
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[slotKey]model.AvailabilitySlot)}
}

func (f *fakeSlotRepo) Upsert(_ context.Context, slot *model.AvailabilitySlot) (*model.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := slotKey{slot.PractitionerID, slot.DayOfWeek}
	stored, exists := f.slots[key]
	if !exists {
		stored = *slot
		stored.ID = uuid.New()
		stored.CreatedAt = time.Now()
	}
	stored.StartTime = slot.StartTime
	stored.EndTime = slot.EndTime
	stored.UpdatedAt = time.Now()
	f.slots[key] = stored
	out := stored
	return &out, nil
}

func (f *fakeSlotRepo) Get(_ context.Context, practitionerID uuid.UUID, day string) (*model.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot, ok := f.slots[slotKey{practitionerID, day}]; ok {
		out := slot
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSlotRepo) ListByPractitioner(_ context.Context, practitionerID uuid.UUID) ([]model.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AvailabilitySlot
	for key, slot := range f.slots {
		if key.practitionerID == practitionerID {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := model.DayOrder(out[i].DayOfWeek)
		b, _ := model.DayOrder(out[j].DayOfWeek)
		return a < b
	})
	return out, nil
}

func (f *fakeSlotRepo) ListByPractitioners(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.AvailabilitySlot, error) {
	out := make(map[uuid.UUID][]model.AvailabilitySlot)
	for _, id := range ids {
		slots, _ := f.ListByPractitioner(ctx, id)
		if len(slots) > 0 {
			out[id] = slots
		}
	}
	return out, nil
}

func (f *fakeSlotRepo) Delete(_ context.Context, slotID, practitionerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, slot := range f.slots {
		if slot.ID == slotID && key.practitionerID == practitionerID {
			delete(f.slots, key)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) add(role string) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &model.User{
		Email:     fmt.Sprintf("%s-%d@example.com", role, len(f.users)),
		FirstName: "Pat",
		LastName:  "Doe",
		Role:      role,
		Status:    model.UserStatusActive,
	}
	u.ID = uuid.New()
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = uuid.New()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) Update(context.Context, *model.User) error { return nil }

func (f *fakeUserRepo) ListByRole(_ context.Context, role string) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.User
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakePresenceRepo struct {
	mu   sync.Mutex
	recs map[uuid.UUID]model.PresenceRecord
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{recs: make(map[uuid.UUID]model.PresenceRecord)}
}

func (f *fakePresenceRepo) Upsert(_ context.Context, rec *model.PresenceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[rec.UserID] = *rec
	return nil
}
func (f *fakePresenceRepo) Delete(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recs, userID)
	return nil
}
func (f *fakePresenceRepo) Get(_ context.Context, userID uuid.UUID) (*model.PresenceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.recs[userID]; ok {
		return &rec, nil
	}
	return nil, repository.ErrNotFound
}
func (f *fakePresenceRepo) ListByUserIDs(_ context.Context, ids []uuid.UUID) ([]*model.PresenceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.PresenceRecord
	for _, id := range ids {
		if rec, ok := f.recs[id]; ok {
			r := rec
			out = append(out, &r)
		}
	}
	return out, nil
}
func (f *fakePresenceRepo) DeleteStale(context.Context, time.Time) (int64, error) { return 0, nil }

type nopAuditRepo struct{}

func (nopAuditRepo) Create(context.Context, *model.AuditLog) error { return nil }
func (nopAuditRepo) ListWithPagination(context.Context, *model.AuditLogFilter) ([]*model.AuditLog, int64, error) {
	return nil, 0, nil
}
func (nopAuditRepo) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

type nopBus struct{}

func (nopBus) Publish(model.PresenceStatus) {}

type testServer struct {
	users    *fakeUserRepo
	presence *presence.Service
}

// newTestServer mounts the practitioner routes behind a middleware that
// injects claims for the given identity, standing in for the bearer
// token check.
func newTestServer(t *testing.T) (*testServer, func(user *model.User) *gin.Engine) {
	t.Helper()
	lg := logger.NewLogger(nil)
	users := newFakeUserRepo()
	presenceSvc := presence.NewService(newFakePresenceRepo(), users, nopBus{}, lg)
	auditSvc := audit.NewService(nopAuditRepo{}, lg)
	availabilitySvc := availability.NewService(newFakeSlotRepo(), users, presenceSvc, auditSvc)

	h := NewHandler(availabilitySvc, presenceSvc)

	build := func(user *model.User) *gin.Engine {
		engine := gin.New()
		api := engine.Group("/api/v1")
		api.Use(func(c *gin.Context) {
			c.Set(middleware.ContextClaims, &model.TokenClaims{
				UserID: user.ID,
				Email:  user.Email,
				Role:   user.Role,
			})
		})
		h.RegisterRoutes(api, middleware.NewAuthMiddleware(nil))
		return engine
	}

	return &testServer{users: users, presence: presenceSvc}, build
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestUpsertAndListAvailability(t *testing.T) {
	srv, build := newTestServer(t)
	engine := build(srv.users.add(model.RolePractitioner))

	w := doJSON(t, engine, http.MethodPost, "/api/v1/practitioner/availability", gin.H{
		"day_of_week": "Tuesday",
		"start_time":  "09:00",
		"end_time":    "17:00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodGet, "/api/v1/practitioner/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Availability []model.AvailabilitySlot `json:"availability"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Availability, 1)
	assert.Equal(t, "Tuesday", resp.Data.Availability[0].DayOfWeek)
	assert.Equal(t, "09:00", resp.Data.Availability[0].StartTime)
}

func TestUpsertAvailabilityRejectsBadInput(t *testing.T) {
	srv, build := newTestServer(t)
	engine := build(srv.users.add(model.RolePractitioner))

	cases := []gin.H{
		{"day_of_week": "Funday", "start_time": "09:00", "end_time": "17:00"},
		{"day_of_week": "Monday", "start_time": "9am", "end_time": "17:00"},
		{"day_of_week": "Monday", "start_time": "17:00", "end_time": "09:00"},
		{"day_of_week": "Monday", "start_time": "09:00"},
	}
	for _, body := range cases {
		w := doJSON(t, engine, http.MethodPost, "/api/v1/practitioner/availability", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %v", body)

		var resp struct {
			Code apperrors.Code `json:"code"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, apperrors.CodeValidation, resp.Code)
	}
}

func TestDeleteAvailabilityOwnership(t *testing.T) {
	srv, build := newTestServer(t)
	owner := srv.users.add(model.RolePractitioner)
	other := srv.users.add(model.RolePractitioner)
	ownerEngine := build(owner)
	otherEngine := build(other)

	w := doJSON(t, ownerEngine, http.MethodPost, "/api/v1/practitioner/availability", gin.H{
		"day_of_week": "Friday",
		"start_time":  "08:00",
		"end_time":    "12:00",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		Data model.AvailabilitySlot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	slotID := created.Data.ID

	// Another practitioner sees not found, not forbidden.
	w = doJSON(t, otherEngine, http.MethodDelete, "/api/v1/practitioner/availability/"+slotID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, ownerEngine, http.MethodDelete, "/api/v1/practitioner/availability/"+slotID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, ownerEngine, http.MethodDelete, "/api/v1/practitioner/availability/"+slotID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPractitionerOnlyRoutesRejectOtherRoles(t *testing.T) {
	srv, build := newTestServer(t)
	engine := build(srv.users.add(model.RolePatient))

	w := doJSON(t, engine, http.MethodPost, "/api/v1/practitioner/availability", gin.H{
		"day_of_week": "Monday",
		"start_time":  "09:00",
		"end_time":    "17:00",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/v1/practitioner/heartbeat", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHeartbeatMarksActiveAndRosterShowsIt(t *testing.T) {
	srv, build := newTestServer(t)
	practitioner := srv.users.add(model.RolePractitioner)
	patient := srv.users.add(model.RolePatient)
	practitionerEngine := build(practitioner)
	patientEngine := build(patient)

	w := doJSON(t, practitionerEngine, http.MethodPost, "/api/v1/practitioner/heartbeat", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Roster is readable by any authenticated role.
	w = doJSON(t, patientEngine, http.MethodGet, "/api/v1/practitioner/all", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Practitioners []model.PractitionerRoster `json:"practitioners"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Practitioners, 1)
	entry := resp.Data.Practitioners[0]
	assert.Equal(t, practitioner.ID, entry.ID)
	assert.True(t, entry.IsActive)
	assert.NotNil(t, entry.LastActivity)
	assert.NotNil(t, entry.Availability)
}
