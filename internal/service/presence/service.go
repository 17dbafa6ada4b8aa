package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/repository"
	"github.com/caresync/portal-api/pkg/logger"
	"github.com/caresync/portal-api/pkg/metrics"
)

// FreshnessWindow is how recently a user must have been seen to count
// as active.
const FreshnessWindow = 5 * time.Minute

const profileCacheTTL = 5 * time.Minute

// Broadcaster receives a status event for every presence mutation. It is
// a fire-and-forget side channel; mutations never wait on delivery.
type Broadcaster interface {
	Publish(status model.PresenceStatus)
}

// Activity is the read-side classification of one user's presence.
type Activity struct {
	Active       bool
	LastActivity *time.Time
}

// Service is the presence tracker: one row per user, written on login,
// heartbeat and logout, classified at read time against the freshness
// window. Storage failures on the write path are logged and swallowed so
// they never fail the primary operation; failures on the read path
// degrade to "inactive".
type Service struct {
	repo     repository.PresenceRepository
	users    repository.UserRepository
	bus      Broadcaster
	logger   *logger.Logger
	profiles *gocache.Cache
	metrics  *metrics.Metrics
	window   time.Duration
	now      func() time.Time
}

func NewService(repo repository.PresenceRepository, users repository.UserRepository,
	bus Broadcaster, logger *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		bus:      bus,
		logger:   logger,
		profiles: gocache.New(profileCacheTTL, 2*profileCacheTTL),
		window:   FreshnessWindow,
		now:      time.Now,
	}
}

// WithWindow overrides the default freshness window. Non-positive
// durations are ignored.
func (s *Service) WithWindow(d time.Duration) *Service {
	if d > 0 {
		s.window = d
	}
	return s
}

// WithMetrics attaches presence mutation counters.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) count(operation string) {
	if s.metrics != nil {
		s.metrics.PresenceUpdates.WithLabelValues(operation).Inc()
	}
}

// MarkActive upserts the user's presence row with the current time and
// broadcasts the new status. Idempotent per user; a later call simply
// overwrites the freshness timestamp.
func (s *Service) MarkActive(ctx context.Context, userID uuid.UUID, ip, userAgent string) {
	now := s.now()
	rec := &model.PresenceRecord{
		UserID:       userID,
		LastActivity: now,
		IPAddress:    ip,
		UserAgent:    userAgent,
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		s.logger.Error(err, "failed to mark user active", "user_id", userID.String())
		return
	}

	s.count("mark_active")
	s.publish(ctx, userID, true, &now)
}

// MarkInactive deletes the user's presence row and broadcasts the
// inactive status. Deleting an absent row is a no-op.
func (s *Service) MarkInactive(ctx context.Context, userID uuid.UUID) {
	if err := s.repo.Delete(ctx, userID); err != nil {
		s.logger.Error(err, "failed to mark user inactive", "user_id", userID.String())
		return
	}

	s.count("mark_inactive")
	s.publish(ctx, userID, false, nil)
}

// IsActive reports whether the user has a presence row fresher than the
// window. Storage failures read as inactive.
func (s *Service) IsActive(ctx context.Context, userID uuid.UUID) bool {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if err != repository.ErrNotFound {
			s.logger.Error(err, "presence read failed, treating as inactive", "user_id", userID.String())
		}
		return false
	}
	return s.fresh(rec.LastActivity)
}

// ListActivity batches the freshness check for a set of users. Users
// without a row are absent from the result; a storage failure yields an
// empty map so every caller-side entry degrades to inactive.
func (s *Service) ListActivity(ctx context.Context, userIDs []uuid.UUID) map[uuid.UUID]Activity {
	result := make(map[uuid.UUID]Activity, len(userIDs))

	recs, err := s.repo.ListByUserIDs(ctx, userIDs)
	if err != nil {
		s.logger.Error(err, "presence batch read failed, treating all as inactive")
		return result
	}

	for _, rec := range recs {
		last := rec.LastActivity
		result[rec.UserID] = Activity{
			Active:       s.fresh(last),
			LastActivity: &last,
		}
	}
	return result
}

// ListActive returns the subset of userIDs currently active.
func (s *Service) ListActive(ctx context.Context, userIDs []uuid.UUID) map[uuid.UUID]bool {
	active := make(map[uuid.UUID]bool)
	for id, act := range s.ListActivity(ctx, userIDs) {
		if act.Active {
			active[id] = true
		}
	}
	return active
}

func (s *Service) fresh(lastActivity time.Time) bool {
	return s.now().Sub(lastActivity) <= s.window
}

func (s *Service) publish(ctx context.Context, userID uuid.UUID, active bool, lastActivity *time.Time) {
	s.bus.Publish(model.PresenceStatus{
		UserID:         userID,
		IsActive:       active,
		LastActivity:   lastActivity,
		ProfileSummary: s.profileSummary(ctx, userID),
	})
}

// profileSummary resolves the roster-facing profile for a status event,
// cached so heartbeats don't cost a user lookup each time. A failed
// lookup yields a nil summary, never a failed publish.
func (s *Service) profileSummary(ctx context.Context, userID uuid.UUID) *model.ProfileSummary {
	key := userID.String()
	if cached, ok := s.profiles.Get(key); ok {
		return cached.(*model.ProfileSummary)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil
	}

	summary := &model.ProfileSummary{
		ID:    user.ID,
		Name:  user.FullName(),
		Email: user.Email,
	}
	s.profiles.Set(key, summary, gocache.DefaultExpiration)
	return summary
}
