package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caresync/portal-api/internal/email"
	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/repository"
	"github.com/caresync/portal-api/internal/service/audit"
	"github.com/caresync/portal-api/internal/service/presence"
	"github.com/caresync/portal-api/pkg/auth"
	apperrors "github.com/caresync/portal-api/pkg/errors"
	"github.com/caresync/portal-api/pkg/logger"
	"github.com/caresync/portal-api/pkg/security"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

// RequestMeta carries per-request client facts through to presence and
// audit writes.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Service validates credentials against the user store and mints
// session tokens. Practitioner logins and logouts also drive the
// presence tracker; both presence and audit writes are best-effort side
// effects the auth response never waits on for success.
type Service struct {
	users    repository.UserRepository
	hasher   security.PasswordHasher
	jwtSvc   auth.JWTService
	presence *presence.Service
	auditor  *audit.Service
	emailSvc email.Service
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(users repository.UserRepository, hasher security.PasswordHasher,
	jwtSvc auth.JWTService, presenceSvc *presence.Service, auditor *audit.Service,
	emailSvc email.Service, logger *logger.Logger) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		jwtSvc:   jwtSvc,
		presence: presenceSvc,
		auditor:  auditor,
		emailSvc: emailSvc,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Signup(ctx context.Context, req *model.SignupRequest, meta RequestMeta) (*model.TokenResponse, error) {
	if !model.ValidRole(req.Role) {
		return nil, apperrors.Validation(fmt.Sprintf("invalid role: %q", req.Role))
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation("password does not meet requirements")
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		Status:       model.UserStatusActive,
	}

	// The unique index on email is authoritative; duplicate signups
	// racing each other resolve here, not in a pre-check.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.audit(ctx, nil, "", model.AuditActionSignup, meta, model.AuditOutcomeFailure, "duplicate email")
			return nil, apperrors.Conflict("email already registered")
		}
		return nil, apperrors.Storage(err)
	}

	token, err := s.jwtSvc.GenerateToken(user)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to generate token: %w", err))
	}

	s.audit(ctx, &user.ID, user.Role, model.AuditActionSignup, meta, model.AuditOutcomeSuccess, "")

	go func() {
		if err := s.emailSvc.SendWelcome(context.Background(), user.Email, user.FirstName); err != nil {
			s.logger.Error(err, "failed to send welcome email")
		}
	}()

	return &model.TokenResponse{Token: token, User: user}, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest, meta RequestMeta) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		s.audit(ctx, nil, "", model.AuditActionLogin, meta, model.AuditOutcomeFailure, "unknown email")
		return nil, apperrors.InvalidCredentials()
	}

	if user.Status == model.UserStatusLocked {
		if user.LastLoginAttempt != nil && s.now().Sub(*user.LastLoginAttempt) < lockoutDuration {
			s.audit(ctx, &user.ID, user.Role, model.AuditActionLogin, meta, model.AuditOutcomeFailure, "account locked")
			return nil, apperrors.InvalidCredentials()
		}
		user.Status = model.UserStatusActive
		user.LoginAttempts = 0
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		user.LoginAttempts++
		now := s.now()
		user.LastLoginAttempt = &now
		if user.LoginAttempts >= maxLoginAttempts {
			user.Status = model.UserStatusLocked
		}
		if err := s.users.Update(ctx, user); err != nil {
			s.logger.Error(err, "failed to record login attempt", "user_id", user.ID.String())
		}

		s.audit(ctx, &user.ID, user.Role, model.AuditActionLogin, meta, model.AuditOutcomeFailure, "bad password")
		return nil, apperrors.InvalidCredentials()
	}

	user.LoginAttempts = 0
	now := s.now()
	user.LastLoginAt = &now
	user.LastLoginAttempt = nil
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error(err, "failed to record login timestamp", "user_id", user.ID.String())
	}

	token, err := s.jwtSvc.GenerateToken(user)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to generate token: %w", err))
	}

	if user.Role == model.RolePractitioner {
		s.presence.MarkActive(ctx, user.ID, meta.IPAddress, meta.UserAgent)
	}

	s.audit(ctx, &user.ID, user.Role, model.AuditActionLogin, meta, model.AuditOutcomeSuccess, "")

	return &model.TokenResponse{Token: token, User: user}, nil
}

// Logout clears practitioner presence. Tokens stay valid until expiry;
// there is no server-side revocation list.
func (s *Service) Logout(ctx context.Context, claims *model.TokenClaims, meta RequestMeta) {
	if claims.Role == model.RolePractitioner {
		s.presence.MarkInactive(ctx, claims.UserID)
	}
	s.audit(ctx, &claims.UserID, claims.Role, model.AuditActionLogout, meta, model.AuditOutcomeSuccess, "")
}

// ValidateToken checks signature and expiry only; used by middleware on
// every authenticated request.
func (s *Service) ValidateToken(_ context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}

// Verify additionally re-reads the user so a deleted account fails even
// with a live token.
func (s *Service) Verify(ctx context.Context, claims *model.TokenClaims) (*model.User, error) {
	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return user, nil
}

func (s *Service) audit(ctx context.Context, actorID *uuid.UUID, role, action string,
	meta RequestMeta, outcome, detail string) {
	s.auditor.Log(ctx, audit.Entry{
		ActorID:   actorID,
		ActorRole: role,
		Action:    action,
		Resource:  "auth",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Outcome:   outcome,
		Detail:    detail,
	})
}
