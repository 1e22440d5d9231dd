// Package service handles staff authentication and account management.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"memberd/internal/audit"
	"memberd/internal/authn/models"
	"memberd/internal/authz"
	"memberd/internal/platform/metrics"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
	"memberd/pkg/platform/sentinel"
	"memberd/pkg/requestcontext"
)

// Store is the persistence contract for users.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Execute(ctx context.Context, userID id.UserID,
		validate func(*models.User) error,
		mutate func(*models.User)) (*models.User, error)
}

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID id.UserID, role string) (string, error)
}

// LoginLimiter throttles repeated login attempts per username and IP.
type LoginLimiter interface {
	Allow(ctx context.Context, username, ip string) bool
	Reset(ctx context.Context, username, ip string)
}

// StoreTx provides a transactional boundary across stores.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	users   Store
	tokens  TokenIssuer
	limiter LoginLimiter
	audit   *audit.Recorder
	tx      StoreTx
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(users Store, tokens TokenIssuer, limiter LoginLimiter, recorder *audit.Recorder,
	tx StoreTx, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		limiter: limiter,
		audit:   recorder,
		tx:      tx,
		metrics: m,
		logger:  logger,
	}
}

// LoginResult is what a successful login returns.
type LoginResult struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user"`
	ExpiresIn int64        `json:"expires_in"`
}

// Login authenticates a username and password. Unknown users and wrong
// passwords report the same error so usernames cannot be probed. A
// successful login resets the caller's throttle window and leaves a
// best-effort audit entry; audit failure never blocks a login.
func (s *Service) Login(ctx context.Context, username, password string, tokenTTL time.Duration) (*LoginResult, error) {
	s.metrics.LoginAttempts.Inc()
	ip := requestcontext.ClientIP(ctx)

	if !s.limiter.Allow(ctx, username, ip) {
		s.logger.WarnContext(ctx, "login throttled",
			"username", username,
			"request_id", requestcontext.RequestID(ctx))
		return nil, dErrors.New(dErrors.CodeRateLimited, "too many login attempts, try again later")
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.loginFailed(ctx, username)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if !u.Active || !u.CheckPassword(password) {
		return nil, s.loginFailed(ctx, username)
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	s.limiter.Reset(ctx, username, ip)

	s.audit.RecordBestEffort(ctx, audit.Entry{
		ActorID:    u.ID,
		Action:     audit.ActionLogin,
		EntityType: audit.EntityUser,
		EntityID:   u.ID.String(),
	})
	return &LoginResult{Token: token, User: u, ExpiresIn: int64(tokenTTL.Seconds())}, nil
}

func (s *Service) loginFailed(ctx context.Context, username string) error {
	s.metrics.LoginFailures.Inc()
	s.logger.InfoContext(ctx, "login failed",
		"username", username,
		"request_id", requestcontext.RequestID(ctx))
	return dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
}

// CreateUser registers a staff account. Requires the user:manage capability.
func (s *Service) CreateUser(ctx context.Context, username, email, password, role string) (*models.User, error) {
	if err := requireCapability(ctx, authz.UserManage); err != nil {
		return nil, err
	}

	var created *models.User
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := models.New(id.NewUserID(), username, email, password, role, requestcontext.Now(txCtx))
		if err != nil {
			return err
		}
		if err := s.users.Create(txCtx, u); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "username and email must be unique")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
		}
		if err := s.audit.Record(txCtx, audit.Entry{
			Action:     audit.ActionCreateUser,
			EntityType: audit.EntityUser,
			EntityID:   u.ID.String(),
			NewValues:  audit.Snapshot(u),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeactivateUser disables login for an account. Requires user:manage.
func (s *Service) DeactivateUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	if err := requireCapability(ctx, authz.UserManage); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var updated *models.User
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.users.Execute(txCtx, userID,
			func(u *models.User) error {
				if err := u.CanDeactivate(); err != nil {
					return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
				}
				return nil
			},
			func(u *models.User) { u.ApplyDeactivation(now) },
		)
		if err != nil {
			return wrapUserErr(err)
		}
		if err := s.audit.Record(txCtx, audit.Entry{
			Action:     audit.ActionDeactivateUser,
			EntityType: audit.EntityUser,
			EntityID:   u.ID.String(),
			NewValues:  audit.Snapshot(u),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListUsers returns all staff accounts. Requires user:manage.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	if err := requireCapability(ctx, authz.UserManage); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func requireCapability(ctx context.Context, c authz.Capability) error {
	if !authz.Allow(requestcontext.ActorRole(ctx), c) {
		return dErrors.New(dErrors.CodeForbidden, "missing capability "+string(c))
	}
	return nil
}

func wrapUserErr(err error) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "user conflict")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "user store error")
	}
}
