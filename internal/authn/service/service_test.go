package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberd/internal/audit"
	"memberd/internal/authn/store"
	"memberd/internal/authn/token"
	"memberd/internal/authz"
	"memberd/internal/platform/metrics"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
	"memberd/pkg/platform/tx"
	"memberd/pkg/requestcontext"
)

// blockingLimiter denies once blocked; the real limiter lives in
// internal/ratelimit and is covered by its integration test.
type blockingLimiter struct {
	blocked bool
	resets  int
}

func (l *blockingLimiter) Allow(context.Context, string, string) bool { return !l.blocked }
func (l *blockingLimiter) Reset(context.Context, string, string)      { l.resets++ }

type fixture struct {
	service  *Service
	limiter  *blockingLimiter
	auditLog *audit.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditLog := audit.NewMemoryStore()
	limiter := &blockingLimiter{}
	svc := New(store.NewMemory(), token.NewManager("test-key", time.Hour), limiter,
		audit.NewRecorder(auditLog, log), tx.Passthrough{},
		metrics.NewWith(prometheus.NewRegistry()), log)
	return &fixture{service: svc, limiter: limiter, auditLog: auditLog}
}

func adminCtx() context.Context {
	ctx := requestcontext.WithActorID(context.Background(), id.NewUserID())
	ctx = requestcontext.WithActorRole(ctx, authz.RoleAdmin)
	return requestcontext.WithTime(ctx, time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
}

func (f *fixture) createUser(t *testing.T, username, password, role string) {
	t.Helper()
	_, err := f.service.CreateUser(adminCtx(), username, username+"@example.org", password, role)
	require.NoError(t, err)
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "clerk", "correct-horse", authz.RoleDataEntry)

	result, err := f.service.Login(context.Background(), "clerk", "correct-horse", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "clerk", result.User.Username)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	assert.Equal(t, 1, f.limiter.resets)

	var loginEntries int
	for _, e := range f.auditLog.All() {
		if e.Action == audit.ActionLogin {
			loginEntries++
		}
	}
	assert.Equal(t, 1, loginEntries)
}

func TestLoginWrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "clerk", "correct-horse", authz.RoleDataEntry)

	_, err1 := f.service.Login(context.Background(), "clerk", "wrong", time.Hour)
	_, err2 := f.service.Login(context.Background(), "nobody", "wrong", time.Hour)
	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, dErrors.MessageOf(err1), dErrors.MessageOf(err2))
	assert.True(t, dErrors.HasCode(err1, dErrors.CodeUnauthorized))
	assert.True(t, dErrors.HasCode(err2, dErrors.CodeUnauthorized))
}

func TestLoginInactiveUser(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "clerk", "correct-horse", authz.RoleDataEntry)
	users, err := f.service.ListUsers(adminCtx())
	require.NoError(t, err)
	require.Len(t, users, 1)
	_, err = f.service.DeactivateUser(adminCtx(), users[0].ID)
	require.NoError(t, err)

	_, err = f.service.Login(context.Background(), "clerk", "correct-horse", time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestLoginThrottled(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "clerk", "correct-horse", authz.RoleDataEntry)
	f.limiter.blocked = true

	_, err := f.service.Login(context.Background(), "clerk", "correct-horse", time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateUser(adminCtx(), "clerk", "clerk@example.org", "short", authz.RoleDataEntry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = f.service.CreateUser(adminCtx(), "clerk", "clerk@example.org", "long-enough", "superuser")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCreateUserRequiresUserManage(t *testing.T) {
	f := newFixture(t)
	ctx := requestcontext.WithActorRole(context.Background(), authz.RoleDataEntry)

	_, err := f.service.CreateUser(ctx, "clerk", "clerk@example.org", "long-enough", authz.RoleDataEntry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "clerk", "correct-horse", authz.RoleDataEntry)

	_, err := f.service.CreateUser(adminCtx(), "clerk", "other@example.org", "correct-horse", authz.RoleDataEntry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestDeactivateTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "clerk", "correct-horse", authz.RoleDataEntry)
	users, err := f.service.ListUsers(adminCtx())
	require.NoError(t, err)

	_, err = f.service.DeactivateUser(adminCtx(), users[0].ID)
	require.NoError(t, err)
	_, err = f.service.DeactivateUser(adminCtx(), users[0].ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}
