// Package token issues and validates the signed bearer tokens staff use.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"memberd/internal/platform/middleware"
	id "memberd/pkg/domain"
	dErrors "memberd/pkg/domainerrors"
)

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and validates HS256 tokens. It satisfies
// middleware.TokenValidator.
type Manager struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewManager(signingKey string, ttl time.Duration) *Manager {
	return &Manager{signingKey: []byte(signingKey), ttl: ttl, now: time.Now}
}

// Issue mints a token for the user carrying their id and role.
func (m *Manager) Issue(userID id.UserID, role string) (string, error) {
	now := m.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	signed, err := t.SignedString(m.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken parses and verifies a bearer token.
func (m *Manager) ValidateToken(tokenString string) (*middleware.Claims, error) {
	var c claims
	t, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return m.signingKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil || !t.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}
	userID, err := id.ParseUserID(c.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a user id")
	}
	return &middleware.Claims{UserID: userID, Role: c.Role}, nil
}
