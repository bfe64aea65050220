package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskshare/internal/cache"
	"taskshare/internal/models"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

const revokedSessionPrefix = "revoked_session:"

var ErrInvalidSession = errors.New("invalid session")

type SessionClaims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionManager issues the signed session token stored in the session
// cookie. With a cache configured, logged-out tokens are remembered until
// they expire and rejected by Parse.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	cache  cache.Cache
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, revoked cache.Cache) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		cache:  revoked,
		now:    time.Now,
	}
}

func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

func (m *SessionManager) Issue(user *models.User) (string, time.Time, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session id: %w", err)
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := SessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expiresAt, nil
}

// Parse validates the signature and expiry and checks the revocation list.
// When the cache is unreachable the token is accepted.
func (m *SessionManager) Parse(ctx context.Context, token string) (*SessionClaims, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		revoked, err := m.cache.Exists(ctx, revokedSessionPrefix+claims.ID)
		if err != nil {
			log.Printf("session: revocation check failed: %v", err)
		} else if revoked {
			return nil, ErrInvalidSession
		}
	}
	return claims, nil
}

// Revoke remembers the token's id until it would have expired anyway. It is a
// no-op without a cache or for a token that no longer parses.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if m.cache == nil || token == "" {
		return nil
	}

	claims, err := m.parse(token)
	if err != nil {
		return nil
	}

	remaining := claims.ExpiresAt.Time.Sub(m.now())
	if remaining <= 0 {
		return nil
	}
	if err := m.cache.Set(ctx, revokedSessionPrefix+claims.ID, true, remaining); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (m *SessionManager) parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.UserID == 0 || claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
