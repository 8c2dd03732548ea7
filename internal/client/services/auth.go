// Package services contains the application services of the LogMoments
// client. This file defines the identity provider: the session is an access
// token issued elsewhere (sign-in flows live outside this client) from which
// the user id and expiry are read.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/dmitrijs2005/logmoments/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService is the "current user" source used by capture and sync.
//
// Contract:
//   - SignIn: accept an access token, persist it and return the session.
//   - SignOut: forget the token and cached user data.
//   - CurrentUserID: id of the signed-in user, ErrNoUser when nobody is.
//   - HasActiveSession: true while a non-expired token is held.
//   - AccessToken: bearer token for remote calls, "" without an active session.
type AuthService interface {
	SignIn(ctx context.Context, token string) (Session, error)
	SignOut(ctx context.Context) error
	CurrentUserID(ctx context.Context) (string, error)
	HasActiveSession(ctx context.Context) bool
	AccessToken(ctx context.Context) (string, error)
}

// Session is what the client knows about the signed-in user.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// MetadataSource yields the metadata repository of an open local store.
type MetadataSource interface {
	Metadata() (metadata.Repository, error)
}

type authService struct {
	meta MetadataSource
	log  logging.Logger
	now  func() time.Time

	mu      sync.Mutex
	token   string
	session *Session
}

func NewAuthService(meta MetadataSource, log logging.Logger) AuthService {
	return &authService{meta: meta, log: log.With("module", "auth"), now: time.Now}
}

// ParseToken reads the subject, email and expiry claims. The signature is
// not verified: the token is only forwarded to the backend, which does.
func ParseToken(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, common.ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Session{}, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}
	s := Session{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		s.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time.UTC()
	}
	return s, nil
}

func (a *authService) SignIn(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	s, err := ParseToken(token)
	if err != nil {
		return Session{}, err
	}
	if s.Expired(a.now()) {
		return Session{}, common.ErrTokenExpired
	}

	a.mu.Lock()
	a.token, a.session = token, &s
	a.mu.Unlock()

	if repo, err := a.meta.Metadata(); err != nil {
		a.log.Warn(ctx, "session kept in memory only", "error", err)
	} else {
		if err := repo.Put(ctx, common.MetaAccessToken, []byte(token)); err != nil {
			return Session{}, fmt.Errorf("save token: %w", err)
		}
		if err := metadata.PutJSON(ctx, repo, common.MetaUserData, s); err != nil {
			return Session{}, fmt.Errorf("save user data: %w", err)
		}
	}

	a.log.Info(ctx, "signed in", "user", s.UserID)
	return s, nil
}

func (a *authService) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.token, a.session = "", nil
	a.mu.Unlock()

	repo, err := a.meta.Metadata()
	if err != nil {
		return nil
	}
	return repo.Delete(ctx, common.MetaAccessToken, common.MetaUserData)
}

// load returns the cached session, reading the persisted token on first use.
func (a *authService) load(ctx context.Context) (string, *Session) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return a.token, a.session
	}
	repo, err := a.meta.Metadata()
	if err != nil {
		return "", nil
	}
	raw, err := repo.Get(ctx, common.MetaAccessToken)
	if err != nil || len(raw) == 0 {
		return "", nil
	}
	s, err := ParseToken(string(raw))
	if err != nil {
		a.log.Warn(ctx, "stored token is unreadable", "error", err)
		return "", nil
	}
	a.token, a.session = string(raw), &s
	return a.token, a.session
}

func (a *authService) CurrentUserID(ctx context.Context) (string, error) {
	_, s := a.load(ctx)
	if s == nil {
		return "", common.ErrNoUser
	}
	return s.UserID, nil
}

func (a *authService) HasActiveSession(ctx context.Context) bool {
	_, s := a.load(ctx)
	return s != nil && !s.Expired(a.now())
}

func (a *authService) AccessToken(ctx context.Context) (string, error) {
	token, s := a.load(ctx)
	if s == nil || s.Expired(a.now()) {
		return "", nil
	}
	return token, nil
}
