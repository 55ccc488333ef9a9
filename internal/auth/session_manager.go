package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the presented refresh token is not the one stored for the user.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrInvalidToken indicates a token that fails signature, type or claim checks.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// SessionStore holds the single active refresh token of each user.
type SessionStore interface {
	// Save replaces whatever token the user had.
	Save(ctx context.Context, userID, refreshToken string) error
	// Rotate atomically replaces presented with next, failing with
	// ErrSessionNotFound when presented is not the stored token.
	Rotate(ctx context.Context, userID, presented, next string) error
	// Clear empties the slot.
	Clear(ctx context.Context, userID string) error
}

// Claims are the JWT claims carried by both token kinds.
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Config carries signing secrets and lifetimes.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Manager issues, verifies and rotates HS256 session tokens.
type Manager struct {
	cfg   Config
	store SessionStore
	now   func() time.Time
}

// NewManager constructs a Manager that issues access and refresh tokens with the provided settings.
func NewManager(cfg Config, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 10 * 24 * time.Hour
	}
	return &Manager{cfg: cfg, store: store, now: time.Now}
}

// WithNowFunc allows tests to override the time source.
func (m *Manager) WithNowFunc(now func() time.Time) {
	m.now = now
}

// Issue creates a new token pair and stores the refresh token in the user's
// slot, replacing any earlier session.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	tokens, err := m.sign(userID)
	if err != nil {
		return models.SessionTokens{}, err
	}
	if err := m.store.Save(ctx, userID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, err
	}
	return tokens, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// verify and must still be the one stored for its subject.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, string, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, "", ErrSessionNotFound
	}

	claims, err := m.parse(refreshToken, m.cfg.RefreshSecret, tokenTypeRefresh)
	if err != nil {
		return models.SessionTokens{}, "", err
	}

	tokens, err := m.sign(claims.Subject)
	if err != nil {
		return models.SessionTokens{}, "", err
	}
	if err := m.store.Rotate(ctx, claims.Subject, refreshToken, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, "", err
	}
	return tokens, claims.Subject, nil
}

// Verify checks an access token and returns its subject.
func (m *Manager) Verify(accessToken string) (string, error) {
	if accessToken == "" {
		return "", ErrInvalidToken
	}
	claims, err := m.parse(accessToken, m.cfg.AccessSecret, tokenTypeAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Revoke clears the user's refresh token slot.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if err := m.store.Clear(ctx, userID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	return nil
}

func (m *Manager) sign(userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now().UTC()
	accessExp := now.Add(m.cfg.AccessTTL)
	refreshExp := now.Add(m.cfg.RefreshTTL)

	access, err := m.signOne(userID, tokenTypeAccess, now, accessExp, m.cfg.AccessSecret)
	if err != nil {
		return models.SessionTokens{}, err
	}
	refresh, err := m.signOne(userID, tokenTypeRefresh, now, refreshExp, m.cfg.RefreshSecret)
	if err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) signOne(userID, typ string, issuedAt, expiresAt time.Time, secret []byte) (string, error) {
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (m *Manager) parse(tokenString string, secret []byte, typ string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && typ == tokenTypeRefresh {
			return nil, ErrRefreshTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
