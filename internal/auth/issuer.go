package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ayush/jobbid/internal/models"
)

const (
	TokenTTL     = time.Hour
	TokenCookie  = "token"
	MinSecretLen = 32
)

// ErrUnauthorized is the only error Verify reports to callers. Missing,
// forged, expired and revoked credentials all look the same.
var ErrUnauthorized = errors.New("unauthorized access")

// Denylist remembers revoked credential ids until they would have expired.
type Denylist interface {
	Deny(ctx context.Context, id string, ttl time.Duration) error
	Denied(ctx context.Context, id string) (bool, error)
}

// Credential is a freshly signed session token.
type Credential struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session credentials with an HMAC secret.
type Issuer struct {
	secret   []byte
	denylist Denylist
	now      func() time.Time
}

type Option func(*Issuer)

// WithDenylist makes Revoke effective server-side.
func WithDenylist(d Denylist) Option {
	return func(i *Issuer) { i.denylist = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret string, opts ...Option) (*Issuer, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d bytes, got %d", MinSecretLen, len(secret))
	}
	i := &Issuer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a credential for identity that expires after TokenTTL.
func (i *Issuer) Issue(identity models.Identity) (Credential, error) {
	now := i.now()
	c := claims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return Credential{}, fmt.Errorf("sign token: %w", err)
	}
	return Credential{Token: token, ID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}

// Verify checks signature, expiry and (when configured) the denylist, and
// returns the bound identity.
func (i *Issuer) Verify(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrUnauthorized
	}
	c, err := i.parse(token)
	if err != nil || c.Email == "" {
		return models.Identity{}, ErrUnauthorized
	}
	if i.denylist != nil {
		denied, err := i.denylist.Denied(ctx, c.ID)
		if err != nil {
			return models.Identity{}, errors.Join(ErrUnauthorized, err)
		}
		if denied {
			return models.Identity{}, ErrUnauthorized
		}
	}
	return models.Identity{Email: c.Email}, nil
}

// Revoke denies token for the rest of its lifetime. Without a denylist it is
// a no-op: the caller clearing the cookie is all logout does, and a captured
// token stays valid until it expires.
func (i *Issuer) Revoke(ctx context.Context, token string) error {
	if i.denylist == nil || token == "" {
		return nil
	}
	c, err := i.parse(token)
	if err != nil {
		return nil
	}
	ttl := c.ExpiresAt.Time.Sub(i.now())
	if ttl <= 0 {
		return nil
	}
	if err := i.denylist.Deny(ctx, c.ID, ttl); err != nil {
		return fmt.Errorf("deny token %s: %w", c.ID, err)
	}
	return nil
}

func (i *Issuer) parse(token string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
