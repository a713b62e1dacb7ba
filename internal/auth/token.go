package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/theirongolddev/oafund/internal/model"
)

const issuer = "oafund"

// DefaultTTL is how long a staff token stays valid.
const DefaultTTL = 12 * time.Hour

// ErrInvalidToken is returned for expired, forged or malformed tokens.
var ErrInvalidToken = errors.New("invalid token")

// CredentialSource looks up stored staff logins.
type CredentialSource interface {
	GetCredential(ctx context.Context, id string) (model.Credential, error)
}

// Claims are the JWT claims carried by a staff token.
type Claims struct {
	jwt.RegisteredClaims
}

// Issuer signs and checks staff tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer for an HS256 secret. An empty secret is an error.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty; set auth.jwt_secret or OAFUND_JWT_SECRET")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for subject and its expiry time.
func (i *Issuer) Issue(subject string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, exp, nil
}

// Parse validates a token and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Login checks id and password against src and issues a token.
func (i *Issuer) Login(ctx context.Context, src CredentialSource, id, password string) (string, time.Time, error) {
	cred, err := src.GetCredential(ctx, id)
	if err != nil || !VerifyPassword(cred.PasswordHash, password) {
		return "", time.Time{}, ErrBadCredentials
	}
	return i.Issue(cred.ID)
}
