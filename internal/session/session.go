// Package session resolves the acting account from a verified portal
// session token. The scheduling core never mints tokens; absence of a
// session is an auth failure, not a scheduling failure.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role distinguishes patient self-service from clinic staff.
type Role string

const (
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

// Account is the acting account resolved from a session.
type Account struct {
	ID   string
	Role Role
}

// ErrNoSession is returned when no verified account is available.
var ErrNoSession = errors.New("session: no account")

// Provider yields the acting account for a request.
type Provider interface {
	CurrentAccount(ctx context.Context) (*Account, error)
}

// Claims is the session token payload: subject is the account ID, role the
// portal the token was issued for.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC-signed session tokens issued by the auth backend.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a verifier over the shared HMAC secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse verifies a token string and extracts the acting account.
func (v *Verifier) Parse(tokenString string) (*Account, error) {
	if len(v.secret) == 0 {
		return nil, errors.New("session: verifier secret not configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("session: invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("session: token missing subject")
	}
	role := Role(claims.Role)
	if role != RolePatient && role != RoleAdmin {
		return nil, fmt.Errorf("session: unknown role %q", claims.Role)
	}
	return &Account{ID: claims.Subject, Role: role}, nil
}

type contextKey string

const accountKey contextKey = "sessionAccount"

// WithAccount stows a verified account in the context.
func WithAccount(ctx context.Context, acct *Account) context.Context {
	return context.WithValue(ctx, accountKey, acct)
}

// FromContext returns the verified account, if any.
func FromContext(ctx context.Context) (*Account, bool) {
	acct, ok := ctx.Value(accountKey).(*Account)
	return acct, ok && acct != nil
}

// ContextProvider resolves the account stowed by the session middleware.
type ContextProvider struct{}

func (ContextProvider) CurrentAccount(ctx context.Context) (*Account, error) {
	acct, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	return acct, nil
}
