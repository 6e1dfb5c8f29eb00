// Package identity resolves the signed-in actor: session token verification
// against the hosted auth provider's signing secret, and role resolution by
// profile-set membership.
package identity

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSession = errors.New("invalid session token")

// Session is the verified content of a session token.
type Session struct {
	UserID int64
}

// Verifier checks session tokens issued by the auth provider.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the token and extracts the user id from the
// subject claim.
func (v *Verifier) Verify(token string) (Session, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Session{}, ErrInvalidSession
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return Session{}, ErrInvalidSession
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || userID <= 0 {
		return Session{}, ErrInvalidSession
	}
	return Session{UserID: userID}, nil
}
