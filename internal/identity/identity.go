// Package identity defines the partition key for all per-user stores: either
// the anonymous guest session or an authenticated user id.
package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

const guestID = "guest"

type Identity struct {
	userID string
}

var Guest = Identity{}

func ForUser(userID string) Identity {
	if userID == "" {
		return Guest
	}
	return Identity{userID: userID}
}

func (id Identity) IsGuest() bool {
	return id.userID == ""
}

func (id Identity) UserID() string {
	return id.userID
}

// StorageKey namespaces durable storage per (domain, identity) so no residue
// crosses accounts on a shared device.
func (id Identity) StorageKey(domain string) string {
	if id.IsGuest() {
		return domain + "-storage-" + guestID
	}
	return domain + "-storage-" + id.userID
}

// session-token claims, same shape the marketplace backend issues
type sessionClaims struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid session token")

// FromSessionToken derives the identity from a bearer session token. An empty
// token is a guest session, not an error; a malformed or expired token is.
func FromSessionToken(tokenString string, secret []byte) (Identity, error) {
	if tokenString == "" {
		return Guest, nil
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return Guest, ErrInvalidToken
	}

	return ForUser(claims.UserID), nil
}
