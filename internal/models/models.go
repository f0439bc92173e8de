// Package models holds the plain data structs returned by the Auth
// Data Layer and serialized by the API surface.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Org is a tenant. ParentOrg is nil for a root organization.
type Org struct {
	Org       string  `json:"org"`
	ParentOrg *string `json:"parentorg,omitempty"`
}

// User belongs to exactly one Org. Hash and Salt are never serialized.
type User struct {
	Org        string    `json:"org"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	ParentUser *string   `json:"parentuser,omitempty"`
	CreateDate time.Time `json:"createdate"`
	Hash       *string   `json:"-"`
	Salt       *string   `json:"-"`
}

// PasswordReset is the single pending reset request for a user, if any.
type PasswordReset struct {
	Org         string    `json:"org"`
	Username    string    `json:"username"`
	RequestDate time.Time `json:"requestdate"`
	ResetID     uuid.UUID `json:"resetid"`
}

// Session is a logical login session a user may hold multiple
// concurrent session keys against.
type Session struct {
	Org        string    `json:"org"`
	Username   string    `json:"username"`
	SessionID  uuid.UUID `json:"sessionid"`
	StartDate  time.Time `json:"startdate"`
	LastUpdate time.Time `json:"lastupdate"`
}

// SessionKey is an opaque, single-use-revocable bearer credential bound
// to a Session.
type SessionKey struct {
	Key       string    `json:"-"`
	Org       string    `json:"org"`
	Username  string    `json:"username"`
	SessionID uuid.UUID `json:"sessionid"`
	Expiry    time.Time `json:"expiry"`
}
