package types

import "time"

// Session is an issued bearer credential.
type Session struct {
	Token     string    `json:"token"`
	UserID    int       `json:"userId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Identity is the verified caller behind a session token.
type Identity struct {
	UserID    int
	Roles     RoleSet
	TokenID   string
	ExpiresAt time.Time
}
