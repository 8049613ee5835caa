package main

import "time"

// Account is a registered user.
type Account struct {
	ID        int64
	Username  string
	Email     string
	PwHash    string
	CreatedAt time.Time
}

// Session binds a client token to one account. The database row is the
// authority; cookies only carry the token.
type Session struct {
	Token     string
	AccountID int64
	CreatedAt time.Time
}
