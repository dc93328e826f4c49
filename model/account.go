package model

import "time"

// Account holds a user's balance in integer minor units (cents).
// Version is the optimistic concurrency counter: every committed balance
// update increments it by exactly one.
type Account struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
