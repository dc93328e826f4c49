package model

import (
	"time"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Failure reasons recorded on transactions that reach the failed state.
const (
	ReasonInsufficientFunds    = "insufficient_funds"
	ReasonConcurrencyExhausted = "concurrency_exhausted"
	ReasonCompensationApplied  = "compensation_applied"
)

// Transaction is the durable record of one transfer attempt. A record is
// written for every attempt that passes validation, including failed ones;
// once the status is completed or failed it never changes again.
type Transaction struct {
	ID             string            `json:"id"`
	SenderID       string            `json:"sender_id"`
	ReceiverID     string            `json:"receiver_id"`
	Amount         int64             `json:"amount"`
	Description    string            `json:"description,omitempty"`
	Status         TransactionStatus `json:"status"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	IdempotencyKey string            `json:"-"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
