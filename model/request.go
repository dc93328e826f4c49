// file: model/request.go

package model

// RegisterRequest defines the payload for creating a new user.
// It includes validation tags to ensure data integrity at the entry point.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest defines the payload for user authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// OpenAccountRequest defines the payload for provisioning a new account.
// The initial balance is in minor units and may not be negative.
type OpenAccountRequest struct {
	Currency       string `json:"currency" validate:"required,len=3,uppercase"`
	InitialBalance int64  `json:"initial_balance" validate:"gte=0"`
}

// TransferRequest defines the payload for a money transfer. The amount is
// in minor units; the idempotency key travels in the Idempotency-Key header.
type TransferRequest struct {
	SenderAccountID   string `json:"sender_account_id" validate:"required,uuid4"`
	ReceiverAccountID string `json:"receiver_account_id" validate:"required,uuid4"`
	Amount            int64  `json:"amount" validate:"required,gt=0"`
	Description       string `json:"description" validate:"max=255"`
}
