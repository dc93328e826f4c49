package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"pay-ledger-api/common"
	"pay-ledger-api/logger"
	"pay-ledger-api/model"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ITransactionRepository defines the contract for the transaction ledger.
// Records are created pending and only ever move to completed or failed.
type ITransactionRepository interface {
	CreateTransaction(txn *model.Transaction) error
	GetTransactionByID(id string) (*model.Transaction, error)
	GetTransactionByIdempotencyKey(key string) (*model.Transaction, error)
	TransitionStatus(id string, from, to model.TransactionStatus, reason string) error
	GetTransactionsByAccountID(accountID string, cursor *common.Cursor, limit int) ([]*model.Transaction, string, error)
}

// TransactionRepository implements ITransactionRepository.
type TransactionRepository struct {
	DB *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{DB: db}
}

const transactionColumns = `id, sender_id, receiver_id, amount, description, status, failure_reason, COALESCE(idempotency_key, ''), created_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (*model.Transaction, error) {
	txn := &model.Transaction{}
	err := row.Scan(
		&txn.ID, &txn.SenderID, &txn.ReceiverID, &txn.Amount, &txn.Description,
		&txn.Status, &txn.FailureReason, &txn.IdempotencyKey, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// CreateTransaction inserts a new pending transaction. The unique index on
// idempotency_key is the linearization point for request deduplication:
// the second insert with the same key fails with ErrDuplicateIdempotencyKey.
func (r *TransactionRepository) CreateTransaction(txn *model.Transaction) error {
	if txn.Amount <= 0 {
		return ErrInvalidAmount
	}
	if txn.SenderID == txn.ReceiverID {
		return ErrSameAccount
	}

	log := logger.Log.WithFields(logrus.Fields{
		"transaction_id": txn.ID,
		"sender_id":      txn.SenderID,
		"receiver_id":    txn.ReceiverID,
		"amount":         txn.Amount,
	})
	log.Info("Executing query to create a new transaction")

	var key interface{}
	if txn.IdempotencyKey != "" {
		key = txn.IdempotencyKey
	}

	query := `INSERT INTO transactions (id, sender_id, receiver_id, amount, description, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`
	err := r.DB.QueryRow(query, txn.ID, txn.SenderID, txn.ReceiverID, txn.Amount, txn.Description, model.StatusPending, key).
		Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateIdempotencyKey
		}
		log.WithError(err).Error("Failed to execute create transaction query")
		return err
	}

	txn.Status = model.StatusPending
	return nil
}

// GetTransactionByID retrieves a single transaction by its identifier.
func (r *TransactionRepository) GetTransactionByID(id string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	txn, err := scanTransaction(r.DB.QueryRow(query, id))
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithField("transaction_id", id).WithError(err).Error("Failed to execute get transaction query")
		}
		return nil, err
	}
	return txn, nil
}

// GetTransactionByIdempotencyKey retrieves the transaction previously
// accepted for the given idempotency key, if any.
func (r *TransactionRepository) GetTransactionByIdempotencyKey(key string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`
	txn, err := scanTransaction(r.DB.QueryRow(query, key))
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithField("idempotency_key", key).WithError(err).Error("Failed to execute get transaction by idempotency key query")
		}
		return nil, err
	}
	return txn, nil
}

// TransitionStatus moves a transaction from one status to another. Only
// pending -> completed and pending -> failed are legal; terminal records
// are immutable. The WHERE clause on the current status makes the check
// atomic with the update.
func (r *TransactionRepository) TransitionStatus(id string, from, to model.TransactionStatus, reason string) error {
	if from != model.StatusPending || (to != model.StatusCompleted && to != model.StatusFailed) {
		return ErrInvalidTransition
	}

	log := logger.Log.WithFields(logrus.Fields{
		"transaction_id": id,
		"from_status":    from,
		"to_status":      to,
		"failure_reason": reason,
	})
	log.Info("Executing query to transition transaction status")

	query := `UPDATE transactions SET status = $1, failure_reason = $2, updated_at = now() WHERE id = $3 AND status = $4`
	res, err := r.DB.Exec(query, to, reason, id, from)
	if err != nil {
		log.WithError(err).Error("Failed to execute transition status query")
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	var current model.TransactionStatus
	if err := r.DB.QueryRow(`SELECT status FROM transactions WHERE id = $1`, id).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		log.WithError(err).Error("Failed to resolve transition miss")
		return err
	}

	log.WithField("current_status", current).Warn("Rejected illegal status transition")
	return ErrInvalidTransition
}

// GetTransactionsByAccountID retrieves transactions involving the account,
// newest first, one page at a time. The returned cursor restarts the
// listing after the last row of this page; it is empty once the listing
// is exhausted.
func (r *TransactionRepository) GetTransactionsByAccountID(accountID string, cursor *common.Cursor, limit int) ([]*model.Transaction, string, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to get transactions by account ID")

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE (sender_id = $1 OR receiver_id = $1)`
	args := []interface{}{accountID}

	if cursor != nil {
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for transactions by account ID")
		return nil, "", err
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan transaction row")
			return nil, "", err
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	next := ""
	if len(transactions) == limit && limit > 0 {
		last := transactions[len(transactions)-1]
		next = common.EncodeCursor(common.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return transactions, next, nil
}
