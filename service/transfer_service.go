package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"pay-ledger-api/common"
	"pay-ledger-api/logger"
	"pay-ledger-api/model"
	"pay-ledger-api/repository"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	ErrSenderAccountNotFound   = errors.New("sender account not found")
	ErrReceiverAccountNotFound = errors.New("receiver account not found")
	ErrSameAccountTransfer     = errors.New("cannot transfer money to the same account")
	ErrPermissionDenied        = errors.New("you can only transfer money from your own account")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInvalidAmount           = errors.New("transfer amount must be a positive number of minor units")
	ErrConcurrencyExhausted    = errors.New("transfer aborted after repeated concurrent balance updates")
	ErrCompensationApplied     = errors.New("transfer failed after debit; the sender balance was restored")
	ErrAccountNotFound         = errors.New("account not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
)

const (
	defaultMaxCASRetries = 5
	defaultPageSize      = 20
	maxPageSize          = 100

	idemCachePrefix = "transfer:idem:"
	idemCacheTTL    = 24 * time.Hour
)

// TransferService moves money between two accounts and records every
// attempt in the transaction ledger. Balances are mutated exclusively
// through compare-and-swap, never read-modify-write, and transfers on the
// same account pair are additionally serialized by a pair lock.
type TransferService struct {
	accountRepo     repository.IAccountRepository
	transactionRepo repository.ITransactionRepository
	cache           ICacheClient
	locks           *pairLocker
	maxCASRetries   int
}

func NewTransferService(accountRepo repository.IAccountRepository, transactionRepo repository.ITransactionRepository, cache ICacheClient, maxCASRetries int) *TransferService {
	if maxCASRetries <= 0 {
		maxCASRetries = defaultMaxCASRetries
	}
	return &TransferService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		cache:           cache,
		locks:           newPairLocker(),
		maxCASRetries:   maxCASRetries,
	}
}

// Transfer executes a single transfer. Validation failures before the
// ledger record exists return only an error; once the pending record is
// created the transaction is always driven to a terminal state and is
// returned even when that state is failed, so the attempt stays auditable.
func (s *TransferService) Transfer(ctx context.Context, senderID, receiverID string, amount int64, description, idempotencyKey string) (*model.Transaction, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"amount":      amount,
	})
	log.Info("Starting money transfer process")

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if senderID == receiverID {
		return nil, ErrSameAccountTransfer
	}

	if idempotencyKey != "" {
		if prior := s.lookupDuplicate(ctx, idempotencyKey); prior != nil {
			log.WithField("transaction_id", prior.ID).Info("Duplicate transfer request; returning prior result")
			return prior, nil
		}
	}

	if _, err := s.accountRepo.GetAccountByID(senderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSenderAccountNotFound
		}
		return nil, err
	}
	if _, err := s.accountRepo.GetAccountByID(receiverID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReceiverAccountNotFound
		}
		return nil, err
	}

	// The pending record is written before any balance is touched so that
	// every attempt that passed validation leaves an audit trail.
	txn := &model.Transaction{
		ID:             uuid.NewString(),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Amount:         amount,
		Description:    description,
		Status:         model.StatusPending,
		IdempotencyKey: idempotencyKey,
	}
	if err := s.transactionRepo.CreateTransaction(txn); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
			// A concurrent request with the same key won the insert race.
			prior, lookupErr := s.transactionRepo.GetTransactionByIdempotencyKey(idempotencyKey)
			if lookupErr != nil {
				return nil, fmt.Errorf("could not load prior transaction for idempotency key: %w", lookupErr)
			}
			log.WithField("transaction_id", prior.ID).Info("Duplicate transfer request; returning prior result")
			return prior, nil
		}
		return nil, fmt.Errorf("could not create transaction record: %w", err)
	}
	log = log.WithField("transaction_id", txn.ID)

	release := s.locks.Lock(senderID, receiverID)
	defer release()

	// Debit the sender, retrying a bounded number of times when an
	// external writer moved the version between our read and the swap.
	debited := false
	for attempt := 0; attempt <= s.maxCASRetries; attempt++ {
		sender, err := s.accountRepo.GetAccountByID(senderID)
		if err != nil {
			return s.fail(txn, "", fmt.Errorf("could not re-read sender account: %w", err), log)
		}
		if sender.Balance < amount {
			log.Info("Transfer rejected: insufficient funds")
			return s.fail(txn, model.ReasonInsufficientFunds, ErrInsufficientFunds, log)
		}

		err = s.accountRepo.CompareAndSwapBalance(senderID, sender.Version, sender.Balance-amount)
		if err == nil {
			debited = true
			break
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return s.fail(txn, "", fmt.Errorf("could not debit sender: %w", err), log)
		}
		log.WithField("attempt", attempt+1).Info("Sender debit lost a version race; retrying")
	}
	if !debited {
		log.Error("Transfer aborted: sender debit retries exhausted")
		return s.fail(txn, model.ReasonConcurrencyExhausted, ErrConcurrencyExhausted, log)
	}

	// Credit the receiver. If this cannot be completed the sender debit
	// must be reversed before the record is finalized: money may never be
	// destroyed in flight.
	credited := false
	var creditErr error
	for attempt := 0; attempt <= s.maxCASRetries; attempt++ {
		receiver, err := s.accountRepo.GetAccountByID(receiverID)
		if err != nil {
			creditErr = err
			break
		}

		err = s.accountRepo.CompareAndSwapBalance(receiverID, receiver.Version, receiver.Balance+amount)
		if err == nil {
			credited = true
			break
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			creditErr = err
			break
		}
		creditErr = err
		log.WithField("attempt", attempt+1).Info("Receiver credit lost a version race; retrying")
	}
	if !credited {
		log.WithError(creditErr).Error("Receiver credit failed after sender debit; compensating")
		s.compensateDebit(senderID, amount, log)
		return s.fail(txn, model.ReasonCompensationApplied, ErrCompensationApplied, log)
	}

	if err := s.transactionRepo.TransitionStatus(txn.ID, model.StatusPending, model.StatusCompleted, ""); err != nil {
		return nil, fmt.Errorf("could not finalize transaction: %w", err)
	}
	txn.Status = model.StatusCompleted
	txn.UpdatedAt = time.Now().UTC()

	s.cacheResult(ctx, idempotencyKey, txn.ID)

	log.Info("Transfer completed successfully")
	return txn, nil
}

// fail drives the transaction to its terminal failed state and hands the
// (still auditable) record back together with the causing error.
func (s *TransferService) fail(txn *model.Transaction, reason string, cause error, log *logrus.Entry) (*model.Transaction, error) {
	if err := s.transactionRepo.TransitionStatus(txn.ID, model.StatusPending, model.StatusFailed, reason); err != nil {
		log.WithError(err).Error("Failed to mark transaction as failed")
	}
	txn.Status = model.StatusFailed
	txn.FailureReason = reason
	txn.UpdatedAt = time.Now().UTC()
	return txn, cause
}

// compensateDebit re-credits the sender after a failed receiver credit.
// Version conflicts are retried with a fresh read until the re-credit
// lands; any other store error is unrecoverable here and is logged for
// manual reconciliation.
func (s *TransferService) compensateDebit(senderID string, amount int64, log *logrus.Entry) {
	for attempt := 1; ; attempt++ {
		sender, err := s.accountRepo.GetAccountByID(senderID)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Error("Compensation could not re-read sender; debit left unreversed, manual reconciliation required")
			return
		}

		err = s.accountRepo.CompareAndSwapBalance(senderID, sender.Version, sender.Balance+amount)
		if err == nil {
			log.WithField("attempt", attempt).Warn("Compensation applied: sender debit reversed")
			return
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			log.WithError(err).WithField("attempt", attempt).Error("Compensation failed; debit left unreversed, manual reconciliation required")
			return
		}
	}
}

// lookupDuplicate returns the transaction previously accepted for the
// idempotency key, or nil if this key has not been seen. The redis entry
// is only a fast path; the ledger's unique key index stays authoritative.
func (s *TransferService) lookupDuplicate(ctx context.Context, key string) *model.Transaction {
	if s.cache != nil {
		id, err := s.cache.Get(ctx, idemCachePrefix+key).Result()
		if err == nil {
			if txn, lookupErr := s.transactionRepo.GetTransactionByID(id); lookupErr == nil {
				return txn
			}
		} else if err != redis.Nil {
			logger.Log.WithError(err).Warn("Idempotency cache lookup failed; falling back to ledger")
		}
	}

	txn, err := s.transactionRepo.GetTransactionByIdempotencyKey(key)
	if err != nil {
		return nil
	}
	return txn
}

func (s *TransferService) cacheResult(ctx context.Context, key, transactionID string) {
	if key == "" || s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, idemCachePrefix+key, transactionID, idemCacheTTL).Err(); err != nil {
		logger.Log.WithError(err).Warn("Failed to cache idempotency result")
	}
}

// GetTransaction retrieves a single transaction by id.
func (s *TransferService) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	txn, err := s.transactionRepo.GetTransactionByID(id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

// ListTransactionsForAccount retrieves one page of the transaction history
// for an account owned by the requesting user, newest first. The returned
// cursor restarts the listing; it is empty once the history is exhausted.
func (s *TransferService) ListTransactionsForAccount(ctx context.Context, userID, accountID, cursorToken string, limit int) ([]*model.Transaction, string, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"requesting_user_id": userID,
		"target_account_id":  accountID,
	})

	// Authorization check: the user must own the account.
	account, err := s.accountRepo.GetAccountByID(accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", ErrAccountNotFound
		}
		return nil, "", err
	}
	if account.UserID != userID {
		log.Warn("Permission denied for accessing account's transaction history")
		return nil, "", ErrPermissionDenied
	}

	var cursor *common.Cursor
	if cursorToken != "" {
		decoded, err := common.DecodeCursor(cursorToken)
		if err != nil {
			return nil, "", err
		}
		cursor = &decoded
	}

	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	return s.transactionRepo.GetTransactionsByAccountID(accountID, cursor, limit)
}
