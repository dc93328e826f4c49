// service/transfer_concurrency_test.go
package service

import (
	"context"
	"database/sql"
	"pay-ledger-api/common"
	"pay-ledger-api/model"
	"pay-ledger-api/repository"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// In-memory fakes with real CAS and unique-key semantics, used to drive the
// engine under actual goroutine concurrency.

type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
}

func newFakeAccountStore(accounts ...*model.Account) *fakeAccountStore {
	s := &fakeAccountStore{accounts: make(map[string]*model.Account)}
	for _, acc := range accounts {
		if acc.Version == 0 {
			acc.Version = 1
		}
		s.accounts[acc.ID] = acc
	}
	return s
}

func (s *fakeAccountStore) CreateAccount(account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	return nil
}

func (s *fakeAccountStore) GetAccountByID(id string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	snapshot := *acc
	return &snapshot, nil
}

func (s *fakeAccountStore) GetAccountsByUserID(userID string) ([]*model.Account, error) {
	return nil, nil
}

func (s *fakeAccountStore) CompareAndSwapBalance(id string, expectedVersion, newBalance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	if acc.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	acc.Balance = newBalance
	acc.Version++
	return nil
}

func (s *fakeAccountStore) balance(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance
}

type fakeLedger struct {
	mu    sync.Mutex
	byID  map[string]*model.Transaction
	byKey map[string]string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		byID:  make(map[string]*model.Transaction),
		byKey: make(map[string]string),
	}
}

func (l *fakeLedger) CreateTransaction(txn *model.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if txn.IdempotencyKey != "" {
		if _, exists := l.byKey[txn.IdempotencyKey]; exists {
			return repository.ErrDuplicateIdempotencyKey
		}
		l.byKey[txn.IdempotencyKey] = txn.ID
	}
	stored := *txn
	stored.CreatedAt = time.Now().UTC()
	l.byID[txn.ID] = &stored
	return nil
}

func (l *fakeLedger) GetTransactionByID(id string) (*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	txn, ok := l.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	snapshot := *txn
	return &snapshot, nil
}

func (l *fakeLedger) GetTransactionByIdempotencyKey(key string) (*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.byKey[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	snapshot := *l.byID[id]
	return &snapshot, nil
}

func (l *fakeLedger) TransitionStatus(id string, from, to model.TransactionStatus, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	txn, ok := l.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	if txn.Status != from || from != model.StatusPending {
		return repository.ErrInvalidTransition
	}
	if to != model.StatusCompleted && to != model.StatusFailed {
		return repository.ErrInvalidTransition
	}
	txn.Status = to
	txn.FailureReason = reason
	return nil
}

func (l *fakeLedger) GetTransactionsByAccountID(accountID string, cursor *common.Cursor, limit int) ([]*model.Transaction, string, error) {
	return nil, "", nil
}

func (l *fakeLedger) eachTransaction(fn func(*model.Transaction)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, txn := range l.byID {
		fn(txn)
	}
}

// Opposite-direction transfers on the same account pair must all finish
// (no deadlock) and conserve the total across both accounts.
func TestTransferService_ConcurrentOppositeTransfers(t *testing.T) {
	store := newFakeAccountStore(
		&model.Account{ID: senderAccID, Balance: 10000},
		&model.Account{ID: receiverAccID, Balance: 10000},
	)
	ledger := newFakeLedger()
	svc := NewTransferService(store, ledger, nil, 5)

	const workers = 20
	const perWorker = 5

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			from, to := senderAccID, receiverAccID
			if worker%2 == 1 {
				from, to = to, from
			}
			for j := 0; j < perWorker; j++ {
				_, err := svc.Transfer(context.Background(), from, to, 10, "", "")
				assert.NoError(t, err)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("concurrent transfers did not finish; likely deadlock")
	}

	// Conservation: every transfer moved money, none created or destroyed it.
	total := store.balance(senderAccID) + store.balance(receiverAccID)
	assert.Equal(t, int64(20000), total)
	assert.GreaterOrEqual(t, store.balance(senderAccID), int64(0))
	assert.GreaterOrEqual(t, store.balance(receiverAccID), int64(0))

	// Every record reached a terminal state.
	completed := 0
	ledger.eachTransaction(func(txn *model.Transaction) {
		assert.NotEqual(t, model.StatusPending, txn.Status)
		if txn.Status == model.StatusCompleted {
			completed++
		}
	})
	assert.Equal(t, workers*perWorker, completed)
}

// Concurrent submissions with one idempotency key must apply exactly one
// balance change and all report the same transaction.
func TestTransferService_ConcurrentIdempotentSubmissions(t *testing.T) {
	store := newFakeAccountStore(
		&model.Account{ID: senderAccID, Balance: 1000},
		&model.Account{ID: receiverAccID, Balance: 500},
	)
	ledger := newFakeLedger()
	svc := NewTransferService(store, ledger, nil, 5)

	const callers = 10
	ids := make([]string, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			txn, err := svc.Transfer(context.Background(), senderAccID, receiverAccID, 100, "", "abc")
			assert.NoError(t, err)
			ids[n] = txn.ID
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(900), store.balance(senderAccID))
	assert.Equal(t, int64(600), store.balance(receiverAccID))
	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id, "all callers must observe the same transaction")
	}
}

// Terminal records stay immutable even against direct transition attempts.
func TestFakeLedger_TerminalImmutability(t *testing.T) {
	store := newFakeAccountStore(
		&model.Account{ID: senderAccID, Balance: 1000},
		&model.Account{ID: receiverAccID, Balance: 500},
	)
	ledger := newFakeLedger()
	svc := NewTransferService(store, ledger, nil, 5)

	txn, err := svc.Transfer(context.Background(), senderAccID, receiverAccID, 300, "rent", "")
	assert.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, txn.Status)

	err = ledger.TransitionStatus(txn.ID, model.StatusCompleted, model.StatusFailed, "")
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
	err = ledger.TransitionStatus(txn.ID, model.StatusPending, model.StatusFailed, "")
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}
