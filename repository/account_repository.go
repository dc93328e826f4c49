package repository

import (
	"database/sql"
	"pay-ledger-api/logger"
	"pay-ledger-api/model"

	"github.com/sirupsen/logrus"
)

// IAccountRepository defines the contract for account database operations.
// CompareAndSwapBalance is the only balance mutation primitive.
type IAccountRepository interface {
	CreateAccount(account *model.Account) error
	GetAccountByID(accountID string) (*model.Account, error)
	GetAccountsByUserID(userID string) ([]*model.Account, error)
	CompareAndSwapBalance(accountID string, expectedVersion, newBalance int64) error
}

// AccountRepository implements IAccountRepository.
type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

// CreateAccount adds a new account to the database.
func (r *AccountRepository) CreateAccount(account *model.Account) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id": account.ID,
		"user_id":    account.UserID,
		"currency":   account.Currency,
	})
	log.Info("Executing query to create a new account")

	query := `INSERT INTO accounts (id, user_id, balance, currency) VALUES ($1, $2, $3, $4) RETURNING version, created_at, updated_at`
	err := r.DB.QueryRow(query, account.ID, account.UserID, account.Balance, account.Currency).
		Scan(&account.Version, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to execute create account query")
		return err
	}
	return nil
}

// GetAccountByID retrieves a single account. Returns sql.ErrNoRows when the
// account does not exist.
func (r *AccountRepository) GetAccountByID(accountID string) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT id, user_id, balance, currency, version, created_at, updated_at FROM accounts WHERE id = $1`
	err := r.DB.QueryRow(query, accountID).Scan(
		&account.ID, &account.UserID, &account.Balance, &account.Currency,
		&account.Version, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Log.WithField("account_id", accountID).WithError(err).Error("Failed to execute get account query")
		}
		return nil, err
	}
	return account, nil
}

// GetAccountsByUserID retrieves all accounts for a specific user.
func (r *AccountRepository) GetAccountsByUserID(userID string) ([]*model.Account, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to get accounts by user ID")

	query := `SELECT id, user_id, balance, currency, version, created_at, updated_at FROM accounts WHERE user_id = $1`
	rows, err := r.DB.Query(query, userID)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for accounts by user ID")
		return nil, err
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		var acc model.Account
		if err := rows.Scan(&acc.ID, &acc.UserID, &acc.Balance, &acc.Currency, &acc.Version, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
			log.WithError(err).Error("Failed to scan account row")
			return nil, err
		}
		accounts = append(accounts, &acc)
	}
	return accounts, rows.Err()
}

// CompareAndSwapBalance atomically sets the balance and increments the
// version, but only while the stored version still matches expectedVersion.
// Returns ErrVersionConflict when a concurrent writer got there first, and
// sql.ErrNoRows when the account no longer exists.
func (r *AccountRepository) CompareAndSwapBalance(accountID string, expectedVersion, newBalance int64) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id":       accountID,
		"expected_version": expectedVersion,
		"new_balance":      newBalance,
	})

	query := `UPDATE accounts SET balance = $1, version = version + 1, updated_at = now() WHERE id = $2 AND version = $3`
	res, err := r.DB.Exec(query, newBalance, accountID, expectedVersion)
	if err != nil {
		log.WithError(err).Error("Failed to execute compare-and-swap balance query")
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	// Zero rows touched: the row is either gone or has moved on. Look it
	// up once more to tell the two apart.
	var exists bool
	if err := r.DB.QueryRow(`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		log.WithError(err).Error("Failed to resolve compare-and-swap miss")
		return err
	}
	if !exists {
		return sql.ErrNoRows
	}

	log.Info("Compare-and-swap lost to a concurrent update")
	return ErrVersionConflict
}
