// file: service/account_service.go

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"pay-ledger-api/model"
	"pay-ledger-api/repository"
	"time"

	"github.com/google/uuid"
)

// AccountService owns the account provisioning surface. Balances are only
// written here at account opening; after that the transfer engine is the
// sole writer.
type AccountService struct {
	repo  repository.IAccountRepository
	cache ICacheClient
}

func NewAccountService(repo repository.IAccountRepository, cache ICacheClient) *AccountService {
	return &AccountService{
		repo:  repo,
		cache: cache,
	}
}

// OpenAccount provisions a new account with a non-negative initial balance
// in minor units and invalidates the user's account cache.
func (s *AccountService) OpenAccount(userID, currency string, initialBalance int64) (*model.Account, error) {
	if initialBalance < 0 {
		return nil, ErrInvalidAmount
	}

	account := &model.Account{
		ID:       uuid.NewString(),
		UserID:   userID,
		Balance:  initialBalance,
		Currency: currency,
	}

	if err := s.repo.CreateAccount(account); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("accounts:%s", userID)
	if s.cache != nil {
		s.cache.Del(context.Background(), cacheKey)
	}

	return account, nil
}

// ListAccountsForUser lists accounts for a specific user, utilizing a
// cache-aside strategy.
func (s *AccountService) ListAccountsForUser(userID string) ([]*model.Account, error) {
	cacheKey := fmt.Sprintf("accounts:%s", userID)
	ctx := context.Background()

	if s.cache != nil {
		cachedAccounts, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var accounts []*model.Account
			if err := json.Unmarshal([]byte(cachedAccounts), &accounts); err == nil {
				return accounts, nil
			}
		}
	}

	accounts, err := s.repo.GetAccountsByUserID(userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(accounts); err == nil {
			s.cache.Set(ctx, cacheKey, data, 10*time.Minute)
		}
	}

	return accounts, nil
}

// GetAccountForUser retrieves a single account and verifies that the
// requesting user owns it.
func (s *AccountService) GetAccountForUser(userID, accountID string) (*model.Account, error) {
	account, err := s.repo.GetAccountByID(accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if account.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return account, nil
}
