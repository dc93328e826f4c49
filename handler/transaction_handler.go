package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"pay-ledger-api/common"
	"pay-ledger-api/model"
	"pay-ledger-api/service"
	"strconv"
)

// TransactionHandler holds dependencies for transfer-related handlers.
type TransactionHandler struct {
	transferService *service.TransferService
	accountService  *service.AccountService
}

// NewTransactionHandler creates a new TransactionHandler with its dependencies.
func NewTransactionHandler(transferService *service.TransferService, accountService *service.AccountService) *TransactionHandler {
	return &TransactionHandler{
		transferService: transferService,
		accountService:  accountService,
	}
}

// CreateTransfer godoc
// @Summary      Transfer money between accounts
// @Description  Moves an amount in minor units from one account to another and records the attempt in the ledger. The user must own the sender account. Retries carrying the same Idempotency-Key header return the original transaction instead of transferring again.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        transfer body model.TransferRequest true "Details of the financial transfer"
// @Param        Idempotency-Key header string false "Caller-supplied token making retries safe"
// @Success      201  {object}  model.Transaction
// @Failure      400  {object}  common.AppError "Bad Request (e.g., invalid amount, same account)"
// @Failure      401  {object}  common.AppError "Unauthorized: Invalid or missing token"
// @Failure      403  {object}  common.AppError "Forbidden: User does not own the sender account"
// @Failure      404  {object}  common.AppError "Sender or receiver account not found"
// @Failure      422  {object}  common.AppError "Transfer failed; the failed transaction record is attached"
// @Failure      500  {object}  common.AppError "Internal server error while processing transfer"
// @Router       /api/transfers [post]
func (h *TransactionHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.TransferRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	// Ownership is an API-boundary concern; the engine trusts the sender
	// identity it is handed.
	if _, err := h.accountService.GetAccountForUser(userID, req.SenderAccountID); err != nil {
		switch err {
		case service.ErrAccountNotFound:
			return common.NewAppError(http.StatusNotFound, service.ErrSenderAccountNotFound.Error(), err)
		case service.ErrPermissionDenied:
			return common.NewAppError(http.StatusForbidden, err.Error(), err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not verify sender account", err)
		}
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	transaction, err := h.transferService.Transfer(r.Context(), req.SenderAccountID, req.ReceiverAccountID, req.Amount, req.Description, idempotencyKey)
	if err != nil {
		// Map specific business logic errors to appropriate HTTP status
		// codes. Failures that happened after the ledger record was
		// created carry the failed record in the response details.
		switch {
		case errors.Is(err, service.ErrSenderAccountNotFound), errors.Is(err, service.ErrReceiverAccountNotFound):
			return common.NewAppError(http.StatusNotFound, err.Error(), err)
		case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrSameAccountTransfer):
			return common.NewAppError(http.StatusBadRequest, err.Error(), err)
		case errors.Is(err, service.ErrInsufficientFunds):
			return common.NewAppError(http.StatusUnprocessableEntity, err.Error(), err).WithDetails(transaction)
		case errors.Is(err, service.ErrConcurrencyExhausted), errors.Is(err, service.ErrCompensationApplied):
			return common.NewAppError(http.StatusConflict, err.Error(), err).WithDetails(transaction)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not process transfer", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(transaction)
	return nil
}

// GetTransaction godoc
// @Summary      Get a single transaction
// @Description  Retrieves one transaction record by its identifier.
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "The transaction ID"
// @Success      200  {object}  model.Transaction
// @Failure      401  {object}  common.AppError "Unauthorized: Invalid or missing token"
// @Failure      404  {object}  common.AppError "Transaction not found"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /api/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) *common.AppError {
	transactionID := r.PathValue("id")

	transaction, err := h.transferService.GetTransaction(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			return common.NewAppError(http.StatusNotFound, err.Error(), err)
		}
		return common.NewAppError(http.StatusInternalServerError, "Could not retrieve transaction", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transaction)
	return nil
}

// transactionPage is the response envelope for paginated history listings.
type transactionPage struct {
	Transactions []*model.Transaction `json:"transactions"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}

// ListTransactionsForAccount godoc
// @Summary      List account transaction history
// @Description  Retrieves one page of the transaction history for an account owned by the authenticated user, newest first. Pass the returned next_cursor to continue the listing.
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        accountId path string true "The ID of the account to retrieve transactions for"
// @Param        cursor query string false "Pagination cursor from a previous page"
// @Param        limit query int false "Page size (default 20, max 100)"
// @Success      200  {object}  transactionPage "One page of transactions for the account"
// @Failure      400  {object}  common.AppError "Invalid pagination cursor or limit"
// @Failure      401  {object}  common.AppError "Unauthorized: Invalid or missing token"
// @Failure      403  {object}  common.AppError "Forbidden: User does not own the specified account"
// @Failure      404  {object}  common.AppError "Account with the specified ID not found"
// @Failure      500  {object}  common.AppError "Internal server error while retrieving transactions"
// @Router       /api/accounts/{accountId}/transactions [get]
func (h *TransactionHandler) ListTransactionsForAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	accountID := r.PathValue("accountId")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return common.NewAppError(http.StatusBadRequest, "Invalid limit query parameter", err)
		}
		limit = parsed
	}

	transactions, nextCursor, err := h.transferService.ListTransactionsForAccount(r.Context(), userID, accountID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			return common.NewAppError(http.StatusNotFound, err.Error(), err)
		case errors.Is(err, service.ErrPermissionDenied):
			return common.NewAppError(http.StatusForbidden, err.Error(), err)
		case errors.Is(err, common.ErrInvalidCursor):
			return common.NewAppError(http.StatusBadRequest, err.Error(), err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not retrieve transactions", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transactionPage{Transactions: transactions, NextCursor: nextCursor})
	return nil
}
