package router

import (
	"net/http"
	"pay-ledger-api/handler"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func NewRouter(userHandler *handler.UserHandler, accountHandler *handler.AccountHandler, transactionHandler *handler.TransactionHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	if userHandler != nil {
		mux.Handle("POST /register", handler.ErrorHandlingMiddleware(userHandler.Register))
		mux.Handle("POST /login", handler.ErrorHandlingMiddleware(userHandler.Login))
	}

	if accountHandler != nil {
		mux.Handle("POST /api/accounts", handler.AuthMiddleware(handler.ErrorHandlingMiddleware(accountHandler.OpenAccount)))
		mux.Handle("GET /api/accounts", handler.AuthMiddleware(handler.ErrorHandlingMiddleware(accountHandler.ListAccounts)))
		mux.Handle("GET /api/accounts/{accountId}", handler.AuthMiddleware(handler.ErrorHandlingMiddleware(accountHandler.GetAccount)))
	}

	if transactionHandler != nil {
		mux.Handle("POST /api/transfers", handler.AuthMiddleware(handler.ErrorHandlingMiddleware(transactionHandler.CreateTransfer)))
		mux.Handle("GET /api/transactions/{id}", handler.AuthMiddleware(handler.ErrorHandlingMiddleware(transactionHandler.GetTransaction)))
		mux.Handle("GET /api/accounts/{accountId}/transactions", handler.AuthMiddleware(handler.ErrorHandlingMiddleware(transactionHandler.ListTransactionsForAccount)))
	}

	return mux
}
