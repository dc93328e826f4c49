// handler/main_test.go
package handler

import (
	"os"
	"pay-ledger-api/config"
	"pay-ledger-api/logger"
	"testing"
)

// TestMain sets up shared state for the handler package tests.
func TestMain(m *testing.M) {
	logger.Init()
	config.AppConfig.JWT.SecretKey = "handler-test-secret"
	os.Exit(m.Run())
}
