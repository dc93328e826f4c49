// cmd/main.go
package main

import (
	"pay-ledger-api/app"
)

// @title           Pay-Ledger API
// @version         1.0
// @description     Ledger-backed money transfer API. Amounts are integer minor units.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
