package main

import (
	"github.com/siherrmann/schoolpayManager"
	"github.com/siherrmann/schoolpayManager/helper"
)

// main is the entry point of the manager service. It starts the Echo server
// with the port from the environment variable SCHOOLPAY_MANAGER_PORT.
func main() {
	schoolpayManager.ManagerServer(helper.GetEnvOrDefault("SCHOOLPAY_MANAGER_PORT", "3000"))
}
