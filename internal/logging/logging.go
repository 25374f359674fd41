// Package logging builds the server's zap.Logger. Grounded on the
// zap.NewProduction()/zap.NewDevelopment() call sites throughout
// PayRpc-Bitcoin_Sprint_Production_Final_2 (e.g. cmd/smoke/main.go):
// production config by default, development config (console encoder,
// debug level) under an explicit env var.
package logging

import (
	"os"

	"go.uber.org/zap"
)

// New builds the process-wide logger. KVWS_DEV=1 switches to
// zap.NewDevelopment() for readable local output; any build/config
// error falls back to zap.NewNop() rather than panicking the server.
func New() *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if os.Getenv("KVWS_DEV") == "1" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}
