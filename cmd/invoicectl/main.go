// Command invoicectl runs the invoice extraction pipeline against a local PDF.
package main

import (
	"fmt"
	"os"

	"invoice-backend/internal/shared/config"
	"invoice-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	defer telemetry.Sync()

	if err := newRootCmd(cfg, defaultDeps()).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
