// Package cli implements studyforgectl, an operator-facing command line for
// driving the ingestion and document-listing services directly against the
// configured provider and vector store, without going through the HTTP API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studyforge/studyforge/internal/app"
	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/logger"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "studyforgectl",
	Short: "Operate a studyforge deployment from the command line",
}

// Execute runs the root command; cmd/studyforgectl/main.go's only job is to
// call this and translate a returned error into a process exit code.
func Execute() error {
	return rootCmd.Execute()
}

// bootstrap loads configuration and a logger the same way the HTTP server
// does, so CLI commands see the same provider/vector-store wiring.
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func buildServices() (*app.Services, func(), error) {
	cfg, log, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}
	return app.BuildServices(rootCmd.Context(), cfg, log)
}

func fatalf(cmd *cobra.Command, format string, args ...any) {
	cmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
