// Command pharmad runs the pharmacy API server and its maintenance tasks.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pharmacy/internal/config"
	"github.com/alfredjeanlab/pharmacy/internal/logging"
	"github.com/alfredjeanlab/pharmacy/internal/store"
	"github.com/alfredjeanlab/pharmacy/internal/store/memory"
	"github.com/alfredjeanlab/pharmacy/internal/store/postgres"
)

var (
	envFile  string
	inMemory bool
)

var rootCmd = &cobra.Command{
	Use:           "pharmad <command>",
	Short:         "Pharmacy management server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "memory", false, "use an in-memory store instead of Postgres")

	rootCmd.AddGroup(
		&cobra.Group{ID: "server", Title: "Server:"},
		&cobra.Group{ID: "data", Title: "Data:"},
	)
	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the process logger. The returned
// closer flushes the log file, if any.
func setup() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closer, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, closer, nil
}

// openStore connects to Postgres, or returns an empty in-memory store when
// --memory is set.
func openStore(cfg *config.Config) (store.Store, error) {
	if inMemory {
		return memory.New(), nil
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	pg, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return pg, nil
}
