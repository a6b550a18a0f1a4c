package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/internal/storage"
	"github.com/ikkim/storefront-cart/pkg/logger"
	"github.com/spf13/cobra"
)

type options struct {
	backend     string
	storageFile string
	timeout     time.Duration
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "cartctl",
		Short: "Inspect and manage the persisted storefront cart",
		Long: `cartctl reads and writes the cart snapshot kept in the configured
storage backend, the same one the server restores from on startup.

Available subcommands:
  show   - Print the stored cart
  export - Write the stored cart to an xlsx workbook
  import - Replace the stored cart with the lines of an xlsx workbook
  clear  - Remove the stored cart`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "Storage backend (memory, file, redis, database, s3); default from STORAGE_BACKEND")
	rootCmd.PersistentFlags().StringVar(&opts.storageFile, "storage-file", "", "File path for the file backend; default from STORAGE_FILE_PATH")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newShowCmd(opts))
	rootCmd.AddCommand(newExportCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))
	rootCmd.AddCommand(newClearCmd(opts))

	return rootCmd
}

// openRepository loads configuration, applies flag overrides and opens the
// storage backend. The returned close func releases the backend.
func openRepository(ctx context.Context, opts *options) (repository.SnapshotRepository, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if opts.backend != "" {
		cfg.Storage.Backend = opts.backend
	}
	if opts.storageFile != "" {
		cfg.Storage.FilePath = opts.storageFile
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		EnableColor: true,
	})

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open storage: %w", err)
	}

	closeFn := func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage", err)
		}
	}
	return repository.NewSnapshotRepository(backend), cfg, closeFn, nil
}
