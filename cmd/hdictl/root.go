package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	hdi "github.com/NotrixInc/nx-hdi"
)

var (
	// cfgFile allows specifying a config file
	cfgFile string
	// verbose forces debug logging
	verbose bool
	// libraryDir overrides the configured library directory
	libraryDir string
	// lib64 overrides the 64-bit directory suffix
	lib64 bool

	rootCmd = &cobra.Command{
		Use:   "hdictl",
		Short: "Inspect and exercise HDI service implementations",
		Long: `hdictl resolves interface descriptors to implementation libraries,
loads them through the broker, and queries or serves the service manager.

Examples:
  hdictl resolve ohos.hdi.sample.v1_0.IFoo sample_driver_service
  hdictl load ohos.hdi.sample.v1_0.IFoo sample_driver_service
  hdictl services --watch
  hdictl serve --publish sample_driver_service=ohos.hdi.sample.v1_0.IFoo`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&libraryDir, "library-dir", "", "trusted library directory, without the 64 suffix")
	rootCmd.PersistentFlags().BoolVar(&lib64, "lib64", false, "append 64 to the library directory")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies flag
// overrides.
func loadConfig(cmd *cobra.Command) (hdi.Config, error) {
	cfg, err := hdi.LoadConfig(cfgFile)
	if err != nil {
		return hdi.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("library-dir") {
		cfg.LibraryDir = libraryDir
	}
	if flags.Changed("lib64") {
		cfg.Lib64 = lib64
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg hdi.Config) hdi.Logger {
	return hdi.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
}

// exitError carries a specific exit status out of a RunE handler.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }
