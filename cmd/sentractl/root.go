package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/sentra-bridge/internal/infrastructure/config"
	"github.com/nerrad567/sentra-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/sentra-bridge/sentra"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global flag values, bound in init.
var (
	flagBaseURL string
	flagToken   string
	flagTimeout int
	flagOutput  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sentractl",
	Short: "Sentra security system CLI",
	Long: `sentractl is the command-line client for a Sentra-monitored security
system. It talks directly to the vendor portal: list devices, watch the
live event stream, arm and disarm partitions, drive locks, garage doors,
lights and thermostats.

A portal session token is required for every command. Supply it with
--token or the SENTRA_SESSION_TOKEN environment variable.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and reports errors on stderr.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "portal API root (default: production portal)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "portal session token (default: $SENTRA_SESSION_TOKEN)")
	rootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", 30, "request timeout in seconds")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "output format: table, json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log portal requests to stderr")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("sentractl %s (commit %s, built %s)\n", version, commit, date)
	},
}

// sessionToken resolves the portal token from the flag or environment.
func sessionToken() (string, error) {
	if flagToken != "" {
		return flagToken, nil
	}
	if env := os.Getenv("SENTRA_SESSION_TOKEN"); env != "" {
		return env, nil
	}
	return "", errors.New("a portal session token is required (--token or SENTRA_SESSION_TOKEN)")
}

// newVendorClient builds a vendor client from the global flags.
func newVendorClient() (*sentra.Client, error) {
	token, err := sessionToken()
	if err != nil {
		return nil, err
	}

	opts := []sentra.Option{
		sentra.WithSessionToken(token),
		sentra.WithUserAgent("sentractl/" + version),
		sentra.WithHTTPClient(&http.Client{Timeout: time.Duration(flagTimeout) * time.Second}),
	}
	if flagBaseURL != "" {
		opts = append(opts, sentra.WithBaseURL(flagBaseURL))
	}
	if flagVerbose {
		opts = append(opts, sentra.WithLogger(verboseLogger()))
	}

	return sentra.NewClient(opts...)
}

// newVendorBridge builds a bridge for commands that need the full device
// catalogue or the event stream.
func newVendorBridge() (*sentra.Bridge, error) {
	client, err := newVendorClient()
	if err != nil {
		return nil, err
	}

	cfg := sentra.BridgeConfig{Client: client}
	if flagVerbose {
		cfg.Logger = verboseLogger()
	}
	return sentra.NewBridge(cfg)
}

// verboseLogger writes debug-level text logs to stderr, keeping stdout
// clean for command output.
func verboseLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{
		Level:  "debug",
		Format: "text",
		Output: "stderr",
	}, version)
}

// commandContext returns a context bounded by the request timeout.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(flagTimeout)*time.Second)
}
