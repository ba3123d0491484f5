// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/trpt/internal/config"
	"firestige.xyz/trpt/internal/log"
)

var (
	// Global flags
	configFile string
	logLevel   string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trpt",
	Short: "trpt - INT telemetry report decoder",
	Long: `trpt decodes, inspects and rewrites P4 In-band Network Telemetry reports.

A report is a UDP datagram sent by an INT sink switch to a collector. It
carries a report header followed either by the encapsulated packet headers
and INT metadata stack (packet reports) or by a drop header (drop reports).

Reports can be given as hex on the command line or read from pcap/pcapng
capture files taken on the collector.`,
	Version:           "0.1.0",
	PersistentPreRunE: loadRuntime,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log level (debug/info/warn/error)")

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(inspectCmd)
}

// loadRuntime loads configuration and initializes logging.
func loadRuntime(*cobra.Command, []string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := log.Init(c.Log); err != nil {
		return err
	}
	cfg = c
	return nil
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
