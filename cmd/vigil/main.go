// Command vigil runs the reasoning pipeline as a development harness:
// observations come in as JSON lines on stdin, replies go to stdout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var metricsAddr string

	root := &cobra.Command{
		Use:           "vigil",
		Short:         "vigil is an autonomous observation-to-action reasoning pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Process JSON observations from stdin",
		Long: `Reads one observation per line from stdin and runs each through the
pipeline. Example input:

  {"id":"o1","type":"message","content":"vi, how many members?","authorId":"u1","channelId":"c1","guildId":"g1"}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, metricsAddr)
		},
	}
	serve.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (e.g. :9290)")
	root.AddCommand(serve)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "vigil", version)
		},
	})

	return root
}
