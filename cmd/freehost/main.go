// Command freehost runs the FreeHost file server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// flags shared by every command
var (
	configPath string
	rootDir    string
	port       string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "freehost",
		Short: "Self-hosted static file and site hosting",
		Long: `freehost accepts multipart uploads grouped into named projects and serves
them back as static sites under /projects/<name>/.

Running freehost without a subcommand is the same as "freehost serve".`,
		Version:      version,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or JSON config file")
	root.PersistentFlags().StringVar(&rootDir, "root", "", "storage root (overrides config)")
	root.PersistentFlags().StringVar(&port, "port", "", "listen port (overrides config and PORT)")

	root.AddCommand(newServeCmd(), newStatsCmd())
	return root
}
