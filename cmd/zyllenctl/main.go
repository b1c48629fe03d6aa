// Command zyllenctl administers a Zyllen installation: seeding the database
// and managing role permissions through the API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zyllenctl",
	Short: "Zyllen administration tool",
	Long: `Zyllen administration tool.

Database commands read the same DB_* variables (and .env) as the API server.
API commands talk to a running server.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
