// dispatcher receives record change webhooks and sends notification email.
//
// Usage:
//
//	dispatcher serve
//	dispatcher handle -f event.json -e databases.main.collections.applications.documents.42.update
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dispatcher",
		Short: "Decide and send record change notifications",
		Long: `dispatcher consumes record change webhooks, decides whether the
change is worth a notification, and delivers at most one email per
distinct meaningful change.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(handleCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
