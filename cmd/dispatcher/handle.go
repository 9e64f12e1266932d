package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/server"

	"github.com/spf13/cobra"
)

var (
	handleFile       string
	handleEvent      string
	handleConfigFile string
	handleDryRun     bool
)

func handleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handle",
		Short: "Process a single webhook body from a file",
		Long: `Process one trigger through the full decision pipeline and print the
webhook response. Useful for replaying a captured event.

Examples:
  # Replay a captured payload
  dispatcher handle -f event.json -e databases.main.collections.applications.documents.42.update

  # Read from stdin without sending anything
  cat event.json | dispatcher handle -f - --dry-run`,
		RunE: runHandle,
	}

	cmd.Flags().StringVarP(&handleFile, "file", "f", "", "Webhook body to process, - for stdin (required)")
	cmd.Flags().StringVarP(&handleEvent, "event", "e", "", "Event name header value")
	cmd.Flags().StringVarP(&handleConfigFile, "config", "c", "", "Config file (defaults to configs/config.yaml)")
	cmd.Flags().BoolVar(&handleDryRun, "dry-run", false, "Decide without sending or persisting")
	cmd.MarkFlagRequired("file")

	return cmd
}

func runHandle(cmd *cobra.Command, args []string) error {
	body, err := readInput(cmd.InOrStdin(), handleFile)
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	cfg, err := loadConfig(handleConfigFile)
	if err != nil {
		return err
	}
	if handleDryRun {
		cfg.Notifications.DryRun = true
	}

	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()
	a, err := newApp(ctx, cfg, log, 1)
	if err != nil {
		return err
	}
	defer a.Close()

	headers := http.Header{}
	if handleEvent != "" {
		name := "X-Appwrite-Event"
		if len(cfg.Notifications.EventHeaders) > 0 {
			name = cfg.Notifications.EventHeaders[0]
		}
		headers.Set(name, handleEvent)
	}

	outcome, err := a.handler.Handle(ctx, headers, body)
	status, resp := server.ResponseFromOutcome(outcome, err)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(resp); encErr != nil {
		return encErr
	}
	if status != http.StatusOK {
		return fmt.Errorf("processing failed: %s", resp.Error)
	}
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
