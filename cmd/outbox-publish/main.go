// outbox-publish sends pending voucher events to Pub/Sub once and exits.
// Use it to drain the outbox when the server's dispatcher is not running.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/workflow"
	"github.com/spf13/cobra"
)

func main() {
	var (
		companyId   string
		batchSize   int
		maxAttempts int
	)
	rootCmd := &cobra.Command{
		Use:   "outbox-publish",
		Short: "Publish pending voucher events",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !config.PubSubConfigured() {
				return config.ErrPubSubNotConfigured
			}
			config.ConnectDatabaseWithRetry()
			if config.GetDB() == nil {
				return fmt.Errorf("database not initialized; set DB_* env vars")
			}

			d := workflow.NewVoucherEventDispatcher(workflow.PubSubPublisher{}, config.GetLogger())
			d.BatchSize = batchSize
			d.MaxAttempts = maxAttempts
			report, err := d.PublishPending(cmd.Context(), companyId)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
		},
	}
	rootCmd.Flags().StringVar(&companyId, "company", "", "limit to one company (all companies when empty)")
	rootCmd.Flags().IntVar(&batchSize, "batch", 200, "maximum events to publish")
	rootCmd.Flags().IntVar(&maxAttempts, "max-attempts", 20, "attempts before an event is parked as DEAD")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
