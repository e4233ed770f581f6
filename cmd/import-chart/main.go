// import-chart loads a chart of accounts workbook into one company.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_NAME=... go run ./cmd/import-chart --company <id> --file chart.xlsx
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/spf13/cobra"
)

func main() {
	var (
		companyId string
		username  string
		file      string
		sheet     string
	)
	rootCmd := &cobra.Command{
		Use:   "import-chart",
		Short: "Import Level1..Level4 accounts from an Excel sheet",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			config.ConnectDatabaseWithRetry()
			if config.GetDB() == nil {
				return fmt.Errorf("database not initialized; set DB_* env vars")
			}

			ctx := utils.SetCompanyIdInContext(cmd.Context(), companyId)
			ctx = utils.SetUsernameInContext(ctx, username)
			result, err := models.ImportChartOfAccounts(ctx, f, sheet)
			if err != nil {
				return err
			}
			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			return out.Encode(result)
		},
	}
	rootCmd.Flags().StringVar(&companyId, "company", "", "company id the accounts belong to")
	rootCmd.Flags().StringVar(&username, "user", "import-chart", "recorded as created_by")
	rootCmd.Flags().StringVar(&file, "file", "", "path to the .xlsx workbook")
	rootCmd.Flags().StringVar(&sheet, "sheet", "", "worksheet name (first sheet when empty)")
	_ = rootCmd.MarkFlagRequired("company")
	_ = rootCmd.MarkFlagRequired("file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
