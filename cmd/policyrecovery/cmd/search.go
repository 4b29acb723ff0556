package cmd

import (
	"context"
	"fmt"
	"os"

	"policy-recovery-service/cmd/policyrecovery/config"
	"policy-recovery-service/internal/dates"
	"policy-recovery-service/internal/recovery"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find all dashboard policies whose next payment cleared",
	Long: `Search runs the payment-recovery inference over every policy in the
dashboard extract, without a batch file restriction.

Examples:
  policyrecovery search --dashboard-file extract.csv
  policyrecovery search --dashboard-file extract.csv --output-format text --as-of 10/03/2024`,

	PreRunE: validateRunFlags,
	RunE:    runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addRunFlags(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	asOf := referenceDate()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting search run...\n")
		fmt.Fprintf(os.Stderr, "Dashboard file: %s\n", dashboardFile)
		fmt.Fprintf(os.Stderr, "Reference date: %s\n", dates.FormatDMY(asOf))
	}

	service, err := recovery.NewService(config.CreateServiceConfig(policyColumn, graceDays))
	if err != nil {
		return fmt.Errorf("failed to create recovery service: %w", err)
	}

	dashboard, err := os.Open(dashboardFile)
	if err != nil {
		return fmt.Errorf("failed to open dashboard file: %w", err)
	}
	defer dashboard.Close()

	dashboardReader, finishProgress := wrapProgress(dashboard, dashboardFile)

	result, err := service.PolicySearch(ctx, dashboardReader, asOf)
	finishProgress()
	if err != nil {
		return err
	}

	return writeReport(result)
}
