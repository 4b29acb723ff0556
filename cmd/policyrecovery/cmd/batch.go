package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"policy-recovery-service/cmd/policyrecovery/config"
	"policy-recovery-service/internal/dates"
	"policy-recovery-service/internal/recovery"
	"policy-recovery-service/internal/reporter"
	"policy-recovery-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags shared by the batch and search commands
var (
	dashboardFile string
	batchFile     string
	outputFormat  string
	outputFile    string
	asOfDate      string
	policyColumn  string
	denylist      []string
	graceDays     int
	showProgress  bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Find batch policies whose next payment cleared",
	Long: `Batch intersects a cleared-payment batch file with the policy dashboard
extract, then keeps only the policies whose next premium collection is
inferred to have already cleared.

The batch file is either a CSV with a policy-number column or a plain
text file with one policy number per line.

Examples:
  # Basic run, CSV report to the conventional filename
  policyrecovery batch --dashboard-file extract.csv --batch-file cleared.txt

  # Plain-text report against a fixed reference date
  policyrecovery batch --dashboard-file extract.csv --batch-file cleared.csv \
    --output-format text --as-of 10/03/2024

  # Write to an explicit output file
  policyrecovery batch --dashboard-file extract.csv --batch-file cleared.txt \
    --output-file cleared_policies.csv`,

	PreRunE: validateRunFlags,
	RunE:    runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addRunFlags(batchCmd)

	batchCmd.Flags().StringVarP(&batchFile, "batch-file", "b", "", "path to cleared-batch file (required)")
	batchCmd.MarkFlagRequired("batch-file")
	viper.BindPFlag("batch-file", batchCmd.Flags().Lookup("batch-file"))
}

// addRunFlags registers the flags common to both subcommands
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&dashboardFile, "dashboard-file", "d", "", "path to dashboard extract CSV file (required)")
	cmd.Flags().StringVarP(&outputFormat, "output-format", "f", "csv", "output format: csv, text")
	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: conventional filename in the working directory)")
	cmd.Flags().StringVar(&asOfDate, "as-of", "", "reference date DD/MM/YYYY (default: today)")
	cmd.Flags().StringVar(&policyColumn, "policy-column", "", "override the policy-number column name")
	cmd.Flags().StringSliceVar(&denylist, "denylist", reporter.DefaultDenylist(), "columns excluded from the text report")
	cmd.Flags().IntVar(&graceDays, "grace-days", recovery.DefaultGraceDays, "clearing grace window in days")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show row-count progress while parsing")

	cmd.MarkFlagRequired("dashboard-file")

	viper.BindPFlag("dashboard-file", cmd.Flags().Lookup("dashboard-file"))
	viper.BindPFlag("output-format", cmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", cmd.Flags().Lookup("output-file"))
	viper.BindPFlag("as-of", cmd.Flags().Lookup("as-of"))
	viper.BindPFlag("policy-column", cmd.Flags().Lookup("policy-column"))
	viper.BindPFlag("grace-days", cmd.Flags().Lookup("grace-days"))
	viper.BindPFlag("progress", cmd.Flags().Lookup("progress"))
}

// validateRunFlags checks the flags shared by both subcommands
func validateRunFlags(cmd *cobra.Command, args []string) error {
	dashboardFile = viper.GetString("dashboard-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	asOfDate = viper.GetString("as-of")
	policyColumn = viper.GetString("policy-column")
	graceDays = viper.GetInt("grace-days")
	showProgress = viper.GetBool("progress")

	if dashboardFile == "" {
		return fmt.Errorf("dashboard-file is required")
	}
	if err := validateFileExists(dashboardFile, "dashboard extract file"); err != nil {
		return err
	}

	// The batch-file flag only exists on the batch command; checking the
	// flag set avoids referencing the command variables from here.
	if cmd.Flags().Lookup("batch-file") != nil {
		batchFile = viper.GetString("batch-file")
		if batchFile == "" {
			return fmt.Errorf("batch-file is required")
		}
		if err := validateFileExists(batchFile, "cleared-batch file"); err != nil {
			return err
		}
	}

	validFormats := map[string]bool{"csv": true, "text": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: csv, text", outputFormat)
	}

	if asOfDate != "" {
		if _, ok := dates.ParseDMY(asOfDate); !ok {
			return fmt.Errorf("invalid as-of date '%s'. Use DD/MM/YYYY", asOfDate)
		}
	}

	if graceDays < 0 {
		return fmt.Errorf("grace days cannot be negative")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

// referenceDate resolves the --as-of flag, defaulting to today. The
// library core always receives an explicit date; the default lives here
// at the CLI boundary only.
func referenceDate() time.Time {
	if asOfDate != "" {
		return dates.MustParseDMY(asOfDate)
	}
	return dates.Truncate(time.Now().UTC())
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	asOf := referenceDate()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting batch run...\n")
		fmt.Fprintf(os.Stderr, "Dashboard file: %s\n", dashboardFile)
		fmt.Fprintf(os.Stderr, "Batch file: %s\n", batchFile)
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

	batch, err := os.Open(batchFile)
	if err != nil {
		return fmt.Errorf("failed to open batch file: %w", err)
	}
	defer batch.Close()

	dashboardReader, finishProgress := wrapProgress(dashboard, dashboardFile)

	result, err := service.NextClearedBatch(ctx, dashboardReader, batch, asOf)
	finishProgress()
	if err != nil {
		return err
	}

	return writeReport(result)
}

// wrapProgress optionally wraps r so each line read from the extract
// ticks a progress tracker. The returned func logs the completion line.
func wrapProgress(r io.Reader, source string) (io.Reader, func()) {
	if !showProgress {
		return r, func() {}
	}

	progress := logger.NewRowProgress(source, 0)
	return &lineCountingReader{reader: r, progress: progress}, progress.Complete
}

// lineCountingReader counts newlines as they stream past
type lineCountingReader struct {
	reader   io.Reader
	progress *logger.RowProgress
}

func (l *lineCountingReader) Read(p []byte) (int, error) {
	n, err := l.reader.Read(p)
	for _, b := range p[:n] {
		if b == '\n' {
			l.progress.Increment()
		}
	}
	return n, err
}

// writeReport renders a run result to the selected destination
func writeReport(result *recovery.RunResult) error {
	reportConfig := config.CreateReportConfig(outputFormat, denylist)
	generator, err := reporter.NewGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	destination := outputFile
	if destination == "" {
		destination = reporter.Filename(result.Purpose, reportConfig.Format)
	}

	output, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer output.Close()

	if err := generator.Generate(result, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", result.Outcome.Message())
	fmt.Fprintf(os.Stderr, "Matched %d policies. Report written to %s\n", result.MatchedCount, destination)

	if viper.GetBool("verbose") {
		if result.DashboardStats != nil {
			fmt.Fprintf(os.Stderr, "Dashboard: %s\n", result.DashboardStats.String())
		}
		fmt.Fprintf(os.Stderr, "Processing time: %v\n", result.Duration)
	}

	return nil
}
