// Package reporter renders a run's matched records as CSV or plain text.
package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"policy-recovery-service/internal/models"
	"policy-recovery-service/internal/recovery"
	"policy-recovery-service/pkg/errors"
	"policy-recovery-service/pkg/logger"
)

// Format represents the supported report output formats
type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// MIME types for the report formats
const (
	MIMECSV  = "text/csv"
	MIMEText = "text/plain"
)

// Filename returns the conventional output filename for a run
func Filename(purpose recovery.Purpose, format Format) string {
	extension := "csv"
	if format == FormatText {
		extension = "txt"
	}
	return fmt.Sprintf("%s_results.%s", purpose, extension)
}

// DefaultDenylist names the extract columns excluded from the plain-text
// report. They carry distribution metadata with no recovery relevance.
func DefaultDenylist() []string {
	return []string{
		"Distribution Channel",
		"Product Code",
		"Product Name",
	}
}

// Config holds report generation options
type Config struct {
	Format Format `json:"format"`

	// Denylist names extract columns to omit from the text report's
	// additional-fields section. Matching is case-insensitive.
	Denylist []string `json:"denylist"`

	Delimiter rune `json:"delimiter"`
}

// DefaultConfig returns the standard report configuration
func DefaultConfig() *Config {
	return &Config{
		Format:    FormatCSV,
		Denylist:  DefaultDenylist(),
		Delimiter: ',',
	}
}

// Validate checks if the report configuration is valid
func (c *Config) Validate() error {
	switch c.Format {
	case FormatCSV, FormatText:
	default:
		return fmt.Errorf("unsupported format '%s', must be csv or text", c.Format)
	}

	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}

	return nil
}

// Generator renders run results into an io.Writer
type Generator struct {
	config *Config
	logger logger.Logger
}

// NewGenerator creates a Generator with the given configuration
func NewGenerator(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("use 'csv' or 'text' as the output format")
	}

	return &Generator{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reporter"),
	}, nil
}

// Generate writes the report for a run result to w
func (g *Generator) Generate(result *recovery.RunResult, w io.Writer) error {
	g.logger.WithFields(logger.Fields{
		"format":  string(g.config.Format),
		"records": len(result.Records),
	}).Info("Generating report")

	switch g.config.Format {
	case FormatCSV:
		return g.generateCSV(result, w)
	case FormatText:
		return g.generateText(result, w)
	default:
		return errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"format",
			string(g.config.Format),
			nil,
		)
	}
}

// generateCSV reproduces the original extract rows of the matched records.
// When the run carries the source header row, output cells come verbatim
// from the record's raw row so the report round-trips the extract. A
// result without headers falls back to the logical record fields.
func (g *Generator) generateCSV(result *recovery.RunResult, w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = g.config.Delimiter
	defer writer.Flush()

	if len(result.Headers) > 0 {
		if err := writer.Write(result.Headers); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}

		for _, record := range result.Records {
			row := make([]string, len(result.Headers))
			for i, header := range result.Headers {
				row[i] = record.Raw[header]
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row for policy %s: %w", record.PolicyNumber, err)
			}
		}

		writer.Flush()
		return writer.Error()
	}

	headers := fallbackHeaders(result.Records)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, record := range result.Records {
		if err := writer.Write(fallbackRow(record, headers)); err != nil {
			return fmt.Errorf("failed to write CSV row for policy %s: %w", record.PolicyNumber, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Labels for the logical record fields in the headerless fallback
const (
	labelPolicyNumber       = "Policy Number"
	labelPolicyStatus       = "Policy Status"
	labelMissedPayments     = "Missed Payments"
	labelCancellationReason = "Cancellation Reason"
	labelGrossPremium       = "Current Gross Premium"
	labelNextCollection     = "Next Premium Collection Date"
	labelStartingDate       = "Starting Date"
	labelPaidPremiums       = "Number Of Paid Premiums"
	labelCancellationDate   = "Potential Cancellation Date"
)

// fallbackHeaders derives the column set from the first result record:
// the fixed fields it has populated, in logical order, followed by its
// extra columns sorted by name.
func fallbackHeaders(records []*models.PolicyRecord) []string {
	headers := []string{labelPolicyNumber, labelPolicyStatus, labelMissedPayments}
	if len(records) == 0 {
		return headers
	}

	first := records[0]
	optional := []struct {
		label string
		value string
	}{
		{labelCancellationReason, first.CancellationReason},
		{labelGrossPremium, first.GrossPremium},
		{labelNextCollection, first.NextCollectionDate},
		{labelStartingDate, first.StartingDate},
		{labelPaidPremiums, first.PaidPremiums},
		{labelCancellationDate, first.PotentialCancellationDate},
	}
	for _, field := range optional {
		if field.value != "" {
			headers = append(headers, field.label)
		}
	}

	return append(headers, sortedExtraKeys(first.Extra)...)
}

// fallbackRow renders one record under the derived fallback headers.
// Columns a record lacks render as empty strings.
func fallbackRow(record *models.PolicyRecord, headers []string) []string {
	fixed := map[string]string{
		labelPolicyNumber:       record.PolicyNumber,
		labelPolicyStatus:       record.Status,
		labelMissedPayments:     strings.Join(record.MissedPayments, "; "),
		labelCancellationReason: record.CancellationReason,
		labelGrossPremium:       record.GrossPremium,
		labelNextCollection:     record.NextCollectionDate,
		labelStartingDate:       record.StartingDate,
		labelPaidPremiums:       record.PaidPremiums,
		labelCancellationDate:   record.PotentialCancellationDate,
	}

	row := make([]string, len(headers))
	for i, header := range headers {
		if value, ok := fixed[header]; ok {
			row[i] = value
		} else {
			row[i] = record.Extra[header]
		}
	}
	return row
}

const textDivider = "----------------------------------------"

// generateText writes one labelled block per matched record, followed by
// a summary footer.
func (g *Generator) generateText(result *recovery.RunResult, w io.Writer) error {
	denied := make(map[string]bool, len(g.config.Denylist))
	for _, name := range g.config.Denylist {
		denied[strings.ToLower(name)] = true
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", result.Outcome.Message())
	fmt.Fprintf(&b, "Matched policies: %d\n", result.MatchedCount)
	fmt.Fprintf(&b, "%s\n", textDivider)

	for i, record := range result.Records {
		fmt.Fprintf(&b, "%d.\n", i+1)
		fmt.Fprintf(&b, "Policy Number: %s\n", record.PolicyNumber)
		fmt.Fprintf(&b, "Policy Status: %s\n", record.Status)

		if len(record.MissedPayments) > 0 {
			fmt.Fprintf(&b, "Missed Payments: %s\n", strings.Join(record.MissedPayments, ", "))
		} else {
			fmt.Fprintf(&b, "Missed Payments: None\n")
		}

		if record.NextCollectionDate != "" {
			fmt.Fprintf(&b, "Next Premium Collection Date: %s\n", record.NextCollectionDate)
		}
		if record.GrossPremium != "" {
			fmt.Fprintf(&b, "Current Gross Premium: %s\n", record.GrossPremium)
		}
		if record.PotentialCancellationDate != "" {
			fmt.Fprintf(&b, "Potential Cancellation Date: %s\n", record.PotentialCancellationDate)
		}

		for _, header := range sortedExtraKeys(record.Extra) {
			if denied[strings.ToLower(header)] {
				continue
			}
			if value := strings.TrimSpace(record.Extra[header]); value != "" {
				fmt.Fprintf(&b, "%s: %s\n", header, value)
			}
		}

		fmt.Fprintf(&b, "%s\n", textDivider)
	}

	if result.Summary != nil && result.Summary.RecordsWithPremium > 0 {
		fmt.Fprintf(&b, "Total Gross Premium: %s (%d policies)\n",
			result.Summary.TotalGrossPremium.StringFixed(2),
			result.Summary.RecordsWithPremium)
		if result.Summary.UnparseablePremiums > 0 {
			fmt.Fprintf(&b, "Premiums excluded as unparseable: %d\n", result.Summary.UnparseablePremiums)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}

func sortedExtraKeys(extra map[string]string) []string {
	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	// Map iteration order is random; stable reports need a fixed order.
	sort.Strings(keys)
	return keys
}
