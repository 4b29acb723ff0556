package parsers

import (
	"io"

	"policy-recovery-service/internal/dates"
	"policy-recovery-service/internal/models"
	"policy-recovery-service/pkg/errors"
	"policy-recovery-service/pkg/logger"
)

// cancellationWindowDays is the fixed grace window between the 3rd missed
// payment and potential cancellation. Plain day arithmetic, deliberately
// distinct from the calendar-month arithmetic of the recovery inference.
const cancellationWindowDays = 30

// DashboardParser extracts normalized policy records from the bulk
// policy-status export.
type DashboardParser struct {
	*BaseParser
	config *DashboardConfig
	logger logger.Logger
}

// NewDashboardParser creates a new DashboardParser with the given configuration
func NewDashboardParser(config *DashboardConfig) (*DashboardParser, error) {
	if config == nil {
		config = DefaultDashboardConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"dashboard_config",
			config,
			err,
		).WithSuggestion("check the dashboard column mapping")
	}

	parseConfig := &ParseConfig{
		HasHeader:     config.HasHeader,
		Delimiter:     config.Delimiter,
		SkipEmptyRows: true,
	}

	return &DashboardParser{
		BaseParser: NewBaseParser(parseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("dashboard_parser"),
	}, nil
}

// DashboardExtract is the parsed form of one dashboard file
type DashboardExtract struct {
	Records []*models.PolicyRecord
	Headers []string
	Stats   *ParseStats
}

// Parse reads the dashboard extract from r. Structural problems (missing
// mandatory columns, zero data rows) return a file-level error; row-level
// problems are collected in the returned stats and logged at warn level.
func (dp *DashboardParser) Parse(r io.Reader, source string) (*DashboardExtract, error) {
	dp.logger.WithFields(logger.Fields{
		"source":    source,
		"operation": "parse_dashboard",
	}).Info("Starting dashboard parsing")

	reader := dp.NewReader(r)
	parseCtx := NewParseContext()
	stats := NewParseStats()

	if err := dp.ReadHeaders(reader, parseCtx, source, dp.config.Columns.Mandatory()); err != nil {
		return nil, err
	}

	var records []*models.PolicyRecord

	for {
		record, err := dp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: "failed to read record",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		policyRecord, skipped := dp.extractRecord(record, parseCtx)
		if skipped {
			stats.RecordsSkipped++
			continue
		}

		records = append(records, policyRecord)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber
	for _, parseErr := range parseCtx.Errors {
		stats.AddError(parseErr)
	}

	if stats.RecordsParsed == 0 {
		dp.logger.WithField("source", source).Error("Dashboard contains no data rows")
		return nil, errors.ParseError(errors.CodeEmptyFile, source, parseCtx.LineNumber, "", "", nil)
	}

	dp.logger.WithFields(logger.Fields{
		"source":          source,
		"total_lines":     stats.TotalLines,
		"records_parsed":  stats.RecordsParsed,
		"records_valid":   stats.RecordsValid,
		"records_skipped": stats.RecordsSkipped,
		"error_count":     stats.ErrorCount,
	}).Info("Dashboard parsing completed")

	if stats.HasErrors() {
		dp.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Encountered errors during parsing")
	}

	return &DashboardExtract{
		Records: records,
		Headers: parseCtx.Headers,
		Stats:   stats,
	}, nil
}

// extractRecord maps one raw CSV row to a PolicyRecord. The second return
// value is true when the row should be skipped because the policy number
// is empty; blank trailing rows are expected in real exports, so this is
// not an error.
func (dp *DashboardParser) extractRecord(record []string, parseCtx *ParseContext) (*models.PolicyRecord, bool) {
	cols := dp.config.Columns

	policyNumber, _ := dp.GetFieldValue(record, parseCtx, cols.PolicyNumber)
	if policyNumber == "" {
		dp.logger.WithField("line_number", parseCtx.LineNumber).Debug("Skipping row with empty policy number")
		return nil, true
	}

	status, _ := dp.GetFieldValue(record, parseCtx, cols.PolicyStatus)
	if status == "" {
		status = models.DefaultStatus
	}

	// Arrear dates keep their source order (1st, 2nd, 3rd); only empty
	// cells are filtered, never re-sorted.
	var missedPayments []string
	for _, arrearColumn := range cols.ArrearColumns() {
		value, _ := dp.GetFieldValue(record, parseCtx, arrearColumn)
		if value != "" {
			missedPayments = append(missedPayments, value)
		}
	}

	result := &models.PolicyRecord{
		PolicyNumber:   policyNumber,
		Status:         status,
		MissedPayments: missedPayments,
		Extra:          make(map[string]string),
		Raw:            make(map[string]string),
	}

	dp.populateOptionalFields(result, record, parseCtx)
	dp.deriveCancellationDate(result, parseCtx)

	consumed := cols.Consumed()
	for _, header := range parseCtx.Headers {
		raw, ok := dp.RawFieldValue(record, parseCtx, header)
		if !ok {
			continue
		}
		result.Raw[header] = raw
		if !consumed[header] {
			result.Extra[header] = raw
		}
	}

	return result, false
}

// populateOptionalFields fills the optional record fields. Each is gated
// on the column existing in the header row at all; a wholly absent column
// and an empty cell both leave the field unset, but the header check
// avoids spurious per-row processing when the export lacks the column.
func (dp *DashboardParser) populateOptionalFields(result *models.PolicyRecord, record []string, parseCtx *ParseContext) {
	cols := dp.config.Columns

	if parseCtx.HasColumn(cols.CancellationReason) {
		if value, _ := dp.GetFieldValue(record, parseCtx, cols.CancellationReason); value != "" {
			result.CancellationReason = value
		}
	}

	if parseCtx.HasColumn(cols.GrossPremium) {
		if value, _ := dp.GetFieldValue(record, parseCtx, cols.GrossPremium); value != "" {
			result.GrossPremium = value
		}
	}

	if parseCtx.HasColumn(cols.PaidPremiums) {
		if value, _ := dp.GetFieldValue(record, parseCtx, cols.PaidPremiums); value != "" {
			result.PaidPremiums = value
		}
	}

	// Date-bearing optional columns keep only the date portion
	if parseCtx.HasColumn(cols.NextCollection) {
		if value, _ := dp.GetFieldValue(record, parseCtx, cols.NextCollection); value != "" {
			result.NextCollectionDate = dates.StripTime(value)
		}
	}

	if parseCtx.HasColumn(cols.StartingDate) {
		if value, _ := dp.GetFieldValue(record, parseCtx, cols.StartingDate); value != "" {
			result.StartingDate = dates.StripTime(value)
		}
	}
}

// deriveCancellationDate computes the potential cancellation date: 3rd
// missed payment plus 30 days, only for on-risk policies with exactly
// three arrears. An unparseable 3rd date leaves the field unset without
// failing the row.
func (dp *DashboardParser) deriveCancellationDate(result *models.PolicyRecord, parseCtx *ParseContext) {
	if !models.IsOnRiskStatus(result.Status) || len(result.MissedPayments) != 3 {
		return
	}

	thirdArrear := result.MissedPayments[2]
	parsed, ok := dates.ParseDMY(thirdArrear)
	if !ok {
		dp.logger.WithFields(logger.Fields{
			"line_number":   parseCtx.LineNumber,
			"policy_number": result.PolicyNumber,
			"third_arrear":  thirdArrear,
		}).Warn("Unparseable third arrear date, skipping cancellation date")

		parseCtx.AddError(0, dp.config.Columns.ThirdArrear, thirdArrear, "unparseable arrear date", nil)
		return
	}

	result.PotentialCancellationDate = dates.FormatDMY(dates.AddDays(parsed, cancellationWindowDays))
}
