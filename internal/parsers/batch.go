package parsers

import (
	"encoding/csv"
	"io"
	"strings"

	"policy-recovery-service/internal/models"
	"policy-recovery-service/pkg/errors"
	"policy-recovery-service/pkg/logger"
)

// BatchParser reads the cleared-batch file into a set of policy numbers.
// The file arrives in one of two shapes: a CSV with a policy-number
// column, or newline-delimited plain text of bare policy numbers.
type BatchParser struct {
	config *BatchConfig
	logger logger.Logger
}

// NewBatchParser creates a new BatchParser with the given configuration
func NewBatchParser(config *BatchConfig) (*BatchParser, error) {
	if config == nil {
		config = DefaultBatchConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"batch_config",
			config,
			err,
		).WithSuggestion("check the batch file configuration")
	}

	return &BatchParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("batch_parser"),
	}, nil
}

// Parse reads the cleared-batch file from r. An empty resulting set is a
// defined outcome, not an error; the caller decides how to surface it.
func (bp *BatchParser) Parse(r io.Reader, source string) (*models.ClearedBatchSet, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, source, err)
	}

	text := string(content)
	lines := splitLines(text)

	var numbers []string
	if bp.looksLikeCSV(lines) {
		numbers, err = bp.parseCSV(text, source)
		if err != nil {
			return nil, err
		}
	} else {
		numbers = lines
	}

	set := models.NewClearedBatchSet(numbers)

	bp.logger.WithFields(logger.Fields{
		"source":         source,
		"policy_numbers": set.Len(),
	}).Info("Cleared-batch file parsed")

	return set, nil
}

// looksLikeCSV decides between the two input shapes. Multi-field rows are
// CSV; a single-column file whose first line matches the configured
// policy-number column is a single-column CSV with a header; anything
// else is plain text of bare policy numbers.
func (bp *BatchParser) looksLikeCSV(lines []string) bool {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.ContainsRune(trimmed, bp.config.Delimiter) {
			return true
		}

		return strings.EqualFold(trimmed, bp.config.PolicyNumberColumn)
	}

	return false
}

// parseCSV reads policy numbers from the configured column, falling back
// to the first column when the named column is absent from the header.
func (bp *BatchParser) parseCSV(text, source string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat, source, 1, "headers", "", err).
			WithSuggestion("check the batch file is a valid CSV")
	}

	columnIndex := 0
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), bp.config.PolicyNumberColumn) {
			columnIndex = i
			break
		}
	}

	if !strings.EqualFold(strings.TrimSpace(header[columnIndex]), bp.config.PolicyNumberColumn) {
		bp.logger.WithFields(logger.Fields{
			"source":          source,
			"expected_column": bp.config.PolicyNumberColumn,
		}).Warn("Policy number column not found in batch file, using first column")
	}

	var numbers []string
	line := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}

			line++
			bp.logger.WithError(err).WithFields(logger.Fields{
				"source":      source,
				"line_number": line,
			}).Warn("Skipping malformed batch row")
			continue
		}

		line++
		if columnIndex < len(record) {
			numbers = append(numbers, record[columnIndex])
		}
	}

	return numbers, nil
}

// splitLines splits on any newline style and drops carriage returns
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
