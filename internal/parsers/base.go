// Package parsers turns raw dashboard and batch file text into normalized
// policy records.
//
// The package deliberately works on io.Reader rather than file paths: the
// core pipeline receives already-read text and never touches the
// filesystem itself. File opening belongs to the hosting layer.
//
// Parser types:
//   - DashboardParser: the bulk policy-status extract (header row required)
//   - BatchParser: the cleared-batch file (CSV or newline-delimited text)
//
// Error handling follows a two-level taxonomy. Structural problems
// (missing mandatory columns, zero data rows, malformed CSV) abort the
// parse with a file-level error before any row is processed. Row-level
// problems (empty policy number, unparseable dates) skip the row or leave
// the field unset, are logged at warn level, and are collected in
// ParseStats without stopping the run.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"policy-recovery-service/pkg/errors"
	"policy-recovery-service/pkg/logger"
)

// ParseError represents an error that occurred while reading one row
type ParseError struct {
	Line    int
	Column  int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at line %d, column %d (%s='%s'): %s: %v",
			e.Line, e.Column, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at line %d, column %d (%s='%s'): %s",
		e.Line, e.Column, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseConfig holds configuration for CSV parsing
type ParseConfig struct {
	HasHeader     bool
	Delimiter     rune
	SkipEmptyRows bool
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:     true,
		Delimiter:     ',',
		SkipEmptyRows: true,
	}
}

// BaseParser provides the CSV plumbing shared by the concrete parsers
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	return &BaseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("base_parser"),
	}
}

// ParseContext holds state during a single parse pass
type ParseContext struct {
	LineNumber  int
	Headers     []string
	HeaderMap   map[string]int
	RecordCount int
	ErrorCount  int
	Errors      []*ParseError
}

// NewParseContext creates a new parsing context
func NewParseContext() *ParseContext {
	return &ParseContext{
		Headers:   make([]string, 0),
		HeaderMap: make(map[string]int),
		Errors:    make([]*ParseError, 0),
	}
}

// AddError adds a row-level parsing error to the context
func (pc *ParseContext) AddError(column int, field, value, message string, err error) {
	pc.Errors = append(pc.Errors, &ParseError{
		Line:    pc.LineNumber,
		Column:  column,
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	})
	pc.ErrorCount++
}

// GetColumnIndex returns the index of a column by name, or -1 if not found
func (pc *ParseContext) GetColumnIndex(name string) int {
	if index, exists := pc.HeaderMap[name]; exists {
		return index
	}

	// Case-insensitive fallback; exports vary in header casing
	lowerName := strings.ToLower(name)
	for header, index := range pc.HeaderMap {
		if strings.ToLower(header) == lowerName {
			return index
		}
	}

	return -1
}

// HasColumn reports whether the header row contains the named column.
// Column-wide absence is different from an empty cell: optional fields are
// only considered at all when their column exists in the file.
func (pc *ParseContext) HasColumn(name string) bool {
	return pc.GetColumnIndex(name) != -1
}

// NewReader wraps raw text in a csv.Reader configured for this parser
func (bp *BaseParser) NewReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // ragged trailing rows are common in real exports
	return reader
}

// ReadHeaders reads the header row and validates that every required
// column is present, reporting all missing columns in one error.
func (bp *BaseParser) ReadHeaders(reader *csv.Reader, parseCtx *ParseContext, source string, requiredHeaders []string) error {
	if !bp.config.HasHeader {
		parseCtx.Headers = append(parseCtx.Headers, requiredHeaders...)
		bp.buildHeaderMap(parseCtx)
		return nil
	}

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			bp.logger.WithField("source", source).Error("File is empty")
			return errors.ParseError(errors.CodeEmptyFile, source, 0, "", "", nil)
		}

		bp.logger.WithError(err).WithField("source", source).Error("Failed to read header row")
		return errors.ParseError(errors.CodeInvalidFormat, source, 1, "headers", "", err).
			WithSuggestion("check the file format and ensure it's a valid CSV")
	}

	parseCtx.LineNumber++
	parseCtx.Headers = cleanHeaders(headers)
	bp.buildHeaderMap(parseCtx)

	if len(requiredHeaders) > 0 {
		var missing []string
		for _, header := range requiredHeaders {
			if !parseCtx.HasColumn(header) {
				missing = append(missing, header)
			}
		}
		if len(missing) > 0 {
			bp.logger.WithFields(logger.Fields{
				"source":            source,
				"missing_headers":   missing,
				"available_headers": parseCtx.Headers,
			}).Error("Required headers are missing")

			return errors.MissingColumnsError(source, missing)
		}
	}

	return nil
}

func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		cleaned[i] = strings.TrimSpace(header)
	}
	return cleaned
}

func (bp *BaseParser) buildHeaderMap(parseCtx *ParseContext) {
	parseCtx.HeaderMap = make(map[string]int)
	for i, header := range parseCtx.Headers {
		parseCtx.HeaderMap[header] = i
	}
}

// ReadRecord reads the next data row, skipping empty rows if configured.
// Returns io.EOF at the normal end of input.
func (bp *BaseParser) ReadRecord(reader *csv.Reader, parseCtx *ParseContext) ([]string, error) {
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, err
			}

			parseCtx.LineNumber++
			bp.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Warn("Failed to read CSV record")
			return nil, err
		}

		parseCtx.LineNumber++

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}

		return record, nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// GetFieldValue retrieves a trimmed cell value by column name. The second
// return value is false when the column is absent from the header row or
// the row is too short to contain it.
func (bp *BaseParser) GetFieldValue(record []string, parseCtx *ParseContext, fieldName string) (string, bool) {
	index := parseCtx.GetColumnIndex(fieldName)
	if index == -1 || index >= len(record) {
		return "", false
	}
	return strings.TrimSpace(record[index]), true
}

// RawFieldValue retrieves the verbatim cell value by column name, without
// trimming, for round-trip report output.
func (bp *BaseParser) RawFieldValue(record []string, parseCtx *ParseContext, fieldName string) (string, bool) {
	index := parseCtx.GetColumnIndex(fieldName)
	if index == -1 || index >= len(record) {
		return "", false
	}
	return record[index], true
}

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	TotalLines     int
	RecordsParsed  int
	RecordsValid   int
	RecordsSkipped int
	ErrorCount     int
	Errors         []*ParseError
}

// NewParseStats creates a new ParseStats instance
func NewParseStats() *ParseStats {
	return &ParseStats{
		Errors: make([]*ParseError, 0),
	}
}

// AddError adds an error to the parsing statistics
func (ps *ParseStats) AddError(err *ParseError) {
	ps.Errors = append(ps.Errors, err)
	ps.ErrorCount++
}

// HasErrors returns true if there were any parsing errors
func (ps *ParseStats) HasErrors() bool {
	return ps.ErrorCount > 0
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d records (%d valid, %d skipped), %d errors",
		ps.TotalLines, ps.RecordsParsed, ps.RecordsValid, ps.RecordsSkipped, ps.ErrorCount)
}

// GetSampleErrors returns a sample of the parsing errors for logging
func (ps *ParseStats) GetSampleErrors(maxSamples int) []string {
	if len(ps.Errors) == 0 {
		return nil
	}

	limit := len(ps.Errors)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}

	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, ps.Errors[i].Error())
	}

	return samples
}
