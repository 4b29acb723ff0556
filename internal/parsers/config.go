package parsers

import (
	"fmt"
	"strings"
)

// DashboardColumns maps each logical record field to its expected header
// string in the dashboard extract. Keeping the schema as one named
// configuration means header drift in the upstream export is a one-place
// edit instead of a literal hunt.
type DashboardColumns struct {
	// Mandatory columns; their absence from the header row is a
	// file-level error.
	PolicyNumber string `json:"policy_number"`
	PolicyStatus string `json:"policy_status"`
	FirstArrear  string `json:"first_arrear"`
	SecondArrear string `json:"second_arrear"`
	ThirdArrear  string `json:"third_arrear"`

	// Optional columns; absence means the field stays unset.
	CancellationReason string `json:"cancellation_reason"`
	GrossPremium       string `json:"gross_premium"`
	NextCollection     string `json:"next_collection"`
	StartingDate       string `json:"starting_date"`
	PaidPremiums       string `json:"paid_premiums"`
}

// DefaultDashboardColumns returns the header names used by the standard
// dashboard export.
func DefaultDashboardColumns() *DashboardColumns {
	return &DashboardColumns{
		PolicyNumber:       "Policy Number",
		PolicyStatus:       "Policy Status",
		FirstArrear:        "Due Date of 1st Arrear",
		SecondArrear:       "Due Date of 2nd Arrear",
		ThirdArrear:        "Due Date of 3rd Arrear",
		CancellationReason: "Cancellation Reason",
		GrossPremium:       "Current Gross Premium Per Frequency",
		NextCollection:     "Max. Next Premium Collection Date",
		StartingDate:       "Starting Date",
		PaidPremiums:       "Number Of Paid Premiums",
	}
}

// Validate checks that every mandatory column has a header name
func (dc *DashboardColumns) Validate() error {
	mandatory := map[string]string{
		"policy number column": dc.PolicyNumber,
		"policy status column": dc.PolicyStatus,
		"first arrear column":  dc.FirstArrear,
		"second arrear column": dc.SecondArrear,
		"third arrear column":  dc.ThirdArrear,
	}

	for name, value := range mandatory {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}

	return nil
}

// Mandatory returns the header names that must exist in the file
func (dc *DashboardColumns) Mandatory() []string {
	return []string{
		dc.PolicyNumber,
		dc.PolicyStatus,
		dc.FirstArrear,
		dc.SecondArrear,
		dc.ThirdArrear,
	}
}

// ArrearColumns returns the three arrear headers in chronological order
func (dc *DashboardColumns) ArrearColumns() []string {
	return []string{dc.FirstArrear, dc.SecondArrear, dc.ThirdArrear}
}

// Consumed returns the set of headers claimed by fixed fields; any other
// header in the file passes through as an extra field.
func (dc *DashboardColumns) Consumed() map[string]bool {
	consumed := make(map[string]bool)
	for _, header := range []string{
		dc.PolicyNumber,
		dc.PolicyStatus,
		dc.FirstArrear,
		dc.SecondArrear,
		dc.ThirdArrear,
		dc.CancellationReason,
		dc.GrossPremium,
		dc.NextCollection,
		dc.StartingDate,
		dc.PaidPremiums,
	} {
		if header != "" {
			consumed[header] = true
		}
	}
	return consumed
}

// DashboardConfig holds configuration for parsing the dashboard extract
type DashboardConfig struct {
	Columns   *DashboardColumns `json:"columns"`
	HasHeader bool              `json:"has_header"`
	Delimiter rune              `json:"delimiter"`
}

// DefaultDashboardConfig returns the standard dashboard configuration
func DefaultDashboardConfig() *DashboardConfig {
	return &DashboardConfig{
		Columns:   DefaultDashboardColumns(),
		HasHeader: true,
		Delimiter: ',',
	}
}

// Validate checks if the dashboard configuration is valid
func (dc *DashboardConfig) Validate() error {
	if dc.Columns == nil {
		return fmt.Errorf("column mapping is required")
	}

	if err := dc.Columns.Validate(); err != nil {
		return fmt.Errorf("invalid column mapping: %w", err)
	}

	if dc.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}

	return nil
}

// BatchConfig holds configuration for parsing the cleared-batch file
type BatchConfig struct {
	// PolicyNumberColumn names the policy-number column when the batch
	// file is CSV. When the column is absent the first column is used.
	PolicyNumberColumn string `json:"policy_number_column"`
	Delimiter          rune   `json:"delimiter"`
}

// DefaultBatchConfig returns the standard batch-file configuration
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		PolicyNumberColumn: "Policy Number",
		Delimiter:          ',',
	}
}

// Validate checks if the batch configuration is valid
func (bc *BatchConfig) Validate() error {
	if strings.TrimSpace(bc.PolicyNumberColumn) == "" {
		return fmt.Errorf("policy number column cannot be empty")
	}

	if bc.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be empty")
	}

	return nil
}
