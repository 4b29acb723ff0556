package models

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultStatus is assigned when a dashboard row has no status value.
const DefaultStatus = "UNKNOWN"

// PolicyRecord is one row of the dashboard extract after normalization.
// Records are constructed once during extraction and treated as immutable
// afterwards; nothing in this module persists them.
type PolicyRecord struct {
	// PolicyNumber is the unique key within a single extract. Never empty
	// for a constructed record: rows with an empty policy number are
	// dropped during extraction.
	PolicyNumber string `json:"policy_number"`

	// Status is the raw status text, trimmed, defaulting to "UNKNOWN".
	Status string `json:"status"`

	// MissedPayments holds up to three arrear due-date strings in source
	// order (1st, 2nd, 3rd); empty cells are filtered out, so the last
	// element is always the most recent missed payment.
	MissedPayments []string `json:"missed_payments"`

	// Optional fields, populated only when the source column exists in the
	// file's header row and the cell is non-empty.
	CancellationReason string `json:"cancellation_reason,omitempty"`
	GrossPremium       string `json:"gross_premium,omitempty"`
	NextCollectionDate string `json:"next_collection_date,omitempty"`
	StartingDate       string `json:"starting_date,omitempty"`
	PaidPremiums       string `json:"paid_premiums,omitempty"`

	// PotentialCancellationDate is derived at extraction time: populated
	// only when the status is on-risk and exactly three missed payments
	// exist; equals the 3rd arrear date plus 30 days, as DD/MM/YYYY.
	PotentialCancellationDate string `json:"potential_cancellation_date,omitempty"`

	// Extra carries any source column outside the fixed set, keyed by its
	// exact original header, for pass-through reporting.
	Extra map[string]string `json:"extra,omitempty"`

	// Raw preserves the verbatim cell of every column in the source row,
	// keyed by header, so reports can round-trip the original extract.
	Raw map[string]string `json:"-"`
}

// MissedPaymentCount returns the number of recorded arrear dates.
func (r *PolicyRecord) MissedPaymentCount() int {
	return len(r.MissedPayments)
}

// LastMissedPayment returns the most recent arrear due-date string.
func (r *PolicyRecord) LastMissedPayment() (string, bool) {
	if len(r.MissedPayments) == 0 {
		return "", false
	}
	return r.MissedPayments[len(r.MissedPayments)-1], true
}

// Validate performs basic invariant checks on the record.
func (r *PolicyRecord) Validate() error {
	if strings.TrimSpace(r.PolicyNumber) == "" {
		return fmt.Errorf("policy number cannot be empty")
	}

	if len(r.MissedPayments) > 3 {
		return fmt.Errorf("policy %s has %d missed payments, maximum is 3", r.PolicyNumber, len(r.MissedPayments))
	}

	if strings.TrimSpace(r.Status) == "" {
		return fmt.Errorf("policy %s has an empty status", r.PolicyNumber)
	}

	return nil
}

// String returns a short representation for logs.
func (r *PolicyRecord) String() string {
	return fmt.Sprintf("PolicyRecord{Number: %s, Status: %s, Missed: %d}",
		r.PolicyNumber, r.Status, len(r.MissedPayments))
}

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// NumericSuffix extracts the trailing run of digits from the policy
// number as an integer. Policy numbers share an alphabetic prefix and the
// numeric tail is the business ordering key; numbers without a trailing
// digit run sort as 0.
func (r *PolicyRecord) NumericSuffix() int64 {
	match := trailingDigits.FindString(r.PolicyNumber)
	if match == "" {
		return 0
	}

	n, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		// A digit run too long for int64 is effectively unbounded; park it
		// at the top of the ordering.
		return int64(^uint64(0) >> 1)
	}
	return n
}

// SortByPolicyNumber orders records in place, ascending by the numeric
// suffix of the policy number. The sort is stable so records with equal
// suffixes keep their extract order.
func SortByPolicyNumber(records []*PolicyRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].NumericSuffix() < records[j].NumericSuffix()
	})
}

// Status classification predicates. Comparison is on an uppercased copy;
// the stored status text is never mutated.

var lapsedStatuses = map[string]bool{
	"LAPSED":             true,
	"TEMPORARILY_LAPSED": true,
	"PERMANENTLY_LAPSED": true,
}

// IsLapsedStatus reports whether the status is in the lapsed family.
func IsLapsedStatus(status string) bool {
	return lapsedStatuses[normalizeStatus(status)]
}

// IsCancelledStatus reports whether the status is CANCELLED.
func IsCancelledStatus(status string) bool {
	return normalizeStatus(status) == "CANCELLED"
}

// IsOnRiskStatus reports whether the status is on-risk. Source data is
// inconsistent between underscore and space variants, so both are accepted.
func IsOnRiskStatus(status string) bool {
	normalized := normalizeStatus(status)
	return normalized == "ON_RISK" || normalized == "ON RISK"
}

func normalizeStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// ClearedBatchSet is a membership set of policy numbers that cleared a
// payment batch. Built once per reconciliation run from the batch file and
// immutable afterwards.
type ClearedBatchSet struct {
	members map[string]struct{}
}

// NewClearedBatchSet builds a set from raw policy-number strings, trimming
// whitespace and dropping empties.
func NewClearedBatchSet(policyNumbers []string) *ClearedBatchSet {
	members := make(map[string]struct{}, len(policyNumbers))
	for _, number := range policyNumbers {
		trimmed := strings.TrimSpace(number)
		if trimmed == "" {
			continue
		}
		members[trimmed] = struct{}{}
	}
	return &ClearedBatchSet{members: members}
}

// Contains reports whether the policy number is in the batch.
func (s *ClearedBatchSet) Contains(policyNumber string) bool {
	_, ok := s.members[policyNumber]
	return ok
}

// Len returns the number of distinct policy numbers in the batch.
func (s *ClearedBatchSet) Len() int {
	return len(s.members)
}

// IsEmpty reports whether the batch contains no policy numbers, which is
// a defined empty-input outcome for a run rather than an error.
func (s *ClearedBatchSet) IsEmpty() bool {
	return len(s.members) == 0
}

// premiumCleaner strips the currency decoration seen in extract premium
// cells before decimal parsing.
var premiumCleaner = strings.NewReplacer("£", "", "$", "", "€", "", ",", "")

// ParsePremiumAmount parses a currency-formatted premium cell into a
// decimal. The record keeps the raw text; this helper exists for summary
// arithmetic only.
func ParsePremiumAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(premiumCleaner.Replace(s))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("premium string cannot be empty")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid premium format '%s': %w", s, err)
	}

	return d, nil
}
