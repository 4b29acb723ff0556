package recovery

import (
	"context"
	"strings"
	"testing"

	"policy-recovery-service/internal/dates"
)

const testDashboard = `Policy Number,Policy Status,Due Date of 1st Arrear,Due Date of 2nd Arrear,Due Date of 3rd Arrear,Current Gross Premium Per Frequency,Max. Next Premium Collection Date
POL-12,ON_RISK,01/01/2024,,,£10.00,05/03/2024
POL-7,ON_RISK,01/01/2024,,,£15.50,05/03/2024
POL-2,LAPSED,01/01/2024,,,£20.00,05/03/2024
POL-30,ON_RISK,01/11/2023,01/12/2023,01/01/2024,£25.00,05/03/2024
POL-9,ON_RISK,01/01/2024,,,£12.25,01/02/2024
`

func newTestService(t *testing.T) *Service {
	t.Helper()

	service, err := NewService(nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestNextClearedBatch(t *testing.T) {
	service := newTestService(t)
	asOf := dates.MustParseDMY("10/03/2024")

	// POL-12 and POL-7 clear; POL-2 is lapsed, POL-30 has three arrears,
	// POL-9's next collection never advanced. POL-99 is not on the dashboard.
	batch := "POL-12\nPOL-7\nPOL-2\nPOL-30\nPOL-9\nPOL-99\n"

	result, err := service.NextClearedBatch(context.Background(), strings.NewReader(testDashboard), strings.NewReader(batch), asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Purpose != PurposeBatch {
		t.Errorf("expected purpose %s, got %s", PurposeBatch, result.Purpose)
	}
	if result.Outcome != OutcomeMatched {
		t.Errorf("expected outcome %s, got %s", OutcomeMatched, result.Outcome)
	}
	if result.MatchedCount != 2 {
		t.Fatalf("expected 2 matched records, got %d", result.MatchedCount)
	}

	// Sorted ascending by numeric suffix: POL-7 before POL-12
	if result.Records[0].PolicyNumber != "POL-7" || result.Records[1].PolicyNumber != "POL-12" {
		t.Errorf("expected [POL-7 POL-12], got [%s %s]",
			result.Records[0].PolicyNumber, result.Records[1].PolicyNumber)
	}

	if result.BatchSize != 6 {
		t.Errorf("expected batch size 6, got %d", result.BatchSize)
	}
	if len(result.Headers) != 7 {
		t.Errorf("expected original headers preserved, got %v", result.Headers)
	}

	if result.Summary == nil {
		t.Fatal("expected a premium summary")
	}
	if got := result.Summary.TotalGrossPremium.StringFixed(2); got != "25.50" {
		t.Errorf("expected total premium 25.50, got %s", got)
	}
	if result.Summary.RecordsWithPremium != 2 {
		t.Errorf("expected 2 records with premium, got %d", result.Summary.RecordsWithPremium)
	}
}

// Every record in a batch result must also pass the search inference and
// appear in the batch file: the batch result is exactly the intersection.
func TestNextClearedBatch_IsIntersectionOfSearch(t *testing.T) {
	service := newTestService(t)
	asOf := dates.MustParseDMY("10/03/2024")

	batch := "POL-12\nPOL-99\n"

	batchResult, err := service.NextClearedBatch(context.Background(), strings.NewReader(testDashboard), strings.NewReader(batch), asOf)
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}

	searchResult, err := service.PolicySearch(context.Background(), strings.NewReader(testDashboard), asOf)
	if err != nil {
		t.Fatalf("unexpected search error: %v", err)
	}

	searchSet := make(map[string]bool)
	for _, record := range searchResult.Records {
		searchSet[record.PolicyNumber] = true
	}

	for _, record := range batchResult.Records {
		if !searchSet[record.PolicyNumber] {
			t.Errorf("batch result %s not present in search result", record.PolicyNumber)
		}
		if record.PolicyNumber != "POL-12" {
			t.Errorf("unexpected batch member %s", record.PolicyNumber)
		}
	}
}

func TestNextClearedBatch_Outcomes(t *testing.T) {
	service := newTestService(t)
	asOf := dates.MustParseDMY("10/03/2024")

	tests := []struct {
		name    string
		batch   string
		asOf    string
		outcome Outcome
	}{
		{
			name:    "empty batch file",
			batch:   "\n\n",
			asOf:    "10/03/2024",
			outcome: OutcomeEmptyBatch,
		},
		{
			name:    "batch members absent from dashboard",
			batch:   "POL-99\nPOL-100\n",
			asOf:    "10/03/2024",
			outcome: OutcomeNoBatchMatches,
		},
		{
			name:    "batch members present but none cleared",
			batch:   "POL-12\nPOL-7\n",
			asOf:    "04/02/2024",
			outcome: OutcomeNoneCleared,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asOf = dates.MustParseDMY(tt.asOf)
			result, err := service.NextClearedBatch(context.Background(), strings.NewReader(testDashboard), strings.NewReader(tt.batch), asOf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Outcome != tt.outcome {
				t.Errorf("expected outcome %s, got %s", tt.outcome, result.Outcome)
			}
			if result.MatchedCount != 0 {
				t.Errorf("expected no matches, got %d", result.MatchedCount)
			}
			if result.Outcome.Message() == "" || result.Outcome.Message() == "Unknown outcome" {
				t.Errorf("expected a user-facing message for %s", result.Outcome)
			}
		})
	}
}

func TestPolicySearch(t *testing.T) {
	service := newTestService(t)

	result, err := service.PolicySearch(context.Background(), strings.NewReader(testDashboard), dates.MustParseDMY("10/03/2024"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Purpose != PurposeSearch {
		t.Errorf("expected purpose %s, got %s", PurposeSearch, result.Purpose)
	}
	if result.MatchedCount != 2 {
		t.Fatalf("expected 2 matched records, got %d", result.MatchedCount)
	}
	if result.BatchSize != 0 {
		t.Errorf("search runs carry no batch, got size %d", result.BatchSize)
	}
}

func TestPolicySearch_NoneCleared(t *testing.T) {
	service := newTestService(t)

	result, err := service.PolicySearch(context.Background(), strings.NewReader(testDashboard), dates.MustParseDMY("02/01/2024"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Outcome != OutcomeNoneCleared {
		t.Errorf("expected outcome %s, got %s", OutcomeNoneCleared, result.Outcome)
	}
}

func TestService_DashboardParseErrorPropagates(t *testing.T) {
	service := newTestService(t)

	badDashboard := "Wrong Header\nPOL-1\n"
	_, err := service.PolicySearch(context.Background(), strings.NewReader(badDashboard), dates.MustParseDMY("10/03/2024"))
	if err == nil {
		t.Fatal("expected a file-level error for a dashboard missing mandatory columns")
	}
}

func TestService_CancelledContext(t *testing.T) {
	service := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.NextClearedBatch(ctx, strings.NewReader(testDashboard), strings.NewReader("POL-12\n"), dates.MustParseDMY("10/03/2024"))
	if err == nil {
		t.Fatal("expected a context cancellation error")
	}
}
