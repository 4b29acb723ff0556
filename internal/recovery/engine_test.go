package recovery

import (
	"testing"
	"time"

	"policy-recovery-service/internal/dates"
	"policy-recovery-service/internal/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine
}

func TestNextPaymentCleared(t *testing.T) {
	engine := newTestEngine(t)

	// Baseline: one arrear on 01/01/2024, expected recovery due
	// 01/02/2024, grace boundary 06/02/2024, next collection 05/03/2024.
	baseline := func() *models.PolicyRecord {
		return &models.PolicyRecord{
			PolicyNumber:       "ABC123",
			Status:             "ON_RISK",
			MissedPayments:     []string{"01/01/2024"},
			NextCollectionDate: "05/03/2024",
		}
	}

	tests := []struct {
		name     string
		modify   func(*models.PolicyRecord)
		asOf     string
		expected bool
	}{
		{
			name:     "cleared after grace window",
			modify:   func(r *models.PolicyRecord) {},
			asOf:     "10/03/2024",
			expected: true,
		},
		{
			name:     "exactly at grace boundary",
			modify:   func(r *models.PolicyRecord) {},
			asOf:     "06/02/2024",
			expected: true,
		},
		{
			name:     "one day before grace boundary",
			modify:   func(r *models.PolicyRecord) {},
			asOf:     "05/02/2024",
			expected: false,
		},
		{
			name:     "well inside grace window",
			modify:   func(r *models.PolicyRecord) {},
			asOf:     "04/02/2024",
			expected: false,
		},
		{
			name: "lapsed status short-circuits",
			modify: func(r *models.PolicyRecord) {
				r.Status = "LAPSED"
			},
			asOf:     "10/03/2024",
			expected: false,
		},
		{
			name: "temporarily lapsed short-circuits",
			modify: func(r *models.PolicyRecord) {
				r.Status = "temporarily_lapsed"
			},
			asOf:     "10/03/2024",
			expected: false,
		},
		{
			name: "no missed payments",
			modify: func(r *models.PolicyRecord) {
				r.MissedPayments = nil
			},
			asOf:     "10/03/2024",
			expected: false,
		},
		{
			name: "two missed payments uses the second",
			modify: func(r *models.PolicyRecord) {
				r.MissedPayments = []string{"01/12/2023", "01/01/2024"}
			},
			asOf:     "10/03/2024",
			expected: true,
		},
		{
			name: "three missed payments not eligible",
			modify: func(r *models.PolicyRecord) {
				r.MissedPayments = []string{"01/11/2023", "01/12/2023", "01/01/2024"}
			},
			asOf:     "10/03/2024",
			expected: false,
		},
		{
			name: "unparseable last missed date",
			modify: func(r *models.PolicyRecord) {
				r.MissedPayments = []string{"31/02/2024"}
			},
			asOf:     "10/03/2024",
			expected: false,
		},
		{
			name: "missing next collection date",
			modify: func(r *models.PolicyRecord) {
				r.NextCollectionDate = ""
			},
			asOf:     "10/03/2024",
			expected: false,
		},
		{
			name: "unparseable next collection date",
			modify: func(r *models.PolicyRecord) {
				r.NextCollectionDate = "not-a-date"
			},
			asOf:     "10/03/2024",
			expected: false,
		},
		{
			name: "next collection equal to expected due date",
			modify: func(r *models.PolicyRecord) {
				r.NextCollectionDate = "01/02/2024"
			},
			asOf:     "10/03/2024",
			expected: false,
		},
		{
			name: "next collection before expected due date",
			modify: func(r *models.PolicyRecord) {
				r.NextCollectionDate = "15/01/2024"
			},
			asOf:     "10/03/2024",
			expected: false,
		},
		{
			name: "next collection one day after expected due date",
			modify: func(r *models.PolicyRecord) {
				r.NextCollectionDate = "02/02/2024"
			},
			asOf:     "10/03/2024",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := baseline()
			tt.modify(record)

			got := engine.NextPaymentCleared(record, dates.MustParseDMY(tt.asOf))
			if got != tt.expected {
				t.Errorf("NextPaymentCleared(%s, asOf=%s) = %v, expected %v",
					record.PolicyNumber, tt.asOf, got, tt.expected)
			}
		})
	}
}

// The decision flips exactly once as the reference date advances: false
// for every day before the grace boundary, true from the boundary on.
func TestNextPaymentCleared_MonotonicInReferenceDate(t *testing.T) {
	engine := newTestEngine(t)

	record := &models.PolicyRecord{
		PolicyNumber:       "ABC123",
		Status:             "ON_RISK",
		MissedPayments:     []string{"01/01/2024"},
		NextCollectionDate: "05/03/2024",
	}

	boundary := dates.MustParseDMY("06/02/2024")
	day := dates.MustParseDMY("20/01/2024")
	end := dates.MustParseDMY("20/02/2024")

	for !day.After(end) {
		got := engine.NextPaymentCleared(record, day)
		expected := !day.Before(boundary)
		if got != expected {
			t.Fatalf("on %s got %v, expected %v", dates.FormatDMY(day), got, expected)
		}
		day = dates.AddDays(day, 1)
	}
}

func TestNextPaymentCleared_TimeOfDayIgnored(t *testing.T) {
	engine := newTestEngine(t)

	record := &models.PolicyRecord{
		PolicyNumber:       "ABC123",
		Status:             "ON_RISK",
		MissedPayments:     []string{"01/01/2024"},
		NextCollectionDate: "05/03/2024",
	}

	// A reference timestamp just before midnight on the boundary day must
	// behave the same as midnight itself.
	boundary := dates.MustParseDMY("06/02/2024")
	lateInDay := boundary.Add(23*time.Hour + 59*time.Minute)

	if !engine.NextPaymentCleared(record, lateInDay) {
		t.Error("expected true for any time of day on the grace boundary")
	}
}

func TestNextPaymentCleared_MonthEndNormalization(t *testing.T) {
	engine := newTestEngine(t)

	// Last miss on 31/01/2024: one calendar month later normalizes to
	// 02/03/2024, so the grace boundary is 07/03/2024.
	record := &models.PolicyRecord{
		PolicyNumber:       "ABC999",
		Status:             "ON_RISK",
		MissedPayments:     []string{"31/01/2024"},
		NextCollectionDate: "15/03/2024",
	}

	if engine.NextPaymentCleared(record, dates.MustParseDMY("06/03/2024")) {
		t.Error("expected false the day before the normalized grace boundary")
	}
	if !engine.NextPaymentCleared(record, dates.MustParseDMY("07/03/2024")) {
		t.Error("expected true at the normalized grace boundary")
	}
}

func TestEngineConfig_Validate(t *testing.T) {
	if err := (&EngineConfig{GraceDays: -1}).Validate(); err == nil {
		t.Error("expected an error for negative grace days")
	}
	if err := (&EngineConfig{GraceDays: 0}).Validate(); err != nil {
		t.Errorf("zero grace days is valid, got %v", err)
	}
}

func TestNextPaymentCleared_CustomGraceDays(t *testing.T) {
	engine, err := NewEngine(&EngineConfig{GraceDays: 10})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	record := &models.PolicyRecord{
		PolicyNumber:       "ABC123",
		Status:             "ON_RISK",
		MissedPayments:     []string{"01/01/2024"},
		NextCollectionDate: "05/03/2024",
	}

	if engine.NextPaymentCleared(record, dates.MustParseDMY("10/02/2024")) {
		t.Error("expected false inside the widened grace window")
	}
	if !engine.NextPaymentCleared(record, dates.MustParseDMY("11/02/2024")) {
		t.Error("expected true at the widened grace boundary")
	}
}
