package dates

import (
	"testing"
	"time"
)

func TestParseDMY(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		ok       bool
	}{
		{
			name:     "standard date",
			input:    "15/06/2024",
			expected: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "single digit day and month",
			input:    "1/2/2024",
			expected: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "trailing time component ignored",
			input:    "01/03/2024 00:00:00",
			expected: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:     "surrounding whitespace",
			input:    "  29/02/2024  ",
			expected: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name:  "impossible date rolls over",
			input: "31/02/2024",
			ok:    false,
		},
		{
			name:  "leap day in non-leap year",
			input: "29/02/2023",
			ok:    false,
		},
		{
			name:  "zero day",
			input: "00/01/2024",
			ok:    false,
		},
		{
			name:  "month out of range",
			input: "13/13/2024",
			ok:    false,
		},
		{
			name:  "day out of range",
			input: "45/01/2024",
			ok:    false,
		},
		{
			name:  "year below sanity window",
			input: "01/01/1899",
			ok:    false,
		},
		{
			name:  "year above sanity window",
			input: "01/01/2101",
			ok:    false,
		},
		{
			name:  "two parts only",
			input: "01/2024",
			ok:    false,
		},
		{
			name:  "non-numeric part",
			input: "aa/01/2024",
			ok:    false,
		},
		{
			name:  "empty string",
			input: "",
			ok:    false,
		},
		{
			name:  "whitespace only",
			input: "   ",
			ok:    false,
		},
		{
			name:  "iso format rejected",
			input: "2024-01-15",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDMY(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseDMY(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if tt.ok && !got.Equal(tt.expected) {
				t.Errorf("ParseDMY(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseDMYRoundTrip(t *testing.T) {
	inputs := []string{
		"01/01/1900",
		"29/02/2000",
		"31/12/2100",
		"15/06/2024",
		"09/09/1999",
	}

	for _, input := range inputs {
		parsed, ok := ParseDMY(input)
		if !ok {
			t.Fatalf("expected %q to parse", input)
		}
		if formatted := FormatDMY(parsed); formatted != input {
			t.Errorf("round trip of %q produced %q", input, formatted)
		}
	}
}

func TestStripTime(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"01/03/2024 00:00:00", "01/03/2024"},
		{"01/03/2024", "01/03/2024"},
		{"  01/03/2024 12:30  ", "01/03/2024"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := StripTime(tt.input); got != tt.expected {
			t.Errorf("StripTime(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		months   int
		expected string
	}{
		{"plain month step", "01/01/2024", 1, "01/02/2024"},
		{"year boundary", "15/12/2023", 1, "15/01/2024"},
		{"day overflow normalizes forward", "31/01/2024", 1, "02/03/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddMonths(MustParseDMY(tt.input), tt.months)
			if FormatDMY(got) != tt.expected {
				t.Errorf("AddMonths(%s, %d) = %s, want %s", tt.input, tt.months, FormatDMY(got), tt.expected)
			}
		})
	}
}

func TestAddDays(t *testing.T) {
	// The 30-day cancellation window is fixed-day arithmetic, distinct
	// from the calendar-month arithmetic of AddMonths.
	got := AddDays(MustParseDMY("01/03/2024"), 30)
	if FormatDMY(got) != "31/03/2024" {
		t.Errorf("AddDays(01/03/2024, 30) = %s, want 31/03/2024", FormatDMY(got))
	}

	monthStep := AddMonths(MustParseDMY("01/03/2024"), 1)
	if FormatDMY(monthStep) == FormatDMY(got) {
		t.Error("expected 30-day and 1-month arithmetic to differ for 01/03/2024")
	}
}

func TestTruncate(t *testing.T) {
	in := time.Date(2024, 3, 10, 17, 45, 12, 999, time.FixedZone("X", 3600))
	got := Truncate(in)

	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Errorf("expected midnight, got %v", got)
	}
	if got.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", got.Location())
	}
}
