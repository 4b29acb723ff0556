package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func setRunFlags(t *testing.T, values map[string]interface{}) {
	t.Helper()

	viper.Reset()
	for key, value := range values {
		viper.Set(key, value)
	}
	t.Cleanup(viper.Reset)
}

func TestValidateRunFlags(t *testing.T) {
	dashboard := writeTempFile(t, "dashboard.csv", "Policy Number\nPOL-1\n")
	batch := writeTempFile(t, "batch.txt", "POL-1\n")

	tests := []struct {
		name    string
		command *cobra.Command
		values  map[string]interface{}
		wantErr string
	}{
		{
			name:    "search needs only the dashboard file",
			command: searchCmd,
			values: map[string]interface{}{
				"dashboard-file": dashboard,
				"output-format":  "csv",
			},
		},
		{
			name:    "batch requires a batch file",
			command: batchCmd,
			values: map[string]interface{}{
				"dashboard-file": dashboard,
				"output-format":  "csv",
			},
			wantErr: "batch-file is required",
		},
		{
			name:    "batch with both files",
			command: batchCmd,
			values: map[string]interface{}{
				"dashboard-file": dashboard,
				"batch-file":     batch,
				"output-format":  "text",
			},
		},
		{
			name:    "missing dashboard file",
			command: searchCmd,
			values: map[string]interface{}{
				"output-format": "csv",
			},
			wantErr: "dashboard-file is required",
		},
		{
			name:    "nonexistent dashboard path",
			command: searchCmd,
			values: map[string]interface{}{
				"dashboard-file": filepath.Join(t.TempDir(), "missing.csv"),
				"output-format":  "csv",
			},
			wantErr: "does not exist",
		},
		{
			name:    "invalid output format",
			command: searchCmd,
			values: map[string]interface{}{
				"dashboard-file": dashboard,
				"output-format":  "xml",
			},
			wantErr: "invalid output format",
		},
		{
			name:    "invalid as-of date",
			command: searchCmd,
			values: map[string]interface{}{
				"dashboard-file": dashboard,
				"output-format":  "csv",
				"as-of":          "2024-03-10",
			},
			wantErr: "invalid as-of date",
		},
		{
			name:    "negative grace days",
			command: searchCmd,
			values: map[string]interface{}{
				"dashboard-file": dashboard,
				"output-format":  "csv",
				"grace-days":     -1,
			},
			wantErr: "grace days cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRunFlags(t, tt.values)

			err := validateRunFlags(tt.command, nil)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

// The shared validator must not reference the command variables: it keys
// the batch-only checks off the command's own flag set, so any command
// carrying a batch-file flag gets them and commands without one do not.
func TestValidateRunFlags_KeyedOffFlagSet(t *testing.T) {
	dashboard := writeTempFile(t, "dashboard.csv", "Policy Number\nPOL-1\n")

	setRunFlags(t, map[string]interface{}{
		"dashboard-file": dashboard,
		"output-format":  "csv",
	})

	plain := &cobra.Command{Use: "plain"}
	if err := validateRunFlags(plain, nil); err != nil {
		t.Errorf("command without a batch-file flag must not require one, got %v", err)
	}

	withFlag := &cobra.Command{Use: "withflag"}
	withFlag.Flags().String("batch-file", "", "")
	if err := validateRunFlags(withFlag, nil); err == nil {
		t.Error("command carrying a batch-file flag must require a value for it")
	}
}
