package cmd

import (
	"os"
	"strings"
	"testing"
)

func TestMigrateCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		wantErr        bool
		expectedOutput string
	}{
		{
			name:           "migrate command with help",
			args:           []string{"migrate", "--help"},
			expectedOutput: "Create or update every table",
		},
		{
			name:           "migrate status subcommand help",
			args:           []string{"migrate", "status", "--help"},
			expectedOutput: "Show which tables exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := executeCommand(tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.expectedOutput != "" && !strings.Contains(output, tt.expectedOutput) {
				t.Errorf("Expected output to contain %q, got %q", tt.expectedOutput, output)
			}
		})
	}
}

func TestMigrateCommand_CreatesTables(t *testing.T) {
	dbPath := setupCLIEnv(t)

	output, err := executeCommand("migrate", "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(output, "jobs") || !strings.Contains(output, "missing") {
		t.Errorf("Expected missing tables before migrating, got %q", output)
	}

	output, err = executeCommand("migrate")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(output, "Migrated 4 tables") {
		t.Errorf("Unexpected output %q", output)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Expected database file at %s: %v", dbPath, err)
	}

	output, err = executeCommand("migrate", "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if strings.Contains(output, "missing") {
		t.Errorf("Expected every table after migrating, got %q", output)
	}
	for _, table := range []string{"videos", "transcript_cache", "usage_ledgers", "jobs"} {
		if !strings.Contains(output, table) {
			t.Errorf("Expected %s in status output", table)
		}
	}
}
