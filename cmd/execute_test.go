package cmd

import (
	"os"
	"testing"

	"github.com/quarrydocs/quarry/internal/kb"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"quarry"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestExecute_UnknownCommand(t *testing.T) {
	withArgs(t, "frobnicate")
	if err := Execute(); err == nil {
		t.Error("Execute() expected error for unknown command, got nil")
	}
}

func TestExecute_Version(t *testing.T) {
	withArgs(t, "version")
	if err := Execute(); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestExecute_Help(t *testing.T) {
	withArgs(t, "help")
	if err := Execute(); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestPrintResult(t *testing.T) {
	tests := []struct {
		name    string
		result  kb.Result
		wantErr bool
	}{
		{
			name:    "success",
			result:  kb.Result{Status: kb.StatusSuccess},
			wantErr: false,
		},
		{
			name:    "healthy",
			result:  kb.Result{Status: kb.StatusHealthy},
			wantErr: false,
		},
		{
			name: "error",
			result: kb.Result{
				Status: kb.StatusError,
				Error:  &kb.Error{Code: kb.ErrCodeValidation, Message: "bad input"},
			},
			wantErr: true,
		},
		{
			name:    "unhealthy",
			result:  kb.Result{Status: kb.StatusUnhealthy},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := printResult(tt.result)
			if (err != nil) != tt.wantErr {
				t.Errorf("printResult() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
