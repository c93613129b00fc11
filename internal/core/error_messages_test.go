package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "missing source maps by code",
			err:         &PipelineError{Code: CodeMissingSource, Table: "orders", Err: ErrMissingSource},
			wantCode:    "SRC001",
			wantMessage: "An expected raw extract file is missing",
		},
		{
			name:        "wrapped cardinality error maps by code",
			err:         fmt.Errorf("gold: %w", &PipelineError{Code: CodeCardinality, Err: ErrCardinality}),
			wantCode:    "JOIN001",
			wantMessage: "A join matched more rows than its contract allows",
		},
		{
			name:        "permission denied maps by pattern",
			err:         errors.New("open data/bronze/orders.parquet: permission denied"),
			wantCode:    "FS001",
			wantMessage: "Permission denied",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("dial tcp: CONNECTION REFUSED"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := &PipelineError{Code: CodeMissingArtifact, Err: ErrMissingArtifact}
	result := FormatUserError(err)

	expected := "An upstream layer artifact was not found (Code: ART001). Run the upstream stage first"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestPipelineError(t *testing.T) {
	err := &PipelineError{
		Code:   CodeMissingSource,
		Table:  "orders",
		Path:   "/raw/olist_orders_dataset.csv",
		Detail: "file does not exist",
		Err:    ErrMissingSource,
	}

	want := "SRC001: missing source file table=orders path=/raw/olist_orders_dataset.csv: file does not exist"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrMissingSource) {
		t.Error("errors.Is should match the sentinel")
	}
}
