package infra

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestSplitMarker(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantMarker string
		wantBody   string
		wantErr    error
	}{
		{
			name:       "valid marker",
			query:      "\n--sql 0b6c2f1e-3d6a-4c55-9c1e-2a7f4e8d9b10\nselect 1;\n",
			wantMarker: "0b6c2f1e-3d6a-4c55-9c1e-2a7f4e8d9b10",
			wantBody:   "select 1;",
		},
		{
			name:    "missing marker",
			query:   "select 1;",
			wantErr: errInvalidMarker,
		},
		{
			name:    "uppercase uuid rejected",
			query:   "--sql 0B6C2F1E-3D6A-4C55-9C1E-2A7F4E8D9B10\nselect 1;",
			wantErr: errInvalidMarker,
		},
		{
			name:    "empty",
			query:   "   ",
			wantErr: errEmptyQuery,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marker, body, err := splitMarker(tc.query)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if marker != tc.wantMarker || body != tc.wantBody {
				t.Fatalf("got (%q, %q), want (%q, %q)", marker, body, tc.wantMarker, tc.wantBody)
			}
		})
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("lookup: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped ErrNoRows not detected")
	}
	if IsNoRows(errors.New("other")) {
		t.Fatal("unrelated error reported as no rows")
	}
}

type fixedRow struct{ err error }

func (f fixedRow) Scan(...any) error { return f.err }

func TestLoggingRowReportsElapsedOnScan(t *testing.T) {
	var seen []string
	row := loggingRow{
		row:    fixedRow{err: pgx.ErrNoRows},
		logger: NopLogger(),
		marker: "m-1",
		start:  time.Now(),
		done:   func(marker string, _ time.Time) { seen = append(seen, marker) },
	}
	if err := row.Scan(); !IsNoRows(err) {
		t.Fatalf("err = %v, want no rows", err)
	}
	if len(seen) != 1 || seen[0] != "m-1" {
		t.Fatalf("observed %v", seen)
	}
}
