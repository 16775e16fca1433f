package importer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestFormatOutcome(t *testing.T) {
	withErrors := newOutcome("1", "a.csv")
	withErrors.Processed, withErrors.Created, withErrors.Updated, withErrors.Skipped = 10, 4, 6, 2
	for i := 1; i <= 5; i++ {
		withErrors.addError(&RowError{Row: i, Err: ErrEmptyName})
	}

	clean := newOutcome("2", "b.csv")
	clean.Processed, clean.Created = 2, 2

	failed := newOutcome("3", "c.csv")
	failed.Processed = 3
	failed.fail(&FileError{Name: "c.csv", Err: ErrEmptyFile})

	tests := []struct {
		name  string
		o     Outcome
		limit int
		want  string
	}{
		{
			name: "clean",
			o:    clean,
			want: "import completed: 2 records processed, 2 created",
		},
		{
			name: "errors capped at the default",
			o:    withErrors,
			want: "import completed: 10 records processed, 4 created, 6 updated, 2 skipped (not taking this subject). " +
				"Errors (5): row 1: empty student name; row 2: empty student name; row 3: empty student name; and 2 more",
		},
		{
			name:  "custom limit",
			o:     withErrors,
			limit: 5,
			want: "import completed: 10 records processed, 4 created, 6 updated, 2 skipped (not taking this subject). " +
				"Errors (5): row 1: empty student name; row 2: empty student name; row 3: empty student name; " +
				"row 4: empty student name; row 5: empty student name",
		},
		{
			name: "failed",
			o:    failed,
			want: "import failed: c.csv: file is empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatOutcome(tt.o, tt.limit); got != tt.want {
				t.Errorf("FormatOutcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutcome_Fail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{name: "mapping", err: &MappingError{Name: "x.csv", Err: ErrBadFileName}, want: StatusRejected},
		{name: "structure", err: &StructureError{Err: ErrUndetected}, want: StatusFailed},
		{name: "persistence", err: &PersistenceError{Op: "commit", Err: errors.New("boom")}, want: StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOutcome("1", "x.csv")
			o.Processed, o.Created, o.Updated, o.Skipped = 3, 2, 1, 4
			o.fail(tt.err)
			if o.Status != tt.want {
				t.Errorf("fail() status = %s, want %s", o.Status, tt.want)
			}
			if o.Processed != 0 || o.Created != 0 || o.Updated != 0 {
				t.Errorf("fail() kept write counters: %+v", o)
			}
			if o.Err != tt.err || o.Failure != tt.err.Error() {
				t.Errorf("fail() err = %v, failure = %q", o.Err, o.Failure)
			}
		})
	}
}

func TestFormatBatch(t *testing.T) {
	var b BatchOutcome
	b.Year = 3

	ok := newOutcome("1", "3º AÑO(12).csv")
	ok.Subject, ok.Processed, ok.Created, ok.Skipped = "MATEMATICA", 20, 20, 1
	b.add(ok)

	rejected := newOutcome("2", "3º AÑO(99).csv")
	rejected.fail(&MappingError{Name: "3º AÑO(99).csv", Ordinal: 99, Err: fmt.Errorf("unknown subject number")})
	b.add(rejected)

	failed := newOutcome("3", "3º AÑO(13).csv")
	failed.Subject = "LENGUA"
	failed.fail(&StructureError{Err: ErrUndetected})
	b.add(failed)

	if b.FilesSucceeded != 1 || b.FilesFailed != 2 || b.Processed != 20 || b.Skipped != 1 {
		t.Fatalf("add() totals = %+v", b)
	}

	got := FormatBatch(b, 0)
	for _, want := range []string{
		"BULK IMPORT COMPLETED - YEAR 3",
		"• Files succeeded: 1",
		"• Files with errors: 2",
		"• Students processed: 20",
		"• Students skipped: 1",
		"✅ 3º AÑO(12).csv (MATEMATICA): import completed: 20 records processed, 20 created, 1 skipped",
		"⚠️ 3º AÑO(99).csv: import failed: 3º AÑO(99).csv: subject number 99: unknown subject number",
		"❌ 3º AÑO(13).csv (LENGUA): import failed: could not detect the file structure: undetected",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatBatch() missing %q in:\n%s", want, got)
		}
	}
}
