package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/curriculum"
)

// DefaultErrorDisplayLimit is how many errors the summaries list before collapsing the rest into a count.
const DefaultErrorDisplayLimit = 3

// Status of an imported file.
type Status string

const (
	StatusOK       Status = "ok"       // committed
	StatusRejected Status = "rejected" // not tied to a subject (bulk mode)
	StatusFailed   Status = "failed"   // unreadable, undetected structure or rolled back
)

// Outcome is the result of importing one file.
type Outcome struct {
	ID         string              `json:"id"`
	FileName   string              `json:"file_name"`
	Subject    string              `json:"subject,omitempty"`
	OfferingID int                 `json:"offering_id,omitempty"`
	Binding    *curriculum.Binding `json:"binding,omitempty"`
	Structure  *ColumnMap          `json:"structure,omitempty"`
	Status     Status              `json:"status"`
	Processed  int                 `json:"processed"`
	Created    int                 `json:"created"`
	Updated    int                 `json:"updated"`
	Skipped    int                 `json:"skipped"`
	Errors     []string            `json:"errors"`
	ErrorCount int                 `json:"error_count"`
	Failure    string              `json:"failure,omitempty"`
	Duration   time.Duration       `json:"duration"`
	Err        error               `json:"-"` // the file-level error, when Status != StatusOK
}

func newOutcome(id, fileName string) Outcome {
	return Outcome{ID: id, FileName: fileName, Status: StatusOK, Errors: []string{}}
}

func (o Outcome) Failed() bool {
	return o.Status != StatusOK
}

func (o *Outcome) addError(err error) {
	o.Errors = append(o.Errors, err.Error())
	o.ErrorCount++
}

// fail marks the whole file as failed. Rolled-back writes are not reported.
func (o *Outcome) fail(err error) {
	o.Status = StatusFailed
	var me *MappingError
	if errors.As(err, &me) {
		o.Status = StatusRejected
	}
	o.Err = err
	o.Failure = err.Error()
	o.Processed, o.Created, o.Updated = 0, 0, 0
}

// BatchOutcome is the result of a bulk import. Files are independent: some may fail while others commit.
type BatchOutcome struct {
	ID             string    `json:"id"`
	CourseID       int       `json:"course_id"`
	Year           int       `json:"year"`
	Files          []Outcome `json:"files"`
	Processed      int       `json:"processed"`
	Created        int       `json:"created"`
	Updated        int       `json:"updated"`
	Skipped        int       `json:"skipped"`
	ErrorCount     int       `json:"error_count"`
	FilesSucceeded int       `json:"files_succeeded"`
	FilesFailed    int       `json:"files_failed"`
}

func (b *BatchOutcome) add(o Outcome) {
	b.Files = append(b.Files, o)
	if o.Failed() {
		b.FilesFailed++
		return
	}
	b.FilesSucceeded++
	b.Processed += o.Processed
	b.Created += o.Created
	b.Updated += o.Updated
	b.Skipped += o.Skipped
	b.ErrorCount += o.ErrorCount
}

// FormatOutcome renders the one-line summary of a file, listing at most `limit` errors (<= 0 uses the default).
func FormatOutcome(o Outcome, limit int) string {
	if o.Failed() {
		return "import failed: " + o.Failure
	}

	var b strings.Builder
	fmt.Fprintf(&b, "import completed: %d records processed", o.Processed)
	if o.Created > 0 {
		fmt.Fprintf(&b, ", %d created", o.Created)
	}
	if o.Updated > 0 {
		fmt.Fprintf(&b, ", %d updated", o.Updated)
	}
	if o.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped (not taking this subject)", o.Skipped)
	}
	if o.ErrorCount > 0 {
		fmt.Fprintf(&b, ". Errors (%d): %s", o.ErrorCount, formatErrors(o.Errors, o.ErrorCount, limit))
	}
	return b.String()
}

func formatErrors(errs []string, count, limit int) string {
	if limit <= 0 {
		limit = DefaultErrorDisplayLimit
	}
	shown := errs
	if len(shown) > limit {
		shown = shown[:limit]
	}
	s := strings.Join(shown, "; ")
	if rest := count - len(shown); rest > 0 {
		s += fmt.Sprintf("; and %d more", rest)
	}
	return s
}

// Marker returns the status marker used in bulk summaries.
func (o Outcome) Marker() string {
	switch o.Status {
	case StatusOK:
		return "✅"
	case StatusRejected:
		return "⚠️"
	}
	return "❌"
}

// FormatBatch renders the multi-line summary of a bulk import.
func FormatBatch(b BatchOutcome, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "BULK IMPORT COMPLETED - YEAR %d\n\n", b.Year)
	sb.WriteString("SUMMARY:\n")
	fmt.Fprintf(&sb, "• Files succeeded: %d\n", b.FilesSucceeded)
	fmt.Fprintf(&sb, "• Files with errors: %d\n", b.FilesFailed)
	fmt.Fprintf(&sb, "• Students processed: %d\n", b.Processed)
	fmt.Fprintf(&sb, "• Students skipped: %d\n\n", b.Skipped)
	sb.WriteString("DETAIL BY FILE:")
	for _, o := range b.Files {
		sb.WriteString("\n")
		sb.WriteString(o.Marker() + " " + o.FileName)
		if o.Subject != "" {
			sb.WriteString(" (" + o.Subject + ")")
		}
		sb.WriteString(": " + FormatOutcome(o, limit))
	}
	return sb.String()
}
