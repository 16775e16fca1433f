package importer

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/student"
)

var (
	// file errors
	ErrUnsupportedFormat = errors.New("unsupported file format, use CSV")
	ErrFileTooLarge      = errors.New("file is too large")
	ErrEmptyFile         = errors.New("file is empty")
	ErrUnreadable        = errors.New("file could not be read")
	ErrTooManyRows       = errors.New("file has too many rows")
	ErrNoRows            = errors.New("no data rows found")
	ErrTimeout           = errors.New("import timed out")

	// structure errors
	ErrUndetected         = errors.New("undetected")
	ErrNoNameColumn       = errors.New("no student name column")
	ErrNoOutcomeColumn    = errors.New("no outcome rating column (TEA/TEP/TED)")
	ErrNoFinalGradeColumn = errors.New("no final grade column")

	// mapping errors
	ErrBadFileName = errors.New("file name does not end with (NUMBER).csv")

	// row errors
	ErrTooFewCells       = errors.New("invalid format, too few cells")
	ErrInvalidRollNumber = errors.New("invalid student number")
	ErrEmptyName         = errors.New("empty student name")
	ErrMissingOutcome    = errors.New("no outcome rating (TEA/TEP/TED) but other data present")
)

// FileError means the file as a whole could not be read or accepted.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// StructureError means no column layout could be inferred from the file.
type StructureError struct {
	Err error
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("could not detect the file structure: %v", e.Err)
}

func (e *StructureError) Unwrap() error { return e.Err }

// MappingError means a bulk-import file could not be tied to a subject offering.
type MappingError struct {
	Name    string
	Ordinal int
	Subject string
	Err     error
}

func (e *MappingError) Error() string {
	switch {
	case e.Subject != "":
		return fmt.Sprintf("%s: subject %q: %v", e.Name, e.Subject, e.Err)
	case e.Ordinal > 0:
		return fmt.Sprintf("%s: subject number %d: %v", e.Name, e.Ordinal, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// RowError is a malformed row. It never aborts the file.
type RowError struct {
	Row  int
	Name string
	Err  error
}

func (e *RowError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("row %d (%s): %v", e.Row, e.Name, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// MatchError is a row whose student could not be resolved.
type MatchError struct {
	Row  int
	Name string
	Best *student.Candidate // best scoring candidate below the threshold, if any
	Err  error
}

func (e *MatchError) Error() string {
	msg := fmt.Sprintf("row %d: student not found: %s", e.Row, e.Name)
	if e.Best != nil {
		msg += fmt.Sprintf(" (closest: %s, %.0f%%)", e.Best.DisplayName, e.Best.Score)
	}
	return msg
}

func (e *MatchError) Unwrap() error { return e.Err }

// PersistenceError is an infrastructure failure; the file's transaction is rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("saving data: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsFileLevel reports whether `err` aborts a whole file (as opposed to a single row).
func IsFileLevel(err error) bool {
	var (
		fe *FileError
		se *StructureError
		me *MappingError
		pe *PersistenceError
	)
	return errors.As(err, &fe) || errors.As(err, &se) || errors.As(err, &me) || errors.As(err, &pe)
}
