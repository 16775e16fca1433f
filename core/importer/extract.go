package importer

import (
	"strconv"
	"strings"

	"github.com/trezcool/gradebook/core"
)

const (
	minRowCells      = 5
	remarksMinRunes  = 3
	performanceFirst = -1 // performance window, relative to the outcome cell
	performanceLast  = 2
)

// ParsedRow is one data row after extraction.
// Skip rows are students that do not take the subject; they are counted, never persisted.
type ParsedRow struct {
	RowNumber      int      `json:"row_number"`
	RollNumber     int      `json:"roll_number"`
	StudentName    string   `json:"student_name"`
	IdentityNumber string   `json:"identity_number,omitempty"`
	Outcome        string   `json:"outcome,omitempty"`
	Performance    string   `json:"performance,omitempty"`
	Remarks        string   `json:"remarks,omitempty"`
	FinalGrade     *float64 `json:"final_grade,omitempty"`
	Skip           bool     `json:"skip"`
	SkipReason     string   `json:"skip_reason,omitempty"`
}

// Extractor turns raw cells into ParsedRows.
type Extractor struct {
	// DefaultPerformance is used when an outcome has no performance label next to it. Empty leaves it unset.
	DefaultPerformance string
}

// ExtractRow extracts a row with the legacy performance default.
func ExtractRow(cells []string, cm ColumnMap, rowNumber int) (ParsedRow, error) {
	return Extractor{DefaultPerformance: DefaultPerformance}.Extract(cells, cm, rowNumber)
}

// Extract parses `cells` using `cm`. Malformed rows return a *RowError.
func (ex Extractor) Extract(cells []string, cm ColumnMap, rowNumber int) (ParsedRow, error) {
	pr := ParsedRow{RowNumber: rowNumber}

	if len(cells) < minRowCells {
		return pr, &RowError{Row: rowNumber, Err: ErrTooFewCells}
	}

	if cm.RollNumber >= 0 {
		roll := cell(cells, cm.RollNumber)
		if !core.IsNumeric(roll) {
			return pr, &RowError{Row: rowNumber, Err: ErrInvalidRollNumber}
		}
		if f, err := strconv.ParseFloat(roll, 64); err == nil {
			pr.RollNumber = int(f)
		}
	}

	pr.StudentName = cell(cells, cm.StudentName)
	if pr.StudentName == "" {
		return pr, &RowError{Row: rowNumber, Err: ErrEmptyName}
	}
	pr.IdentityNumber = cell(cells, cm.IdentityNumber)
	pr.FinalGrade = parseGrade(cell(cells, cm.FinalGrade))

	outcomeIdx := findOutcome(cells)
	if outcomeIdx < 0 {
		if pr.FinalGrade != nil {
			pr.Remarks = remarksCell(cell(cells, cm.Remarks))
			return pr, nil
		}
		if hasData(cells, cm) {
			return pr, &RowError{Row: rowNumber, Name: pr.StudentName, Err: ErrMissingOutcome}
		}
		pr.Skip = true
		pr.SkipReason = "no outcome rating, does not take this subject"
		return pr, nil
	}
	pr.Outcome = strings.ToUpper(cell(cells, outcomeIdx))

	perfIdx := outcomeIdx + 1
	if label, ok := performanceLabel(cell(cells, perfIdx)); ok {
		pr.Performance = label
	} else {
		for off := performanceFirst; off <= performanceLast; off++ {
			idx := outcomeIdx + off
			if off == 0 || idx < 0 || idx >= len(cells) {
				continue
			}
			if label, ok := performanceLabel(cells[idx]); ok {
				pr.Performance, perfIdx = label, idx
				break
			}
		}
	}
	if pr.Performance == "" {
		pr.Performance = ex.DefaultPerformance
	}

	from := outcomeIdx + 2
	if perfIdx+1 > from {
		from = perfIdx + 1
	}
	for idx := from; idx < len(cells); idx++ {
		if r := remarksCell(cells[idx]); r != "" {
			pr.Remarks = r
			break
		}
	}
	return pr, nil
}

// cell returns the trimmed, unquoted cell at `idx`, or "" when out of range.
func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return core.Unquote(cells[idx])
}

// findOutcome scans for an outcome symbol past the content columns first, then from the first content column.
func findOutcome(cells []string) int {
	for _, from := range []int{summaryColumn, contentStart} {
		for idx := from; idx < len(cells); idx++ {
			if isOutcome(cells[idx]) {
				return idx
			}
		}
	}
	return -1
}

// hasData reports whether any cell besides the roll number, name and identity number carries text.
// Placeholders, numbers (topic totals) and single characters (topic marks) are not data.
func hasData(cells []string, cm ColumnMap) bool {
	for idx := range cells {
		switch idx {
		case cm.RollNumber, cm.StudentName, cm.IdentityNumber:
			continue
		}
		v := core.Unquote(cells[idx])
		if isPlaceholder(v) || len([]rune(v)) < 2 || core.IsNumeric(v) {
			continue
		}
		return true
	}
	return false
}

// remarksCell returns `s` unquoted when it reads as free text, else "".
func remarksCell(s string) string {
	v := core.Unquote(s)
	if len([]rune(v)) < remarksMinRunes || reservedTokens[strings.ToUpper(v)] {
		return ""
	}
	return v
}

// parseGrade reads "7", "7.5" or "7,5". Returns nil for placeholders and anything else.
func parseGrade(s string) *float64 {
	if isPlaceholder(s) {
		return nil
	}
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	if !core.IsNumeric(s) {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
