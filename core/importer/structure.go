package importer

import (
	"strings"
	"unicode"

	"github.com/trezcool/gradebook/core"
)

const (
	headerScanRows     = 10
	positionalScanRows = 5
	shapeSampleRows    = 5

	// the dominant export format has 20 per-topic content columns (2..21) and a total (22)
	contentStart  = 2
	summaryColumn = 20
	shapeColumn   = 22

	remarksMinLen = 10
)

// ColumnMap tells which column holds each field. Missing columns are -1.
type ColumnMap struct {
	RollNumber        int    `json:"roll_number"`
	StudentName       int    `json:"student_name"`
	IdentityNumber    int    `json:"identity_number"`
	OutcomeRating     int    `json:"outcome_rating"`
	PerformanceRating int    `json:"performance_rating"`
	Remarks           int    `json:"remarks"`
	FinalGrade        int    `json:"final_grade"`
	HeaderRow         int    `json:"header_row"` // -1 without header
	DataStart         int    `json:"data_start"`
	Positional        bool   `json:"positional"`
	Strategy          string `json:"strategy"`
}

func emptyColumnMap() ColumnMap {
	return ColumnMap{
		RollNumber:        -1,
		StudentName:       -1,
		IdentityNumber:    -1,
		OutcomeRating:     -1,
		PerformanceRating: -1,
		Remarks:           -1,
		FinalGrade:        -1,
		HeaderRow:         -1,
	}
}

// structureStrategy inspects the first rows of a file.
// ok=false lets the next strategy try; a non-nil error rejects the file.
type structureStrategy struct {
	name   string
	detect func(rows [][]string) (cm ColumnMap, ok bool, err error)
}

var structureStrategies = []structureStrategy{
	{name: "header", detect: detectHeader},
	{name: "positional", detect: detectPositional},
}

// InferStructure decides which column holds each field. The first strategy that recognizes the file wins.
func InferStructure(rows [][]string) (ColumnMap, error) {
	for _, s := range structureStrategies {
		cm, ok, err := s.detect(rows)
		if err != nil {
			return ColumnMap{}, &StructureError{Err: err}
		}
		if ok {
			cm.Strategy = s.name
			return cm, nil
		}
	}
	return ColumnMap{}, &StructureError{Err: ErrUndetected}
}

// detectHeader looks for a header row among the first rows that are not student rows, and maps its cells by vocabulary.
func detectHeader(rows [][]string) (ColumnMap, bool, error) {
	headerIdx := -1
	for i := 0; i < len(rows) && i < headerScanRows && headerIdx < 0; i++ {
		// student rows may mention "alumno" in their remarks
		if looksLikeDataRow(rows[i]) {
			continue
		}
		for _, cell := range rows[i] {
			if headerMarkers.matches(cell) {
				headerIdx = i
				break
			}
		}
	}
	if headerIdx < 0 {
		return ColumnMap{}, false, nil
	}

	cm := emptyColumnMap()
	cm.HeaderRow = headerIdx
	cm.DataStart = headerIdx + 1

	set := func(dst *int, idx int) {
		if *dst < 0 {
			*dst = idx
		}
	}
	for idx, cell := range rows[headerIdx] {
		switch {
		case outcomeHeader.matches(cell) || isOutcome(cell):
			set(&cm.OutcomeRating, idx)
		case performanceHeader.matches(cell):
			set(&cm.PerformanceRating, idx)
		case remarksHeader.matches(cell):
			set(&cm.Remarks, idx)
		case finalGradeHeader.matches(cell):
			set(&cm.FinalGrade, idx)
		case identityHeader.matches(cell):
			set(&cm.IdentityNumber, idx)
		case nameHeader.matches(cell):
			set(&cm.StudentName, idx)
		case rollHeader.matches(cell):
			set(&cm.RollNumber, idx)
		}
	}

	if cm.StudentName < 0 {
		return ColumnMap{}, false, ErrNoNameColumn
	}
	if cm.RollNumber < 0 {
		cm.RollNumber = 0
		if cm.StudentName == 0 {
			cm.RollNumber = -1
		}
	}

	// headers without an outcome title: find the outcome by the shape of the data
	if cm.OutcomeRating < 0 {
		cm.OutcomeRating = outcomeColumnByShape(sampleRows(rows, cm.DataStart))
	}
	fillAfterOutcome(&cm, len(rows[headerIdx]))
	return cm, true, nil
}

// detectPositional handles header-less files: the first data row has a numeric first cell
// and a second cell holding letters. Outcome, performance and remarks are found by value shape.
func detectPositional(rows [][]string) (ColumnMap, bool, error) {
	start := -1
	for i := 0; i < len(rows) && i < positionalScanRows; i++ {
		if looksLikeDataRow(rows[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		return ColumnMap{}, false, nil
	}

	cm := emptyColumnMap()
	cm.RollNumber = 0
	cm.StudentName = 1
	cm.DataStart = start
	cm.Positional = true

	sample := sampleRows(rows, start)
	cm.OutcomeRating = outcomeColumnByShape(sample)
	if cm.OutcomeRating >= 0 {
		width := 0
		for _, row := range sample {
			if len(row) > width {
				width = len(row)
			}
		}
		if cm.OutcomeRating+1 < width {
			cm.PerformanceRating = cm.OutcomeRating + 1
		}
		cm.Remarks = remarksColumnByShape(sample, cm.OutcomeRating+2)
	}
	return cm, true, nil
}

func looksLikeDataRow(row []string) bool {
	if len(row) < 3 {
		return false
	}
	first, second := strings.TrimSpace(row[0]), core.Unquote(row[1])
	return core.IsNumeric(first) && second != "" && !core.IsNumeric(second) && hasLetter(second)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func sampleRows(rows [][]string, start int) [][]string {
	if start >= len(rows) {
		return nil
	}
	end := start + shapeSampleRows
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// outcomeColumnByShape returns the first column holding an outcome symbol,
// looking past the content columns first.
func outcomeColumnByShape(sample [][]string) int {
	for _, from := range []int{shapeColumn, contentStart} {
		for _, row := range sample {
			for idx := from; idx < len(row); idx++ {
				if isOutcome(row[idx]) {
					return idx
				}
			}
		}
	}
	return -1
}

// remarksColumnByShape returns the first column from `from` holding free text.
func remarksColumnByShape(sample [][]string, from int) int {
	for _, row := range sample {
		for idx := from; idx < len(row); idx++ {
			v := core.Unquote(row[idx])
			if len([]rune(v)) > remarksMinLen && !reservedTokens[strings.ToUpper(v)] {
				return idx
			}
		}
	}
	return -1
}

// fillAfterOutcome assumes performance and remarks follow the outcome column when their titles are missing.
func fillAfterOutcome(cm *ColumnMap, width int) {
	if cm.PerformanceRating < 0 && cm.OutcomeRating >= 0 && cm.OutcomeRating+1 < width {
		cm.PerformanceRating = cm.OutcomeRating + 1
	}
	if cm.Remarks < 0 && cm.PerformanceRating >= 0 && cm.PerformanceRating+1 < width {
		cm.Remarks = cm.PerformanceRating + 1
	}
}
