package grade

import (
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
)

var (
	// errors
	ErrNotFound          = errors.New("grade not found")
	ErrNoActiveCycle     = errors.New("no active academic cycle")
	ErrInvalidKind       = errors.New("invalid import kind")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrInvalidFinalGrade = errors.New("final grade out of range 0..10")
	ErrNoData            = errors.New("no valid data")
	ErrUnknownColumn     = errors.New("unknown grade column")
)

// Kind selects which grade columns an import writes.
type Kind string

const (
	KindPreliminary Kind = "preliminary" // bimester assessment: outcome, performance, remarks
	KindTerm        Kind = "term"        // term closing: final grade, status, remarks
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(core.CleanString(s, true)); k {
	case KindPreliminary, KindTerm:
		return k, nil
	case "":
		return KindPreliminary, nil
	}
	return "", errors.Wrapf(ErrInvalidKind, "%q", s)
}

// Period is the bimester that opens a term: 1 (first term) or 3 (second term).
type Period int

func (p Period) Valid() bool {
	return p == 1 || p == 3
}

func ParsePeriod(n int) (Period, error) {
	if p := Period(n); p.Valid() {
		return p, nil
	}
	return 0, errors.Wrapf(ErrInvalidPeriod, "%d", n)
}

// Outcome ratings.
const (
	OutcomeAchieved   = "TEA" // trayectoria educativa alcanzada
	OutcomeInProgress = "TEP" // trayectoria educativa en proceso
	OutcomeStruggling = "TED" // trayectoria educativa discontinua
)

// Final statuses derived from the final grade.
const (
	StatusPassed  = "aprobada"
	StatusPending = "pendiente"
	PassingGrade  = 4.0
)

type (
	// Key identifies a grade row.
	Key struct {
		StudentID  int `db:"estudiante_id" json:"student_id"`
		OfferingID int `db:"materia_curso_id" json:"offering_id"`
		CycleID    int `db:"ciclo_lectivo_id" json:"cycle_id"`
	}

	// Grade is one row of the grades table; only the columns imports touch are mapped.
	Grade struct {
		ID int `db:"id" json:"id"`
		Key

		Outcome1              null.String  `db:"valoracion_1bim" json:"outcome_1"`
		Performance1          null.String  `db:"desempeno_1bim" json:"performance_1"`
		Remarks1              null.String  `db:"observaciones_1bim" json:"remarks_1"`
		Outcome3              null.String  `db:"valoracion_3bim" json:"outcome_3"`
		Performance3          null.String  `db:"desempeno_3bim" json:"performance_3"`
		Remarks3              null.String  `db:"observaciones_3bim" json:"remarks_3"`
		PreliminaryFirstTerm  null.String  `db:"valoracion_preliminar_1c" json:"preliminary_first_term"`
		PreliminarySecondTerm null.String  `db:"valoracion_preliminar_2c" json:"preliminary_second_term"`
		FinalGrade            null.Float64 `db:"calificacion_final" json:"final_grade"`
		FinalStatus           null.String  `db:"estado_final" json:"final_status"`
		Remarks               null.String  `db:"observaciones" json:"remarks"`
	}

	// Cycle is an academic year.
	Cycle struct {
		ID     int  `db:"id" json:"id"`
		Year   int  `db:"anio" json:"year"`
		Active bool `db:"activo" json:"active"`
	}
)

// Set assigns `value` to the column named `column`. Values are string or float64.
func (g *Grade) Set(column string, value interface{}) error {
	if column == ColFinalGrade {
		f, ok := value.(float64)
		if !ok {
			return errors.Errorf("grade.Set: %s expects a float64, got %T", column, value)
		}
		g.FinalGrade = null.Float64From(f)
		return nil
	}

	dst := g.stringColumn(column)
	if dst == nil {
		return errors.Wrapf(ErrUnknownColumn, "%q", column)
	}
	s, ok := value.(string)
	if !ok {
		return errors.Errorf("grade.Set: %s expects a string, got %T", column, value)
	}
	*dst = null.StringFrom(s)
	return nil
}

// Get returns the value of `column`, nil when NULL.
func (g Grade) Get(column string) interface{} {
	if column == ColFinalGrade {
		if !g.FinalGrade.Valid {
			return nil
		}
		return g.FinalGrade.Float64
	}
	if dst := g.stringColumn(column); dst != nil && dst.Valid {
		return dst.String
	}
	return nil
}

func (g *Grade) stringColumn(column string) *null.String {
	switch column {
	case "valoracion_1bim":
		return &g.Outcome1
	case "desempeno_1bim":
		return &g.Performance1
	case "observaciones_1bim":
		return &g.Remarks1
	case "valoracion_3bim":
		return &g.Outcome3
	case "desempeno_3bim":
		return &g.Performance3
	case "observaciones_3bim":
		return &g.Remarks3
	case ColPreliminaryFirstTerm:
		return &g.PreliminaryFirstTerm
	case ColPreliminarySecondTerm:
		return &g.PreliminarySecondTerm
	case ColFinalStatus:
		return &g.FinalStatus
	case ColRemarks:
		return &g.Remarks
	}
	return nil
}
