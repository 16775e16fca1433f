package grade

import (
	"fmt"

	"github.com/pkg/errors"
)

// Columns written by imports.
const (
	ColPreliminaryFirstTerm  = "valoracion_preliminar_1c"
	ColPreliminarySecondTerm = "valoracion_preliminar_2c"
	ColFinalGrade            = "calificacion_final"
	ColFinalStatus           = "estado_final"
	ColRemarks               = "observaciones"
)

func OutcomeColumn(p Period) string {
	return fmt.Sprintf("valoracion_%dbim", p)
}

func PerformanceColumn(p Period) string {
	return fmt.Sprintf("desempeno_%dbim", p)
}

func RemarksColumn(p Period) string {
	return fmt.Sprintf("observaciones_%dbim", p)
}

// PreliminaryColumn returns the term column mirroring the outcome of the bimester `p`.
func PreliminaryColumn(p Period) string {
	if p == 1 {
		return ColPreliminaryFirstTerm
	}
	return ColPreliminarySecondTerm
}

// IsColumn reports whether `column` is a grade column imports may write.
func IsColumn(column string) bool {
	var g Grade
	return column == ColFinalGrade || g.stringColumn(column) != nil
}

type (
	Field struct {
		Column string
		Value  interface{} // string or float64
	}

	// Values are the parsed values of one imported row.
	Values struct {
		Outcome     string
		Performance string
		Remarks     string
		FinalGrade  *float64
	}

	// Upsert is the set of columns one import writes for one grade row. It is immutable.
	Upsert struct {
		key    Key
		kind   Kind
		period Period
		fields []Field
	}
)

// NewUpsert builds the field set of `kind` from `v`. Empty values are not written.
// Returns ErrNoData when nothing would be written.
func NewUpsert(key Key, kind Kind, period Period, v Values) (Upsert, error) {
	if !period.Valid() {
		return Upsert{}, errors.Wrapf(ErrInvalidPeriod, "%d", period)
	}

	var fields []Field
	switch kind {
	case KindPreliminary:
		if v.Outcome != "" {
			fields = append(fields,
				Field{Column: OutcomeColumn(period), Value: v.Outcome},
				Field{Column: PreliminaryColumn(period), Value: v.Outcome},
			)
		}
		if v.Performance != "" {
			fields = append(fields, Field{Column: PerformanceColumn(period), Value: v.Performance})
		}
		if v.Remarks != "" {
			fields = append(fields, Field{Column: RemarksColumn(period), Value: v.Remarks})
		}
	case KindTerm:
		if v.FinalGrade != nil {
			fg := *v.FinalGrade
			if fg < 0 || fg > 10 {
				return Upsert{}, errors.Wrapf(ErrInvalidFinalGrade, "%v", fg)
			}
			status := StatusPending
			if fg >= PassingGrade {
				status = StatusPassed
			}
			fields = append(fields,
				Field{Column: ColFinalGrade, Value: fg},
				Field{Column: ColFinalStatus, Value: status},
			)
		}
		if v.Remarks != "" {
			fields = append(fields, Field{Column: ColRemarks, Value: v.Remarks})
		}
		if v.Outcome != "" {
			fields = append(fields,
				Field{Column: ColPreliminaryFirstTerm, Value: v.Outcome},
				Field{Column: ColPreliminarySecondTerm, Value: v.Outcome},
			)
		}
	default:
		return Upsert{}, errors.Wrapf(ErrInvalidKind, "%q", kind)
	}

	if len(fields) == 0 {
		return Upsert{}, ErrNoData
	}
	return Upsert{key: key, kind: kind, period: period, fields: fields}, nil
}

func (u Upsert) Key() Key {
	return u.key
}

func (u Upsert) Kind() Kind {
	return u.kind
}

func (u Upsert) Period() Period {
	return u.period
}

// Fields returns a copy of the columns to write, in a stable order.
func (u Upsert) Fields() []Field {
	fields := make([]Field, len(u.fields))
	copy(fields, u.fields)
	return fields
}

// Apply writes the upsert's columns on `g`.
func (u Upsert) Apply(g *Grade) error {
	for _, f := range u.fields {
		if err := g.Set(f.Column, f.Value); err != nil {
			return err
		}
	}
	return nil
}

// Unchanged reports whether `g` already holds every value of the upsert.
func (u Upsert) Unchanged(g Grade) bool {
	for _, f := range u.fields {
		if g.Get(f.Column) != f.Value {
			return false
		}
	}
	return true
}
