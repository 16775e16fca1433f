package grade

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func floatPtr(f float64) *float64 { return &f }

func TestNewUpsert(t *testing.T) {
	key := Key{StudentID: 1, OfferingID: 2, CycleID: 3}

	tests := []struct {
		name    string
		kind    Kind
		period  Period
		values  Values
		want    []Field
		wantErr error
	}{
		{
			name:   "preliminary first bimester",
			kind:   KindPreliminary,
			period: 1,
			values: Values{Outcome: "TEA", Performance: "Muy Bueno", Remarks: "Muy buen trabajo"},
			want: []Field{
				{Column: "valoracion_1bim", Value: "TEA"},
				{Column: "valoracion_preliminar_1c", Value: "TEA"},
				{Column: "desempeno_1bim", Value: "Muy Bueno"},
				{Column: "observaciones_1bim", Value: "Muy buen trabajo"},
			},
		},
		{
			name:   "preliminary third bimester mirrors second term",
			kind:   KindPreliminary,
			period: 3,
			values: Values{Outcome: "TED"},
			want: []Field{
				{Column: "valoracion_3bim", Value: "TED"},
				{Column: "valoracion_preliminar_2c", Value: "TED"},
			},
		},
		{
			name:   "term passed",
			kind:   KindTerm,
			period: 1,
			values: Values{FinalGrade: floatPtr(7), Remarks: "ok", Outcome: "TEA"},
			want: []Field{
				{Column: "calificacion_final", Value: 7.0},
				{Column: "estado_final", Value: "aprobada"},
				{Column: "observaciones", Value: "ok"},
				{Column: "valoracion_preliminar_1c", Value: "TEA"},
				{Column: "valoracion_preliminar_2c", Value: "TEA"},
			},
		},
		{
			name:   "term pending",
			kind:   KindTerm,
			period: 3,
			values: Values{FinalGrade: floatPtr(3.5)},
			want: []Field{
				{Column: "calificacion_final", Value: 3.5},
				{Column: "estado_final", Value: "pendiente"},
			},
		},
		{name: "term out of range", kind: KindTerm, period: 1, values: Values{FinalGrade: floatPtr(11)}, wantErr: ErrInvalidFinalGrade},
		{name: "term without data", kind: KindTerm, period: 1, values: Values{Performance: "Bueno"}, wantErr: ErrNoData},
		{name: "invalid period", kind: KindPreliminary, period: 2, values: Values{Outcome: "TEA"}, wantErr: ErrInvalidPeriod},
		{name: "invalid kind", kind: "final", period: 1, values: Values{Outcome: "TEA"}, wantErr: ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewUpsert(key, tt.kind, tt.period, tt.values)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("NewUpsert() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got.Key() != key {
				t.Errorf("Key() = %+v, want %+v", got.Key(), key)
			}
			if !reflect.DeepEqual(got.Fields(), tt.want) {
				t.Errorf("Fields() = %+v, want %+v", got.Fields(), tt.want)
			}
		})
	}
}

func TestUpsert_FieldsIsACopy(t *testing.T) {
	u, err := NewUpsert(Key{}, KindPreliminary, 1, Values{Outcome: "TEA"})
	if err != nil {
		t.Fatalf("NewUpsert() error = %v", err)
	}
	fields := u.Fields()
	fields[0].Value = "TED"
	if got := u.Fields()[0].Value; got != "TEA" {
		t.Errorf("Fields()[0].Value = %v after mutating a copy, want TEA", got)
	}
}

func TestUpsert_ApplyAndUnchanged(t *testing.T) {
	u, err := NewUpsert(Key{}, KindTerm, 1, Values{FinalGrade: floatPtr(8), Outcome: "TEP"})
	if err != nil {
		t.Fatalf("NewUpsert() error = %v", err)
	}

	var g Grade
	if u.Unchanged(g) {
		t.Fatal("Unchanged() = true on an empty grade")
	}
	if err := u.Apply(&g); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !u.Unchanged(g) {
		t.Error("Unchanged() = false after Apply()")
	}
	if g.FinalStatus.String != StatusPassed || g.PreliminarySecondTerm.String != "TEP" {
		t.Errorf("Apply() grade = %+v", g)
	}
}

func TestGrade_Set(t *testing.T) {
	var g Grade
	tests := []struct {
		name    string
		column  string
		value   interface{}
		wantErr bool
	}{
		{name: "string column", column: "desempeno_3bim", value: "Regular"},
		{name: "float column", column: ColFinalGrade, value: 6.0},
		{name: "wrong type", column: ColFinalGrade, value: "6", wantErr: true},
		{name: "unknown column", column: "id; DROP TABLE", value: "x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Set(tt.column, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && g.Get(tt.column) != tt.value {
				t.Errorf("Get() = %v, want %v", g.Get(tt.column), tt.value)
			}
		})
	}
}

func TestParseKindAndPeriod(t *testing.T) {
	if k, err := ParseKind(" TERM "); err != nil || k != KindTerm {
		t.Errorf("ParseKind() = %q, %v", k, err)
	}
	if k, err := ParseKind(""); err != nil || k != KindPreliminary {
		t.Errorf("ParseKind(\"\") = %q, %v", k, err)
	}
	if _, err := ParseKind("final"); errors.Cause(err) != ErrInvalidKind {
		t.Errorf("ParseKind() error = %v, wantErr %v", err, ErrInvalidKind)
	}
	if _, err := ParsePeriod(2); errors.Cause(err) != ErrInvalidPeriod {
		t.Errorf("ParsePeriod() error = %v, wantErr %v", err, ErrInvalidPeriod)
	}
	if p, err := ParsePeriod(3); err != nil || p != 3 {
		t.Errorf("ParsePeriod() = %d, %v", p, err)
	}
}
