package student

import (
	"testing"

	"github.com/pkg/errors"
)

var pool = []Student{
	{ID: 7, GivenName: "Renzo", Surname: "Alitta", IdentityNumber: "44.555.666"},
	{ID: 3, GivenName: "Alma", Surname: "Acosta"},
	{ID: 5, GivenName: "Bruno", Surname: "Acosta"},
	{ID: 9, GivenName: "María José", Surname: "Gómez Peña"},
	{ID: 11, GivenName: "Lucas", Surname: "Fernández", Retaking: true},
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(pool, 0)

	tests := []struct {
		name         string
		input        string
		identity     string
		wantID       int
		wantStrategy Strategy
		wantErr      error
	}{
		{name: "identity number", input: "whoever", identity: "44555666", wantID: 7, wantStrategy: StrategyIdentity},
		{name: "identity miss falls back to name", input: "ACOSTA, Alma", identity: "1", wantID: 3, wantStrategy: StrategyExact},
		{name: "surname comma given", input: "ACOSTA, Alma", wantID: 3, wantStrategy: StrategyExact},
		{name: "same surname other given", input: "Acosta, Bruno", wantID: 5, wantStrategy: StrategyExact},
		{name: "given surname", input: "alma acosta", wantID: 3, wantStrategy: StrategyExact},
		{name: "accents and quotes", input: `"GOMEZ PEÑA, Maria Jose"`, wantID: 9, wantStrategy: StrategyExact},
		{name: "partial reordered", input: "PEÑA MARIA JOSE", wantID: 9, wantStrategy: StrategyToken},
		{name: "retaking roster", input: "Fernandez Lucas", wantID: 11, wantStrategy: StrategyExact},
		{name: "typo", input: "ALLITTA, Renso", wantID: 7, wantStrategy: StrategySimilarity},
		{name: "unknown", input: "Zapata, Ignacio", wantErr: ErrNoMatch},
		{name: "empty", input: "  ", wantErr: ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Match(tt.input, tt.identity)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("Match() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got.Student.ID != tt.wantID {
				t.Errorf("Match() student = %d, want %d", got.Student.ID, tt.wantID)
			}
			if got.Strategy != tt.wantStrategy {
				t.Errorf("Match() strategy = %q, want %q", got.Strategy, tt.wantStrategy)
			}
		})
	}
}

func TestMatcher_Threshold(t *testing.T) {
	m := NewMatcher(pool, 0)
	if m.Threshold() != DefaultThreshold {
		t.Fatalf("Threshold() = %v, want %v", m.Threshold(), DefaultThreshold)
	}

	// "ACOSTA ALMX" scores 90.9 against "ACOSTA ALMA": accepted at 85, rejected at 95.
	got, err := m.Match("Acosta Almx", "")
	if err != nil || got.Student.ID != 3 {
		t.Fatalf("Match() = %+v, %v; want student 3", got, err)
	}
	if got.Candidate.Score <= DefaultThreshold {
		t.Errorf("Match() score = %v, want > %v", got.Candidate.Score, DefaultThreshold)
	}

	strict := NewMatcher(pool, 95)
	diag, err := strict.Match("Acosta Almx", "")
	if errors.Cause(err) != ErrNoMatch {
		t.Fatalf("Match() error = %v, wantErr %v", err, ErrNoMatch)
	}
	if diag.Candidate.StudentID != 3 || diag.Candidate.Score > 95 {
		t.Errorf("Match() diagnostics = %+v, want best candidate 3 scoring <= 95", diag.Candidate)
	}
}

func TestMatcher_NeverAcceptsAtOrBelowThreshold(t *testing.T) {
	m := NewMatcher(pool, 0)
	inputs := []string{"Acosta Alx", "Perez Juan", "ALI", "Gomez", "Fernand Luc", "Ren Alitta Zz"}
	for _, in := range inputs {
		got, err := m.Match(in, "")
		if err == nil && got.Strategy == StrategySimilarity && got.Candidate.Score <= DefaultThreshold {
			t.Errorf("Match(%q) accepted score %v", in, got.Candidate.Score)
		}
	}
}

func TestMatcher_TieGoesToLowestID(t *testing.T) {
	twins := []Student{
		{ID: 20, GivenName: "Juan", Surname: "Perez"},
		{ID: 4, GivenName: "Juan", Surname: "Perez"},
	}
	got, err := NewMatcher(twins, 0).Match("Perez, Juan", "")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if got.Student.ID != 4 {
		t.Errorf("Match() student = %d, want 4", got.Student.ID)
	}
}

func TestMatcher_DeduplicatesPool(t *testing.T) {
	m := NewMatcher(append([]Student{{ID: 3, GivenName: "Alma", Surname: "Acosta", Retaking: true}}, pool...), 0)
	if m.Len() != len(pool) {
		t.Errorf("Len() = %d, want %d", m.Len(), len(pool))
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{a: "ACOSTA ALMA", b: "ACOSTA ALMA", want: 100},
		{a: "Ñandú", b: "NANDU", want: 100},
		{a: "", b: "ACOSTA", want: 0},
		{a: "ABCD", b: "WXYZ", want: 0},
		{a: "AB", b: "ABCD", want: 200.0 / 3},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if rev := Similarity(tt.b, tt.a); rev != got {
			t.Errorf("Similarity(%q, %q) = %v, not symmetric with %v", tt.b, tt.a, rev, got)
		}
	}
}
