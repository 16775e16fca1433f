package importer

import (
	"strings"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

// DefaultPerformance is written when a row has an outcome but no recognizable performance label.
// It reproduces what the legacy importer stored; set Options.DefaultPerformance to "" to leave it empty.
const DefaultPerformance = "Bueno"

var (
	outcomeSymbols = map[string]bool{
		grade.OutcomeAchieved:   true,
		grade.OutcomeInProgress: true,
		grade.OutcomeStruggling: true,
	}

	performanceLabels = map[string]string{
		"E":         "Excelente",
		"MB":        "Muy Bueno",
		"B":         "Bueno",
		"R":         "Regular",
		"M":         "Malo",
		"EXCELENTE": "Excelente",
		"MUY BUENO": "Muy Bueno",
		"BUENO":     "Bueno",
		"REGULAR":   "Regular",
		"MALO":      "Malo",
	}

	// cells that carry no information: a student without data for the subject
	placeholderCells = map[string]bool{"": true, "0": true, "-": true, "A": true}

	// short tokens that are never remarks
	reservedTokens = map[string]bool{
		"A": true, "0": true, "-": true,
		"TEA": true, "TEP": true, "TED": true,
		"E": true, "MB": true, "B": true, "R": true, "M": true,
	}
)

type headerVocabulary struct {
	words  []string // matched anywhere in the normalized cell
	tokens []string // matched as whole words of the normalized cell
}

func (hv headerVocabulary) matches(cell string) bool {
	key := core.NormalizeKey(cell)
	if key == "" {
		return false
	}
	for _, w := range hv.words {
		if strings.Contains(key, w) {
			return true
		}
	}
	for _, tok := range strings.Fields(key) {
		for _, t := range hv.tokens {
			if tok == t {
				return true
			}
		}
	}
	return false
}

var (
	// a header row holds at least one of these
	headerMarkers = headerVocabulary{
		words:  []string{"ALUMNO", "ESTUDIANTE", "NOMBRE", "APELLIDO", "STUDENT"},
		tokens: []string{"NRO", "NUMERO", "NAME"},
	}

	rollHeader        = headerVocabulary{tokens: []string{"NRO", "NUMERO", "NO", "N", "ORDEN", "NUMBER"}}
	nameHeader        = headerVocabulary{words: []string{"ALUMNO", "ESTUDIANTE", "NOMBRE", "APELLIDO", "STUDENT"}, tokens: []string{"NAME"}}
	identityHeader    = headerVocabulary{tokens: []string{"DNI", "DOCUMENTO", "DOC"}}
	outcomeHeader     = headerVocabulary{words: []string{"VALORACION", "TRAYECTORIA"}}
	performanceHeader = headerVocabulary{words: []string{"DESEMPENO"}}
	remarksHeader     = headerVocabulary{words: []string{"OBSERVACION", "COMENTARIO"}}
	finalGradeHeader  = headerVocabulary{tokens: []string{"CALIFICACION", "NOTA", "NOTAS", "FINAL"}}
)

func cellKey(s string) string {
	return strings.ToUpper(core.Unquote(s))
}

func isOutcome(s string) bool {
	return outcomeSymbols[cellKey(s)]
}

func performanceLabel(s string) (string, bool) {
	label, ok := performanceLabels[strings.Join(strings.Fields(cellKey(s)), " ")]
	return label, ok
}

func isPlaceholder(s string) bool {
	return placeholderCells[cellKey(s)]
}
