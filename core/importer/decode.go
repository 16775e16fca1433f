package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Record is one non-blank CSV record and the line it starts on.
type Record struct {
	Line  int
	Cells []string
}

// Decode transcodes `data` to UTF-8. A byte order mark selects the encoding and is stripped;
// otherwise valid UTF-8 is kept as is and anything else is read as Windows-1252 (a superset of ISO-8859-1).
func Decode(data []byte) ([]byte, error) {
	var fallback transform.Transformer = transform.Nop
	if !utf8.Valid(data) {
		fallback = charmap.Windows1252.NewDecoder()
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return nil, errors.Wrap(err, "decoding file")
	}
	return out, nil
}

// ReadRecords decodes `data` and splits it into CSV records.
// Quotes are parsed leniently, rows may have any number of cells and blank rows are dropped.
func ReadRecords(data []byte) ([]Record, error) {
	decoded, err := Decode(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(decoded))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var records []Record
	for {
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading CSV")
		}
		if isBlank(cells) {
			continue
		}
		line, _ := r.FieldPos(0)
		records = append(records, Record{Line: line, Cells: cells})
	}
	return records, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellsOf(records []Record) [][]string {
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec.Cells
	}
	return rows
}
