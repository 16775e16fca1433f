package importer

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var ordinalRegex = regexp.MustCompile(`(?i)\((\d+)\)\.csv$`)

// ParseOrdinal extracts the subject number of a bulk-import file name: "3º AÑO(12).csv" -> 12.
func ParseOrdinal(name string) (int, error) {
	base := filepath.Base(strings.TrimSpace(name))
	m := ordinalRegex.FindStringSubmatch(base)
	if m == nil {
		return 0, &MappingError{Name: base, Err: ErrBadFileName}
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, &MappingError{Name: base, Err: ErrBadFileName}
	}
	return n, nil
}
