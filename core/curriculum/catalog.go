package curriculum

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/gradebook/core"
)

const (
	MinYear = 3
	MaxYear = 7
)

var (
	// errors
	ErrUnknownYear       = errors.New("no subject table for this year")
	ErrUnknownOrdinal    = errors.New("subject number not found in the year's table")
	ErrSubjectNotOffered = errors.New("subject not offered in this course")
	ErrOfferingNotFound  = errors.New("subject offering not found")

	//go:embed catalog.yaml
	defaultCatalogYAML []byte
)

type (
	// Alias rewrites a fragment of an upper-cased, accent-free subject name before it is normalized.
	Alias struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	}

	// Catalog holds the per-year ordinal -> subject name tables.
	Catalog struct {
		aliases  []Alias
		years    map[int]map[int]string
		replacer *strings.Replacer
	}

	Entry struct {
		Ordinal int    `json:"ordinal"`
		Subject string `json:"subject"`
	}

	catalogFile struct {
		Aliases []Alias                `yaml:"aliases"`
		Years   map[int]map[int]string `yaml:"years"`
	}
)

// LoadCatalog reads a YAML catalog from `r`.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var cf catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return nil, errors.Wrap(err, "decoding curriculum catalog")
	}
	return NewCatalog(cf.Years, cf.Aliases...)
}

// LoadCatalogFile reads a YAML catalog from the file at `path`.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening curriculum catalog")
	}
	defer func() { _ = f.Close() }()
	return LoadCatalog(f)
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	cat, err := LoadCatalog(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic(err)
	}
	return cat
}

// NewCatalog builds a Catalog from in-memory tables.
func NewCatalog(years map[int]map[int]string, aliases ...Alias) (*Catalog, error) {
	if len(years) == 0 {
		return nil, errors.New("curriculum catalog has no years")
	}
	cp := make(map[int]map[int]string, len(years))
	for year, table := range years {
		if year < MinYear || year > MaxYear {
			return nil, errors.Errorf("curriculum catalog: year %d out of range %d..%d", year, MinYear, MaxYear)
		}
		t := make(map[int]string, len(table))
		for ord, name := range table {
			if ord <= 0 || strings.TrimSpace(name) == "" {
				return nil, errors.Errorf("curriculum catalog: invalid entry %d for year %d", ord, year)
			}
			t[ord] = name
		}
		cp[year] = t
	}

	oldnew := make([]string, 0, len(aliases)*2)
	for _, a := range aliases {
		if a.From == "" {
			return nil, errors.New("curriculum catalog: empty alias")
		}
		oldnew = append(oldnew, a.From, a.To)
	}
	return &Catalog{aliases: aliases, years: cp, replacer: strings.NewReplacer(oldnew...)}, nil
}

// Key returns the lookup key of a subject name: aliases are applied then the name is normalized.
func (c *Catalog) Key(name string) string {
	s := strings.ToUpper(core.FoldAccents(name))
	return core.NormalizeKey(c.replacer.Replace(s))
}

// Subject returns the canonical subject name of `ordinal` for `year`.
func (c *Catalog) Subject(year, ordinal int) (string, error) {
	table, ok := c.years[year]
	if !ok {
		return "", errors.Wrapf(ErrUnknownYear, "year %d", year)
	}
	name, ok := table[ordinal]
	if !ok {
		return "", errors.Wrapf(ErrUnknownOrdinal, "subject number %d, year %d", ordinal, year)
	}
	return name, nil
}

// Years returns the years that have a table, in ascending order.
func (c *Catalog) Years() []int {
	years := make([]int, 0, len(c.years))
	for y := range c.years {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Entries returns the table for `year` ordered by ordinal.
func (c *Catalog) Entries(year int) ([]Entry, error) {
	table, ok := c.years[year]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownYear, "year %d", year)
	}
	entries := make([]Entry, 0, len(table))
	for ord, name := range table {
		entries = append(entries, Entry{Ordinal: ord, Subject: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Ordinal < entries[j].Ordinal })
	return entries, nil
}
