package curriculum

import (
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

// Resolver maps a year's subject ordinals to the offerings of one course.
// It is built once per bulk import and is read-only afterwards.
type Resolver struct {
	catalog *Catalog
	year    int
	index   map[string]int
}

// NewResolver indexes `offerings` by subject key and by upper-cased subject code.
// On key collisions the first offering wins; callers should pass offerings in a stable order.
func NewResolver(catalog *Catalog, year int, offerings []Offering) (*Resolver, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(catalog, "catalog"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "curriculum.NewResolver")
	}
	if _, ok := catalog.years[year]; !ok {
		return nil, errors.Wrapf(ErrUnknownYear, "year %d", year)
	}

	index := make(map[string]int, len(offerings)*2)
	for _, off := range offerings {
		if key := catalog.Key(off.SubjectName); key != "" {
			if _, exists := index[key]; !exists {
				index[key] = off.ID
			}
		}
	}
	for _, off := range offerings {
		if code := core.NormalizeKey(off.SubjectCode); code != "" {
			if _, exists := index[code]; !exists {
				index[code] = off.ID
			}
		}
	}
	return &Resolver{catalog: catalog, year: year, index: index}, nil
}

func (r *Resolver) Year() int {
	return r.year
}

// Resolve returns the binding of `ordinal`. The match on the subject key is exact.
func (r *Resolver) Resolve(ordinal int) (Binding, error) {
	name, err := r.catalog.Subject(r.year, ordinal)
	if err != nil {
		return Binding{Ordinal: ordinal}, err
	}
	id, ok := r.index[r.catalog.Key(name)]
	if !ok {
		return Binding{Ordinal: ordinal, SubjectName: name}, errors.Wrapf(ErrSubjectNotOffered, "%q", name)
	}
	return Binding{Ordinal: ordinal, SubjectName: name, OfferingID: id}, nil
}
