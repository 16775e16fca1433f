package student

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/gradebook/core"
)

// DefaultThreshold is the similarity score (0..100) a fuzzy match must exceed.
const DefaultThreshold = 85.0

var (
	// errors
	ErrNoMatch   = errors.New("student not found")
	ErrEmptyName = errors.New("empty student name")
)

// Strategy names the rule that resolved a Match.
type Strategy string

const (
	StrategyIdentity   Strategy = "identity"
	StrategyExact      Strategy = "exact"
	StrategyToken      Strategy = "token"
	StrategySimilarity Strategy = "similarity"
)

type (
	Match struct {
		Student   Student   `json:"student"`
		Candidate Candidate `json:"candidate"`
		Strategy  Strategy  `json:"strategy"`
	}

	candidate struct {
		student  Student
		identity string
		surname  []string // normalized surname words longer than 3 chars
		given    string
		variants []string // normalized, de-duplicated
	}

	// Matcher resolves free-text names against a fixed candidate pool.
	// Build one per imported file; it is safe for concurrent reads.
	Matcher struct {
		pool      []candidate
		threshold float64
	}
)

// NewMatcher indexes `pool`. A threshold <= 0 uses DefaultThreshold.
func NewMatcher(pool []Student, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	students := make([]Student, len(pool))
	copy(students, pool)
	sort.SliceStable(students, func(i, j int) bool { return students[i].ID < students[j].ID })

	cands := make([]candidate, 0, len(students))
	seen := make(map[int]bool, len(students))
	for _, std := range students {
		if seen[std.ID] { // enrolled and retaking
			continue
		}
		seen[std.ID] = true

		c := candidate{
			student:  std,
			identity: identityKey(std.IdentityNumber),
			given:    core.NormalizeKey(std.GivenName),
		}
		for _, word := range strings.Fields(core.NormalizeKey(std.Surname)) {
			if len(word) > 3 {
				c.surname = append(c.surname, word)
			}
		}
		dedup := make(map[string]bool, 5)
		for _, v := range std.nameVariants() {
			if key := core.NormalizeKey(v); key != "" && !dedup[key] {
				dedup[key] = true
				c.variants = append(c.variants, key)
			}
		}
		cands = append(cands, c)
	}
	return &Matcher{pool: cands, threshold: threshold}
}

func (m *Matcher) Len() int {
	return len(m.pool)
}

func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match resolves `name` (and the optional `identityNumber`) to one student of the pool.
// Rules are tried in order, first success wins: identity number, exact name variant,
// surname word + given name containment, similarity score above the threshold.
// Ties always go to the lowest student id.
// On ErrNoMatch the returned Match carries the best scoring candidate, if any, for diagnostics.
func (m *Matcher) Match(name, identityNumber string) (Match, error) {
	input := core.NormalizeKey(name)
	if input == "" {
		return Match{}, ErrEmptyName
	}

	if id := identityKey(identityNumber); id != "" {
		for _, c := range m.pool {
			if c.identity == id {
				return c.match(StrategyIdentity, 100), nil
			}
		}
	}

	for _, c := range m.pool {
		for _, v := range c.variants {
			if v == input {
				return c.match(StrategyExact, 100), nil
			}
		}
	}

	for _, c := range m.pool {
		if c.given == "" || !strings.Contains(input, c.given) {
			continue
		}
		for _, word := range c.surname {
			if strings.Contains(input, word) {
				return c.match(StrategyToken, Similarity(input, c.variants[0])), nil
			}
		}
	}

	var (
		best      *candidate
		bestScore float64
	)
	for i := range m.pool {
		c := &m.pool[i]
		for _, v := range c.variants {
			if score := similarity(input, v); score > bestScore {
				best, bestScore = c, score
			}
		}
	}
	if best != nil && bestScore > m.threshold {
		return best.match(StrategySimilarity, bestScore), nil
	}

	var diag Match
	if best != nil {
		diag.Candidate = Candidate{StudentID: best.student.ID, DisplayName: best.student.DisplayName(), Score: bestScore}
	}
	return diag, errors.Wrapf(ErrNoMatch, "%q", strings.TrimSpace(name))
}

func (c candidate) match(strategy Strategy, score float64) Match {
	return Match{
		Student:   c.student,
		Candidate: Candidate{StudentID: c.student.ID, DisplayName: c.student.DisplayName(), Score: score},
		Strategy:  strategy,
	}
}

// Similarity returns a symmetric 0..100 score of how alike two names are, after normalization.
func Similarity(a, b string) float64 {
	return similarity(core.NormalizeKey(a), core.NormalizeKey(b))
}

func similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	sa, sb := strings.Split(a, ""), strings.Split(b, "")
	ab := difflib.NewMatcher(sa, sb).Ratio()
	ba := difflib.NewMatcher(sb, sa).Ratio()
	if ba > ab {
		ab = ba
	}
	return ab * 100
}

// identityKey keeps only the letters and digits of an identity number: "12.345.678" -> "12345678".
func identityKey(s string) string {
	return strings.ReplaceAll(core.NormalizeKey(s), " ", "")
}
