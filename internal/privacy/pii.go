package privacy

import (
	"regexp"
	"strings"
)

// PatternKind names one of the fixed PII pattern classes.
type PatternKind string

const (
	PatternEmail      PatternKind = "email"
	PatternPhone      PatternKind = "phone"
	PatternSSN        PatternKind = "ssn"
	PatternCreditCard PatternKind = "credit_card"
	PatternZipcode    PatternKind = "zipcode"
)

// PatternCount is the number of matches of one pattern kind in a scan.
type PatternCount struct {
	Kind  PatternKind `json:"kind"`
	Count int         `json:"count"`
}

type patternDef struct {
	kind PatternKind
	re   *regexp.Regexp
}

// Scanner matches text against the fixed PII patterns and a static lexicon
// of common first and last names. Patterns are kept in a fixed order so scan
// results are deterministic.
type Scanner struct {
	patterns []patternDef
}

// NewScanner compiles the five fixed PII patterns.
func NewScanner() *Scanner {
	return &Scanner{
		patterns: []patternDef{
			{PatternEmail, regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
			{PatternPhone, regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)},
			{PatternSSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
			{PatternCreditCard, regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
			{PatternZipcode, regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)},
		},
	}
}

// CountMatches returns the non-zero match counts per pattern kind, in the
// scanner's fixed pattern order.
func (s *Scanner) CountMatches(text string) []PatternCount {
	var counts []PatternCount
	for _, p := range s.patterns {
		if n := len(p.re.FindAllStringIndex(text, -1)); n > 0 {
			counts = append(counts, PatternCount{Kind: p.kind, Count: n})
		}
	}
	return counts
}

// commonFirstNames and commonLastNames are a small static lexicon used as a
// heuristic signal, counted separately from pattern matches.
var commonFirstNames = []string{
	"john", "mary", "james", "patricia", "robert", "jennifer",
	"michael", "linda", "william", "elizabeth", "david", "barbara",
}

var commonLastNames = []string{
	"smith", "johnson", "williams", "brown", "jones", "garcia",
	"miller", "davis", "rodriguez", "martinez", "hernandez",
}

// NameHits counts how many lexicon first and last names appear in the text,
// case-insensitively. Each lexicon entry counts at most once.
func (s *Scanner) NameHits(text string) (first, last int) {
	lower := strings.ToLower(text)
	for _, name := range commonFirstNames {
		if strings.Contains(lower, name) {
			first++
		}
	}
	for _, name := range commonLastNames {
		if strings.Contains(lower, name) {
			last++
		}
	}
	return first, last
}
