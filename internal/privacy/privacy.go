package privacy

import (
	"sort"
	"strings"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/internal/dataset"
)

// Engine scans a dataset for PII exposure, quasi-identifier columns, and
// uniqueness-based re-identification risk, and separately scores free-text
// model outputs for PII leakage and training-data leakage.
type Engine struct {
	scanner *Scanner

	// HighUniqueness and MediumUniqueness are the per-column distinct
	// ratio thresholds; MediumUniqueness is informational only.
	HighUniqueness   float64
	MediumUniqueness float64

	// CombinedThreshold flags re-identification risk from the combined
	// uniqueness of the first CombinedColumns eligible columns. The fixed
	// column count is preserved for compatibility with prior audits; it
	// is a known limitation, not a column-selection policy.
	CombinedThreshold float64
	CombinedColumns   int

	// LeakageThreshold flags the token-level training-data leakage ratio
	// in model outputs.
	LeakageThreshold float64
}

// NewEngine returns an engine with the standard thresholds.
func NewEngine() *Engine {
	return &Engine{
		scanner:           NewScanner(),
		HighUniqueness:    0.9,
		MediumUniqueness:  0.5,
		CombinedThreshold: 0.8,
		CombinedColumns:   3,
		LeakageThreshold:  0.1,
	}
}

// ColumnFinding is the PII scan result for one text column.
type ColumnFinding struct {
	Column        string         `json:"column"`
	Patterns      []PatternCount `json:"patterns,omitempty"`
	FirstNameHits int            `json:"first_name_hits,omitempty"`
	LastNameHits  int            `json:"last_name_hits,omitempty"`
}

// UniquenessLevel classifies a column's distinct-value ratio.
type UniquenessLevel string

const (
	UniquenessNone   UniquenessLevel = "none"
	UniquenessMedium UniquenessLevel = "medium"
	UniquenessHigh   UniquenessLevel = "high"
)

// ColumnUniqueness is the distinct-value ratio of one column.
type ColumnUniqueness struct {
	Column string          `json:"column"`
	Ratio  float64         `json:"ratio"`
	Level  UniquenessLevel `json:"level"`
}

// QICategory groups quasi-identifier columns under one taxonomy category.
type QICategory struct {
	Category string   `json:"category"`
	Columns  []string `json:"columns"`
}

// DatasetReport is the privacy analysis of one dataset.
type DatasetReport struct {
	PIIFindings        []ColumnFinding    `json:"pii_detected,omitempty"`
	QuasiIdentifiers   []string           `json:"quasi_identifiers"`
	QICategories       []QICategory       `json:"quasi_identifier_categories,omitempty"`
	Uniqueness         []ColumnUniqueness `json:"uniqueness_risk"`
	CombinedColumns    []string           `json:"combined_columns,omitempty"`
	CombinedUniqueness float64            `json:"combined_uniqueness"`
	CombinedDefined    bool               `json:"combined_defined"`
	Reidentification   bool               `json:"reidentification_risk"`
	Recommendations    []string           `json:"recommendations"`
}

// PIIDetected reports whether any column carried a PII finding.
func (r *DatasetReport) PIIDetected() bool { return len(r.PIIFindings) > 0 }

// quasiIdentifierTaxonomy maps category names to column-name keywords. A
// column is a quasi-identifier when its lowercased name contains any keyword.
var quasiIdentifierTaxonomy = []struct {
	category string
	keywords []string
}{
	{"age", []string{"age", "birth_year", "dob"}},
	{"location", []string{"zip", "zipcode", "city", "state", "address", "location"}},
	{"demographic", []string{"gender", "race", "ethnicity", "marital_status"}},
	{"professional", []string{"job_title", "employer", "salary", "income"}},
	{"temporal", []string{"date", "timestamp", "time"}},
}

// AnalyzeDataset runs all dataset sub-analyses. It never fails: a dataset
// with no text or numeric columns simply yields empty findings.
func (e *Engine) AnalyzeDataset(ds *dataset.Dataset) *DatasetReport {
	report := &DatasetReport{}
	if ds == nil {
		report.Recommendations = e.recommendations(report)
		return report
	}

	report.PIIFindings = e.detectPII(ds)
	report.QuasiIdentifiers, report.QICategories = e.detectQuasiIdentifiers(ds)
	e.analyzeUniqueness(ds, report)
	report.Recommendations = e.recommendations(report)
	return report
}

// detectPII scans every text column's concatenated cell values against the
// fixed patterns and the name lexicon. Concatenation makes the result
// independent of row order.
func (e *Engine) detectPII(ds *dataset.Dataset) []ColumnFinding {
	var findings []ColumnFinding
	for _, col := range ds.Columns() {
		if col.Kind() != dataset.KindText {
			continue
		}
		text := strings.Join(col.Values(), " ")
		patterns := e.scanner.CountMatches(text)
		first, last := e.scanner.NameHits(text)
		if len(patterns) == 0 && first == 0 && last == 0 {
			continue
		}
		findings = append(findings, ColumnFinding{
			Column:        col.Name(),
			Patterns:      patterns,
			FirstNameHits: first,
			LastNameHits:  last,
		})
	}
	return findings
}

// detectQuasiIdentifiers matches lowercased column names against the
// taxonomy, independent of column content. The flat list is deduplicated and
// sorted.
func (e *Engine) detectQuasiIdentifiers(ds *dataset.Dataset) ([]string, []QICategory) {
	seen := make(map[string]bool)
	var categories []QICategory
	for _, entry := range quasiIdentifierTaxonomy {
		var cols []string
		for _, name := range ds.ColumnNames() {
			lower := strings.ToLower(name)
			for _, kw := range entry.keywords {
				if strings.Contains(lower, kw) {
					cols = append(cols, name)
					seen[name] = true
					break
				}
			}
		}
		if len(cols) > 0 {
			categories = append(categories, QICategory{Category: entry.category, Columns: cols})
		}
	}

	flat := make([]string, 0, len(seen))
	for name := range seen {
		flat = append(flat, name)
	}
	sort.Strings(flat)
	return flat, categories
}

// analyzeUniqueness computes per-column distinct ratios and the combined
// uniqueness of the first CombinedColumns eligible columns in original
// order.
func (e *Engine) analyzeUniqueness(ds *dataset.Dataset, report *DatasetReport) {
	var eligible []string
	for _, col := range ds.Columns() {
		ratio := api.Round4(col.DistinctRatio())
		level := UniquenessNone
		if ratio > e.HighUniqueness {
			level = UniquenessHigh
		} else if ratio > e.MediumUniqueness {
			level = UniquenessMedium
		}
		report.Uniqueness = append(report.Uniqueness, ColumnUniqueness{
			Column: col.Name(),
			Ratio:  ratio,
			Level:  level,
		})
		eligible = append(eligible, col.Name())
	}

	if len(eligible) > e.CombinedColumns {
		eligible = eligible[:e.CombinedColumns]
	}
	if len(eligible) < 2 || ds.NumRows() == 0 {
		return
	}

	combined, err := ds.CombinationUniqueness(eligible)
	if err != nil {
		return
	}
	report.CombinedColumns = eligible
	report.CombinedUniqueness = api.Round4(combined)
	report.CombinedDefined = true
	report.Reidentification = report.CombinedUniqueness > e.CombinedThreshold
}

// generalRecommendations are always present regardless of findings.
var generalRecommendations = []string{
	"Implement differential privacy for model training",
	"Use secure multi-party computation for sensitive data",
	"Schedule regular privacy audits and monitoring",
}

// recommendations builds the deterministic rule-driven recommendation list.
func (e *Engine) recommendations(report *DatasetReport) []string {
	var recs []string
	if report.PIIDetected() {
		recs = append(recs,
			"Remove or encrypt detected PII before model training",
			"Consider data anonymization techniques",
		)
	}
	if len(report.QuasiIdentifiers) > 0 {
		recs = append(recs,
			"Apply k-anonymity or l-diversity to quasi-identifiers",
			"Consider generalization or suppression of sensitive attributes",
		)
	}
	for _, u := range report.Uniqueness {
		if u.Level == UniquenessHigh {
			recs = append(recs,
				"Reduce granularity of highly unique columns",
				"Consider data aggregation or binning",
			)
			break
		}
	}
	return append(recs, generalRecommendations...)
}
