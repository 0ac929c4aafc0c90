package api

import (
	"crypto/sha256"
	"encoding/hex"
)

// Status is the overall audit verdict.
type Status string

const (
	StatusPassed Status = "PASSED"
	StatusFailed Status = "FAILED"
)

// RiskTier classifies the audit's aggregate risk.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// rank orders tiers so escalation never downgrades.
func (r RiskTier) rank() int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}

// Escalate returns the higher of the two tiers.
func (r RiskTier) Escalate(to RiskTier) RiskTier {
	if to.rank() > r.rank() {
		return to
	}
	return r
}

// IssueCategory tags an audit issue for direct score lookup. Scoring is a
// category lookup, not keyword matching on issue text.
type IssueCategory string

const (
	IssueBias       IssueCategory = "bias"
	IssuePrivacy    IssueCategory = "privacy"
	IssueFactuality IssueCategory = "factuality"
)

// Issue is one audit finding: a scoring category plus a human-readable
// message.
type Issue struct {
	Category IssueCategory `json:"category"`
	Message  string        `json:"message"`
}

// Summary is the derived verdict over all completed stages. It is a pure
// value: identical stage payloads always derive an identical Summary.
type Summary struct {
	OverallStatus   Status   `json:"overall_status"`
	RiskTier        RiskTier `json:"risk_level"`
	Issues          []Issue  `json:"issues_found"`
	Recommendations []string `json:"recommendations"`
}

// issueWeights are the fixed per-category score deductions. Bias is critical,
// factual reliability is crucial, privacy exposure is important.
var issueWeights = map[IssueCategory]float64{
	IssueBias:       40,
	IssuePrivacy:    20,
	IssueFactuality: 30,
}

// ComplianceScore derives the 0-100 score from the summary's issue list.
// Every issue deducts its category weight; repeated issues of the same
// category deduct repeatedly (repeated flags indicate repeated evidence).
// The score never goes below zero.
func ComplianceScore(s *Summary) float64 {
	score := 100.0
	if s == nil {
		return score
	}
	for _, issue := range s.Issues {
		score -= issueWeights[issue.Category]
	}
	if score < 0 {
		score = 0
	}
	return score
}

// StageError marks a failed analysis stage. The orchestrator records it in
// place of the stage payload and continues with the remaining stages.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func (e *StageError) Error() string {
	return e.Stage + " stage failed: " + e.Message
}

// Round4 rounds to 4 decimal places for stable reporting of group rates.
func Round4(x float64) float64 {
	if x < 0 {
		return float64(int64(x*1e4-0.5)) / 1e4
	}
	return float64(int64(x*1e4+0.5)) / 1e4
}

// ComputeAuditKey derives the idempotency key for an audit submission from
// the raw request bytes. Identical submissions map to the same key so the
// result store can serve duplicates from cache.
func ComputeAuditKey(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}
