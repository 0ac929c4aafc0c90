package audit

import (
	"time"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/internal/bias"
	"github.com/fairlens-ai/fairlens/internal/explain"
	"github.com/fairlens-ai/fairlens/internal/factual"
	"github.com/fairlens-ai/fairlens/internal/privacy"
)

// DatasetInfo describes the audited dataset.
type DatasetInfo struct {
	Rows                int      `json:"rows"`
	Columns             int      `json:"columns"`
	ColumnNames         []string `json:"column_names"`
	LabelColumn         string   `json:"label_column"`
	ProtectedAttributes []string `json:"protected_attributes"`
}

// BiasStage is the bias-analysis slot of a result. Exactly one of
// Report and Error is set.
type BiasStage struct {
	Report *bias.Report    `json:"report,omitempty"`
	Error  *api.StageError `json:"error,omitempty"`
}

// ExplainStage is the explainability slot. A run without a model is
// recorded as Skipped, not as an error.
type ExplainStage struct {
	Global    *explain.GlobalExplanation `json:"global_explanation,omitempty"`
	Sample    *explain.Attribution       `json:"sample_explanation,omitempty"`
	Rationale string                     `json:"rationale,omitempty"`
	ModelKind string                     `json:"model_kind,omitempty"`
	Skipped   string                     `json:"skipped,omitempty"`
	Error     *api.StageError            `json:"error,omitempty"`
}

// PrivacyStage is the privacy-analysis slot.
type PrivacyStage struct {
	Dataset *privacy.DatasetReport `json:"dataset,omitempty"`
	Error   *api.StageError        `json:"error,omitempty"`
}

// FactualStage is the factuality slot. Runs without prompts or without
// a configured responder are recorded as Skipped.
type FactualStage struct {
	Report  *factual.Report `json:"report,omitempty"`
	Skipped string          `json:"skipped,omitempty"`
	Error   *api.StageError `json:"error,omitempty"`
}

// Result is one complete audit outcome. All four analysis slots are
// always present, possibly carrying error markers; it is an immutable
// value built by a single Run call.
type Result struct {
	AuditID         string       `json:"audit_id"`
	GeneratedAt     time.Time    `json:"generated_at"`
	DatasetInfo     DatasetInfo  `json:"dataset_info"`
	Bias            BiasStage    `json:"bias_analysis"`
	Explainability  ExplainStage `json:"explainability_analysis"`
	Privacy         PrivacyStage `json:"privacy_analysis"`
	Factuality      FactualStage `json:"hallucination_analysis"`
	Summary         api.Summary  `json:"summary"`
	ComplianceScore float64      `json:"compliance_score"`
}
