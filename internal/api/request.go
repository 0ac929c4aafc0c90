package api

import "github.com/fairlens-ai/fairlens/internal/model"

// SubmitRequest is the wire form of an audit submission. Rows are cell
// strings in column order; the optional numeric features and model spec
// enable the explainability and model-parity paths.
type SubmitRequest struct {
	Columns             []string          `json:"columns"`
	Rows                [][]string        `json:"rows"`
	LabelColumn         string            `json:"label_column"`
	ProtectedAttributes []string          `json:"protected_attributes"`
	FeatureNames        []string          `json:"feature_names,omitempty"`
	Features            [][]float64       `json:"features,omitempty"`
	Model               *model.Spec       `json:"model,omitempty"`
	Prompts             []string          `json:"prompts,omitempty"`
	ReferenceFacts      map[string]string `json:"reference_facts,omitempty"`
}
