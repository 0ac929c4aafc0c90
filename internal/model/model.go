package model

import (
	"fmt"
	"math"
)

// Classifier is the minimal contract a caller-supplied binary classifier
// must satisfy. Predict returns the hard 0/1 decision for one encoded
// feature row.
type Classifier interface {
	Predict(features []float64) (float64, error)
}

// ProbabilityClassifier is satisfied by classifiers that also expose the
// positive-class probability.
type ProbabilityClassifier interface {
	PredictProba(features []float64) (float64, error)
}

// CoefficientsProvider marks a linear model: it exposes per-feature
// coefficients usable as a native importance fallback.
type CoefficientsProvider interface {
	Coefficients() []float64
}

// ImportancesProvider marks a tree-based model: it exposes per-feature
// impurity importances.
type ImportancesProvider interface {
	FeatureImportances() []float64
}

// Kind is the closed model-family variant used for explainer dispatch.
// Selection inspects capability markers, never type-name strings.
type Kind int

const (
	KindGeneric Kind = iota
	KindLinear
	KindTree
)

func (k Kind) String() string {
	switch k {
	case KindLinear:
		return "linear"
	case KindTree:
		return "tree"
	default:
		return "generic"
	}
}

// DetectKind classifies a model by its capability markers.
func DetectKind(c Classifier) Kind {
	switch c.(type) {
	case CoefficientsProvider:
		return KindLinear
	case ImportancesProvider:
		return KindTree
	default:
		return KindGeneric
	}
}

// Logistic is a fitted logistic-regression classifier supplied by weights.
type Logistic struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// Predict returns 1 when the positive-class probability is at least 0.5.
func (m *Logistic) Predict(features []float64) (float64, error) {
	p, err := m.PredictProba(features)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// PredictProba returns the sigmoid of the linear score.
func (m *Logistic) PredictProba(features []float64) (float64, error) {
	if len(features) != len(m.Weights) {
		return 0, fmt.Errorf("feature count %d does not match weight count %d", len(features), len(m.Weights))
	}
	z := m.Intercept
	for i, w := range m.Weights {
		z += w * features[i]
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}

// Coefficients exposes the fitted weights.
func (m *Logistic) Coefficients() []float64 {
	out := make([]float64, len(m.Weights))
	copy(out, m.Weights)
	return out
}

// Stump is a single-feature decision rule inside a StumpEnsemble.
type Stump struct {
	Feature    int     `json:"feature"`
	Threshold  float64 `json:"threshold"`
	LeftValue  float64 `json:"left_value"`
	RightValue float64 `json:"right_value"`
	Weight     float64 `json:"weight"`
}

// StumpEnsemble is a fitted additive ensemble of decision stumps.
type StumpEnsemble struct {
	Stumps      []Stump `json:"stumps"`
	NumFeatures int     `json:"num_features"`
}

// Predict returns 1 when the weighted stump votes sum to at least 0.5.
func (m *StumpEnsemble) Predict(features []float64) (float64, error) {
	p, err := m.PredictProba(features)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// PredictProba returns the clamped weighted sum of stump outputs.
func (m *StumpEnsemble) PredictProba(features []float64) (float64, error) {
	if len(features) != m.NumFeatures {
		return 0, fmt.Errorf("feature count %d does not match model's %d", len(features), m.NumFeatures)
	}
	score := 0.0
	for _, s := range m.Stumps {
		if s.Feature < 0 || s.Feature >= len(features) {
			return 0, fmt.Errorf("stump references feature %d out of %d", s.Feature, len(features))
		}
		if features[s.Feature] <= s.Threshold {
			score += s.Weight * s.LeftValue
		} else {
			score += s.Weight * s.RightValue
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

// FeatureImportances sums absolute stump weights per feature, normalized to
// sum to 1 when any weight is present.
func (m *StumpEnsemble) FeatureImportances() []float64 {
	imp := make([]float64, m.NumFeatures)
	total := 0.0
	for _, s := range m.Stumps {
		if s.Feature >= 0 && s.Feature < m.NumFeatures {
			w := math.Abs(s.Weight)
			imp[s.Feature] += w
			total += w
		}
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	return imp
}

// Spec describes a caller-supplied fitted model in a serializable form.
// Exactly one of the family fields must be set.
type Spec struct {
	Logistic *Logistic      `json:"logistic,omitempty"`
	Stumps   *StumpEnsemble `json:"stumps,omitempty"`
}

// Build returns the classifier described by the spec.
func (s *Spec) Build() (Classifier, error) {
	switch {
	case s.Logistic != nil && s.Stumps != nil:
		return nil, fmt.Errorf("model spec sets more than one family")
	case s.Logistic != nil:
		if len(s.Logistic.Weights) == 0 {
			return nil, fmt.Errorf("logistic model needs at least one weight")
		}
		return s.Logistic, nil
	case s.Stumps != nil:
		if s.Stumps.NumFeatures <= 0 {
			return nil, fmt.Errorf("stump ensemble needs a positive feature count")
		}
		return s.Stumps, nil
	default:
		return nil, fmt.Errorf("model spec is empty")
	}
}
