package model

import (
	"math"
	"testing"
)

type opaqueModel struct{}

func (opaqueModel) Predict([]float64) (float64, error) { return 0, nil }

func TestDetectKind(t *testing.T) {
	cases := []struct {
		name string
		c    Classifier
		want Kind
	}{
		{"logistic is linear", &Logistic{Weights: []float64{1}}, KindLinear},
		{"stumps are tree", &StumpEnsemble{NumFeatures: 1}, KindTree},
		{"anything else is generic", opaqueModel{}, KindGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectKind(tc.c); got != tc.want {
				t.Errorf("DetectKind = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLogisticPredict(t *testing.T) {
	m := &Logistic{Weights: []float64{2, -1}, Intercept: 0.5}

	p, err := m.PredictProba([]float64{1, 1})
	if err != nil {
		t.Fatalf("PredictProba: %v", err)
	}
	want := 1.0 / (1.0 + math.Exp(-1.5))
	if math.Abs(p-want) > 1e-12 {
		t.Errorf("proba = %v, want %v", p, want)
	}

	if y, _ := m.Predict([]float64{1, 1}); y != 1 {
		t.Errorf("positive score must decide 1, got %v", y)
	}
	if y, _ := m.Predict([]float64{-2, 1}); y != 0 {
		t.Errorf("negative score must decide 0, got %v", y)
	}
	if _, err := m.Predict([]float64{1}); err == nil {
		t.Error("feature count mismatch must be an error")
	}

	coefs := m.Coefficients()
	coefs[0] = 99
	if m.Weights[0] != 2 {
		t.Error("Coefficients must return a copy")
	}
}

func TestStumpEnsemble(t *testing.T) {
	m := &StumpEnsemble{
		NumFeatures: 2,
		Stumps: []Stump{
			{Feature: 0, Threshold: 0.5, LeftValue: 0, RightValue: 1, Weight: 0.75},
			{Feature: 1, Threshold: 0, LeftValue: 1, RightValue: 0, Weight: 0.25},
		},
	}

	// feature 0 above threshold, feature 1 above threshold: 0.75*1 + 0.25*0.
	p, err := m.PredictProba([]float64{1, 1})
	if err != nil {
		t.Fatalf("PredictProba: %v", err)
	}
	if p != 0.75 {
		t.Errorf("proba = %v, want 0.75", p)
	}
	if y, _ := m.Predict([]float64{1, 1}); y != 1 {
		t.Errorf("decision = %v, want 1", y)
	}
	if y, _ := m.Predict([]float64{0, 1}); y != 0 {
		t.Errorf("decision = %v, want 0", y)
	}
	if _, err := m.PredictProba([]float64{1}); err == nil {
		t.Error("feature count mismatch must be an error")
	}

	imp := m.FeatureImportances()
	if len(imp) != 2 || imp[0] != 0.75 || imp[1] != 0.25 {
		t.Errorf("importances = %v, want normalized [0.75 0.25]", imp)
	}

	bad := &StumpEnsemble{NumFeatures: 2, Stumps: []Stump{{Feature: 5, Weight: 1}}}
	if _, err := bad.PredictProba([]float64{0, 0}); err == nil {
		t.Error("out-of-range stump feature must be an error")
	}
}

func TestSpecBuild(t *testing.T) {
	cases := []struct {
		name    string
		spec    Spec
		wantErr bool
		want    Kind
	}{
		{"logistic", Spec{Logistic: &Logistic{Weights: []float64{1}}}, false, KindLinear},
		{"stumps", Spec{Stumps: &StumpEnsemble{NumFeatures: 1}}, false, KindTree},
		{"empty", Spec{}, true, 0},
		{"both families", Spec{Logistic: &Logistic{Weights: []float64{1}}, Stumps: &StumpEnsemble{NumFeatures: 1}}, true, 0},
		{"logistic without weights", Spec{Logistic: &Logistic{}}, true, 0},
		{"stumps without features", Spec{Stumps: &StumpEnsemble{}}, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := tc.spec.Build()
			if tc.wantErr {
				if err == nil {
					t.Fatal("want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got := DetectKind(c); got != tc.want {
				t.Errorf("built kind = %v, want %v", got, tc.want)
			}
		})
	}
}
