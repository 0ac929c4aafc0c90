package explain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fairlens-ai/fairlens/internal/cache"
	"github.com/fairlens-ai/fairlens/internal/model"
)

// Attribution method markers. "unavailable" means no attribution path
// could run for the sample; callers must treat the values as absent.
const (
	MethodKernelApprox   = "shap_kernel_approx"
	MethodLinearExact    = "linear_exact"
	MethodTreeImportance = "tree_importance"
	MethodNativeFallback = "native_fallback"
	MethodUnavailable    = "unavailable"
)

// Attribution holds per-feature contributions for one model decision.
type Attribution struct {
	FeatureNames          []string           `json:"feature_names"`
	FeatureValues         []float64          `json:"feature_values"`
	Attributions          []float64          `json:"attributions"`
	FeatureImportance     map[string]float64 `json:"feature_importance"`
	Prediction            float64            `json:"prediction"`
	PredictionProbability *float64           `json:"prediction_probability,omitempty"`
	BaselineScore         float64            `json:"baseline_score"`
	Method                string             `json:"method"`
	Degraded              bool               `json:"degraded"`
}

// GlobalExplanation aggregates attributions over a sample batch.
type GlobalExplanation struct {
	FeatureNames      []string           `json:"feature_names"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	SamplesUsed       int                `json:"samples_used"`
	Method            string             `json:"method"`
	Degraded          bool               `json:"degraded"`
}

// Explainer computes feature attributions for a fitted classifier.
// The attribution path is chosen once, by capability inspection of the
// model, when the explainer is built.
type Explainer struct {
	model        model.Classifier
	kind         model.Kind
	featureNames []string
	baseline     []float64
	numSamples   int
	cache        *cache.LRUWithTTL[string, *Attribution]
}

// New builds an explainer over a classifier and its background data.
// The background rows anchor the baseline prediction; their column means
// stand in for "feature absent" during coalition sampling.
func New(c model.Classifier, background [][]float64, featureNames []string) (*Explainer, error) {
	if c == nil {
		return nil, fmt.Errorf("explainer needs a model")
	}
	if len(featureNames) == 0 {
		return nil, fmt.Errorf("explainer needs feature names")
	}
	baseline := make([]float64, len(featureNames))
	if len(background) > 0 {
		counts := make([]int, len(featureNames))
		for _, row := range background {
			if len(row) != len(featureNames) {
				return nil, fmt.Errorf("background row has %d features, want %d", len(row), len(featureNames))
			}
			for j, v := range row {
				baseline[j] += v
				counts[j]++
			}
		}
		for j := range baseline {
			if counts[j] > 0 {
				baseline[j] /= float64(counts[j])
			}
		}
	}

	attrCache, err := cache.NewLRUWithTTL[string, *Attribution](1024, 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("attribution cache: %w", err)
	}

	return &Explainer{
		model:        c,
		kind:         model.DetectKind(c),
		featureNames: featureNames,
		baseline:     baseline,
		numSamples:   100,
		cache:        attrCache,
	}, nil
}

// Kind reports the model family the explainer dispatched to.
func (e *Explainer) Kind() model.Kind { return e.kind }

// CacheStats exposes attribution cache counters.
func (e *Explainer) CacheStats() cache.Stats { return e.cache.Stats() }

// ExplainOne attributes a single prediction. It never returns an error:
// any internal failure degrades to the model's native coefficients or
// importances, and to an explicit unavailable marker when the model
// exposes neither.
func (e *Explainer) ExplainOne(sample []float64) *Attribution {
	key := cacheKey(sample)
	if cached, ok := e.cache.Get(key); ok {
		return cached
	}

	attr := e.explain(sample)
	e.cache.Set(key, attr)
	return attr
}

func (e *Explainer) explain(sample []float64) *Attribution {
	if len(sample) != len(e.featureNames) {
		return e.fallback(sample, 0, fmt.Errorf("sample has %d features, want %d", len(sample), len(e.featureNames)))
	}

	prediction, err := e.model.Predict(sample)
	if err != nil {
		return e.fallback(sample, 0, err)
	}
	baselineScore, err := e.model.Predict(e.baseline)
	if err != nil {
		return e.fallback(sample, prediction, err)
	}

	var attributions []float64
	var method string
	switch e.kind {
	case model.KindLinear:
		coefs := e.model.(model.CoefficientsProvider).Coefficients()
		if len(coefs) != len(sample) {
			return e.fallback(sample, prediction, fmt.Errorf("model has %d coefficients, want %d", len(coefs), len(sample)))
		}
		attributions = make([]float64, len(sample))
		for i, w := range coefs {
			attributions[i] = w * (sample[i] - e.baseline[i])
		}
		method = MethodLinearExact
	case model.KindTree:
		imp := e.model.(model.ImportancesProvider).FeatureImportances()
		if len(imp) != len(sample) {
			return e.fallback(sample, prediction, fmt.Errorf("model has %d importances, want %d", len(imp), len(sample)))
		}
		attributions = scaleToSum(imp, prediction-baselineScore)
		method = MethodTreeImportance
	default:
		attributions = e.kernelApprox(sample, prediction, baselineScore)
		method = MethodKernelApprox
	}

	attr := &Attribution{
		FeatureNames:  e.featureNames,
		FeatureValues: append([]float64(nil), sample...),
		Attributions:  attributions,
		Prediction:    prediction,
		BaselineScore: baselineScore,
		Method:        method,
	}
	attr.FeatureImportance = importanceMap(e.featureNames, attributions)
	e.attachProbability(attr, sample)
	return attr
}

// fallback builds the degraded attribution from the model's native
// coefficients or importances. It is the terminal path: it cannot fail.
func (e *Explainer) fallback(sample []float64, prediction float64, _ error) *Attribution {
	attr := &Attribution{
		FeatureNames:  e.featureNames,
		FeatureValues: append([]float64(nil), sample...),
		Prediction:    prediction,
		Degraded:      true,
	}

	var native []float64
	if p, ok := e.model.(model.CoefficientsProvider); ok {
		native = p.Coefficients()
	} else if p, ok := e.model.(model.ImportancesProvider); ok {
		native = p.FeatureImportances()
	}

	if len(native) == len(e.featureNames) {
		attr.Attributions = append([]float64(nil), native...)
		attr.Method = MethodNativeFallback
		attr.FeatureImportance = importanceMap(e.featureNames, native)
	} else {
		attr.Attributions = make([]float64, len(e.featureNames))
		attr.Method = MethodUnavailable
		attr.FeatureImportance = map[string]float64{}
	}
	return attr
}

func (e *Explainer) attachProbability(attr *Attribution, sample []float64) {
	if p, ok := e.model.(model.ProbabilityClassifier); ok {
		if prob, err := p.PredictProba(sample); err == nil {
			attr.PredictionProbability = &prob
		}
	}
}

// ExplainGlobal averages absolute per-sample attributions over a batch.
func (e *Explainer) ExplainGlobal(batch [][]float64) *GlobalExplanation {
	global := &GlobalExplanation{
		FeatureNames:      e.featureNames,
		FeatureImportance: map[string]float64{},
	}
	if len(batch) == 0 {
		global.Method = MethodUnavailable
		global.Degraded = true
		return global
	}

	sums := make([]float64, len(e.featureNames))
	used := 0
	for _, sample := range batch {
		attr := e.ExplainOne(sample)
		if attr.Method == MethodUnavailable {
			global.Degraded = true
			continue
		}
		if attr.Degraded {
			global.Degraded = true
		}
		if global.Method == "" {
			global.Method = attr.Method
		}
		for i, a := range attr.Attributions {
			sums[i] += math.Abs(a)
		}
		used++
	}
	if used == 0 {
		global.Method = MethodUnavailable
		global.Degraded = true
		return global
	}

	total := 0.0
	for i := range sums {
		sums[i] /= float64(used)
		total += sums[i]
	}
	for i, name := range e.featureNames {
		v := sums[i]
		if total > 0 {
			v /= total
		}
		global.FeatureImportance[name] = v
	}
	global.SamplesUsed = used
	return global
}

// rankedFeature pairs a feature with its attribution for ordering.
type rankedFeature struct {
	Name        string
	Value       float64
	Attribution float64
}

// TopFeatures returns the n features with the largest absolute
// attribution, strongest first. Ties break by feature order.
func (attr *Attribution) TopFeatures(n int) []rankedFeature {
	ranked := make([]rankedFeature, 0, len(attr.FeatureNames))
	for i, name := range attr.FeatureNames {
		value := 0.0
		if i < len(attr.FeatureValues) {
			value = attr.FeatureValues[i]
		}
		ranked = append(ranked, rankedFeature{
			Name:        name,
			Value:       value,
			Attribution: attr.Attributions[i],
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Attribution) > math.Abs(ranked[j].Attribution)
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// ToText renders a one-sentence rationale from the top three features.
func (attr *Attribution) ToText() string {
	if attr.Method == MethodUnavailable {
		return "Explanation unavailable for this prediction."
	}

	outcome := "negative"
	if attr.Prediction >= 0.5 {
		outcome = "positive"
	}

	top := attr.TopFeatures(3)
	parts := make([]string, 0, len(top))
	for _, f := range top {
		direction := "decreased"
		if f.Attribution >= 0 {
			direction = "increased"
		}
		parts = append(parts, fmt.Sprintf("%s (value %.4g) %s the score by %.4f",
			f.Name, f.Value, direction, math.Abs(f.Attribution)))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("The model produced a %s prediction; no feature attributions were available.", outcome)
	}

	sentence := fmt.Sprintf("The model produced a %s prediction. Most influential: %s.",
		outcome, strings.Join(parts, "; "))
	if attr.Degraded {
		sentence += " Attribution is approximate (native model importances)."
	}
	return sentence
}

func importanceMap(names []string, attributions []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		if i < len(attributions) {
			out[name] = attributions[i]
		}
	}
	return out
}

// scaleToSum rescales non-negative weights so they total target while
// preserving their relative proportions.
func scaleToSum(weights []float64, target float64) []float64 {
	out := make([]float64, len(weights))
	total := 0.0
	for _, w := range weights {
		total += math.Abs(w)
	}
	if total < 1e-12 {
		return out
	}
	for i, w := range weights {
		out[i] = math.Abs(w) / total * target
	}
	return out
}

func cacheKey(sample []float64) string {
	var b strings.Builder
	for _, v := range sample {
		fmt.Fprintf(&b, "%.6f:", v)
	}
	return b.String()
}
