package explain

import "math"

// kernelApprox estimates Shapley values with sampled feature coalitions.
// Coalition membership is deterministic pseudo-random so repeated runs
// over the same sample produce identical attributions.
func (e *Explainer) kernelApprox(sample []float64, prediction, baselineScore float64) []float64 {
	numFeatures := len(sample)
	attributions := make([]float64, numFeatures)

	for i := 0; i < numFeatures; i++ {
		var sumContrib float64
		var count int

		for s := 0; s < e.numSamples; s++ {
			coalition := make([]float64, numFeatures)
			includeTarget := (s % 2) == 0 // Alternate for balance

			for j := 0; j < numFeatures; j++ {
				if j == i {
					if includeTarget {
						coalition[j] = sample[j]
					} else {
						coalition[j] = e.baseline[j]
					}
				} else {
					if (s+j)%3 == 0 {
						coalition[j] = sample[j]
					} else {
						coalition[j] = e.baseline[j]
					}
				}
			}

			coalScore, err := e.model.Predict(coalition)
			if err != nil {
				continue // Skip on error
			}

			if includeTarget {
				sumContrib += coalScore - baselineScore
			} else {
				sumContrib -= coalScore - baselineScore
			}
			count++
		}

		if count > 0 {
			attributions[i] = sumContrib / float64(count)
		}
	}

	// Normalize so the attributions sum to (prediction - baseline).
	sumAttr := 0.0
	for _, a := range attributions {
		sumAttr += a
	}
	targetSum := prediction - baselineScore
	if math.Abs(sumAttr) > 1e-6 {
		scale := targetSum / sumAttr
		for i := range attributions {
			attributions[i] *= scale
		}
	}

	return attributions
}
