package prescription

import (
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogisticModel is one binary logistic regression: P(tag|x) =
// sigmoid(w.x + b).
type LogisticModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

func (m *LogisticModel) proba(x []float64) float64 {
	return sigmoid(floats.Dot(m.Weights, x) + m.Bias)
}

// OneVsRestLogistic holds one independent binary logistic model per
// vocabulary tag, fit with inverse-frequency class reweighting so rare
// tags are not drowned out.
type OneVsRestLogistic struct {
	Models      []LogisticModel `json:"models"`
	NumFeatures int             `json:"num_features"`
}

// FitOneVsRest fits one balanced logistic model per label column of y
// on the transformed features x.
func FitOneVsRest(x, y *mat.Dense) *OneVsRestLogistic {
	_, numFeatures := x.Dims()
	rows, numLabels := y.Dims()

	models := make([]LogisticModel, numLabels)
	labels := make([]float64, rows)
	for j := 0; j < numLabels; j++ {
		mat.Col(labels, j, y)
		models[j] = fitLogistic(x, labels)
	}

	return &OneVsRestLogistic{
		Models:      models,
		NumFeatures: numFeatures,
	}
}

// PredictProba returns the per-tag probabilities for one transformed
// feature row, in label column order.
func (ovr *OneVsRestLogistic) PredictProba(x []float64) []float64 {
	probas := make([]float64, len(ovr.Models))
	for j := range ovr.Models {
		probas[j] = ovr.Models[j].proba(x)
	}
	return probas
}

// fitLogistic minimizes the balanced-class-weighted log loss with a
// small L2 penalty, using L-BFGS. The parameter vector packs the
// weights first and the bias last.
func fitLogistic(x *mat.Dense, labels []float64) LogisticModel {
	rows, numFeatures := x.Dims()

	var numPos int
	for _, v := range labels {
		if v > 0.5 {
			numPos++
		}
	}
	numNeg := rows - numPos

	// a label column with one class only has nothing to separate;
	// pin the model to that class
	if numPos == 0 {
		return LogisticModel{Weights: make([]float64, numFeatures), Bias: -20}
	}
	if numNeg == 0 {
		return LogisticModel{Weights: make([]float64, numFeatures), Bias: 20}
	}

	// balanced reweighting: each class contributes equally in total
	posWeight := float64(rows) / (2 * float64(numPos))
	negWeight := float64(rows) / (2 * float64(numNeg))
	sumWeights := posWeight*float64(numPos) + negWeight*float64(numNeg)
	l2 := 1.0 / float64(rows)

	sampleWeight := func(i int) float64 {
		if labels[i] > 0.5 {
			return posWeight
		}
		return negWeight
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			weights, bias := params[:numFeatures], params[numFeatures]
			var loss float64
			for i := 0; i < rows; i++ {
				p := sigmoid(floats.Dot(weights, x.RawRowView(i)) + bias)
				p = clip(p, 1e-12, 1-1e-12)
				if labels[i] > 0.5 {
					loss -= sampleWeight(i) * math.Log(p)
				} else {
					loss -= sampleWeight(i) * math.Log(1-p)
				}
			}
			loss /= sumWeights
			for _, w := range weights {
				loss += 0.5 * l2 * w * w
			}
			return loss
		},
		Grad: func(grad, params []float64) {
			weights, bias := params[:numFeatures], params[numFeatures]
			for k := range grad {
				grad[k] = 0
			}
			for i := 0; i < rows; i++ {
				row := x.RawRowView(i)
				p := sigmoid(floats.Dot(weights, row) + bias)
				residual := sampleWeight(i) * (p - labels[i])
				for j := 0; j < numFeatures; j++ {
					grad[j] += residual * row[j]
				}
				grad[numFeatures] += residual
			}
			for k := range grad {
				grad[k] /= sumWeights
			}
			for j := 0; j < numFeatures; j++ {
				grad[j] += l2 * weights[j]
			}
		},
	}

	initParams := make([]float64, numFeatures+1)
	result, err := optimize.Minimize(problem, initParams, nil, &optimize.LBFGS{})
	if err != nil {
		// line search failures this close to the optimum are benign;
		// keep whatever parameters the optimizer reached
		log.Warnf("logistic fit did not fully converge: %s", err)
	}
	params := initParams
	if result != nil {
		params = result.X
	}

	weights := make([]float64, numFeatures)
	copy(weights, params[:numFeatures])
	return LogisticModel{Weights: weights, Bias: params[numFeatures]}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
