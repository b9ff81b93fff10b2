package prescription

// ArtifactVersion goes into the metadata of every bundle a trainer
// writes. Bump on breaking changes to features, vocabulary or model
// serialization.
const ArtifactVersion = "ml-tags-1.0.0"

// hybrid score weights, logistic vs neighbor signal
const (
	logisticScoreWeight = 0.7
	neighborScoreWeight = 0.3
)

// probability clipping bounds, avoids degenerate log-scale use downstream
const (
	probaClipLo = 1e-9
	probaClipHi = 1 - 1e-9
)

// CVResults carries the cross-validation estimate of generalization,
// averaged over folds.
type CVResults struct {
	MicroF1 float64 `json:"cv_micro_f1"`
	MacroF1 float64 `json:"cv_macro_f1"`
}

// Meta is the human-readable part of the artifact bundle, stored as
// JSON. Tags is the exact label column order the models were fit
// with; the store refuses bundles whose tag list does not match the
// compiled vocabulary.
type Meta struct {
	Version     string    `json:"version"`
	Tags        []TagID   `json:"tags"`
	NumFeatures []string  `json:"num_features"`
	CatFeatures []string  `json:"cat_features"`
	BMIBins     []float64 `json:"bmi_bins"`
	CVResults   CVResults `json:"cv_results"`
	NSamples    int       `json:"n_samples"`
}

// Artifact is the versioned model bundle: everything the inference
// service needs to serve predictions without retraining. Immutable
// after creation; a reload swaps the whole bundle at once.
type Artifact struct {
	Preprocessor *Preprocessor
	Classifier   *OneVsRestLogistic
	Neighbors    *KNNModel
	Meta         Meta
}
