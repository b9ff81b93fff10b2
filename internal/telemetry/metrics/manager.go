package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests           *prometheus.CounterVec
	CounterPredictions        *prometheus.CounterVec
	CounterDegradedPrediction prometheus.Counter
	CounterTrainingRuns       *prometheus.CounterVec
	CounterModelReloads       prometheus.Counter
	CounterHandleRequestPanic prometheus.Counter

	// gauges
	GaugeRequests    prometheus.Gauge
	GaugeLifeSignal  prometheus.Gauge
	GaugeModelLoaded prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
	HistPredictDuration prometheus.Histogram
	HistTrainingRunTime prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("backend", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("backend", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterPredictions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "prescription_predictions",
		Help:      "The total number of prescription recommendation requests",
	}, []string{"outcome"})
	counterDegradedPrediction := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "prescription_predictions_degraded",
		Help:      "Predictions served without the neighbor score (logistic only)",
	})
	counterTrainingRuns := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "prescription_training_runs",
		Help:      "The total number of prescription model training runs",
	}, []string{"outcome"})
	counterModelReloads := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "prescription_model_reloads",
		Help:      "The total number of prescription model reloads",
	})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "gauge_request",
		Help:      "The total number of requests being served at the moment",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "gauge_life_signal",
		Help:      "1 when the service is up and serving",
	})
	gaugeModelLoaded := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "gauge_prescription_model_loaded",
		Help:      "1 when a prescription model artifact is loaded",
	})

	histRequestDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Request serving duration",
		Buckets:   prometheus.DefBuckets,
	})
	histPredictDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "prescription_predict_duration_seconds",
		Help:      "Prescription prediction duration",
		Buckets:   prometheus.DefBuckets,
	})
	histTrainingRunTime := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "prescription_training_run_seconds",
		Help:      "Prescription model training run duration",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	return &Manager{
		CounterRequests:           counterRequests,
		CounterPredictions:        counterPredictions,
		CounterDegradedPrediction: counterDegradedPrediction,
		CounterTrainingRuns:       counterTrainingRuns,
		CounterModelReloads:       counterModelReloads,
		CounterHandleRequestPanic: counterHandleRequestPanic,
		GaugeRequests:             gaugeRequests,
		GaugeLifeSignal:           gaugeLifeSignal,
		GaugeModelLoaded:          gaugeModelLoaded,
		HistRequestDuration:       histRequestDuration,
		HistPredictDuration:       histPredictDuration,
		HistTrainingRunTime:       histTrainingRunTime,
	}
}
