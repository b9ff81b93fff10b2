package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fitlifekr/backend/internal/middleware"
	"github.com/fitlifekr/backend/internal/telemetry/tracing"
	"github.com/fitlifekr/backend/internal/users"
	"github.com/fitlifekr/backend/pkg"

	"github.com/coocood/freecache"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=prescription_test

type recommender interface {
	Predict(ctx context.Context, query PredictionQuery) ([]Candidate, error)
	Reload(ctx context.Context) error
}

type trainRunner interface {
	Run(ctx context.Context) (*Meta, error)
	InProgress() bool
}

type userProvider interface {
	Get(ctx context.Context, seq int) (*users.User, error)
}

type RecommendRequest struct {
	HeightCm float64  `json:"heightCm"`
	WeightKg float64  `json:"weightKg"`
	TopK     *int     `json:"topK,omitempty"`
	ConfThr  *float64 `json:"confThr,omitempty"`
}

type RecommendResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type TrainAcceptedResponse struct {
	Status string `json:"status"`
}

type HandlerParams struct {
	Service      recommender
	Trainer      trainRunner
	Users        userProvider
	DefaultThr   float64
	CacheSeconds int
}

// Handler exposes the prescription recommendation routes. Prediction
// results for a fixed artifact are deterministic, so a small cache in
// front of the service is safe; it is flushed on every reload.
type Handler struct {
	service      recommender
	trainer      trainRunner
	users        userProvider
	cache        *freecache.Cache
	defaultThr   float64
	cacheSeconds int
}

func NewHandler(params HandlerParams) *Handler {
	megabyte := 1024 * 1024
	defaultThr := params.DefaultThr
	if defaultThr == 0 {
		defaultThr = DefaultConfidenceTr
	}
	return &Handler{
		service:      params.Service,
		trainer:      params.Trainer,
		users:        params.Users,
		cache:        freecache.NewCache(megabyte),
		defaultThr:   defaultThr,
		cacheSeconds: params.CacheSeconds,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router, trainLimiter middleware.RequestRateLimiter, trainPerHour int) {
	router.HandleFunc("/prescription/recommend", handler.HandleRecommend).
		Methods("POST", "OPTIONS").Name("prescription-recommend")
	router.HandleFunc("/prescription/recommend/{userSeq}", handler.HandleRecommendForUser).
		Methods("GET", "OPTIONS").Name("prescription-recommend-user")

	trainRoute := http.HandlerFunc(handler.HandleTrain)
	if trainLimiter != nil {
		router.Handle(
			"/prescription/train",
			middleware.RateLimit(trainLimiter, "prescription-train", trainPerHour)(trainRoute),
		).Methods("POST", "OPTIONS").Name("prescription-train")
	} else {
		router.Handle("/prescription/train", trainRoute).
			Methods("POST", "OPTIONS").Name("prescription-train")
	}
}

func (handler *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.prescription.recommend")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("recommend, unmarshal json params: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	query := PredictionQuery{
		HeightCm:            req.HeightCm,
		WeightKg:            req.WeightKg,
		TopK:                DefaultTopK,
		ConfidenceThreshold: handler.defaultThr,
	}
	if req.TopK != nil {
		query.TopK = *req.TopK
	}
	if req.ConfThr != nil {
		query.ConfidenceThreshold = *req.ConfThr
	}

	handler.recommend(ctx, w, query)
}

func (handler *Handler) HandleRecommendForUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.prescription.recommendForUser")
	defer span.End()

	vars := mux.Vars(r)
	userSeq, err := strconv.Atoi(vars["userSeq"])
	if err != nil {
		http.Error(w, "error, user seq NaN", http.StatusBadRequest)
		return
	}

	topK := DefaultTopK
	if topKStr := r.URL.Query().Get("topK"); topKStr != "" {
		topK, err = strconv.Atoi(topKStr)
		if err != nil {
			http.Error(w, "error, topK NaN", http.StatusBadRequest)
			return
		}
	}

	user, err := handler.users.Get(ctx, userSeq)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("recommend for user %d, get user: %s", userSeq, err)
		http.Error(w, "failed to get user", http.StatusInternalServerError)
		return
	}

	handler.recommend(ctx, w, PredictionQuery{
		HeightCm:            user.HeightCm,
		WeightKg:            user.WeightKg,
		TopK:                topK,
		ConfidenceThreshold: handler.defaultThr,
	})
}

func (handler *Handler) recommend(ctx context.Context, w http.ResponseWriter, query PredictionQuery) {
	cacheKey := []byte(fmt.Sprintf(
		"rec::%.2f::%.2f::%d::%.3f",
		query.HeightCm, query.WeightKg, query.TopK, query.ConfidenceThreshold,
	))
	if handler.cacheSeconds > 0 {
		if cached, err := handler.cache.Get(cacheKey); err == nil {
			pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cached)
			return
		}
	}

	candidates, err := handler.service.Predict(ctx, query)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrModelUnavailable):
			http.Error(w, "model unavailable, train it first", http.StatusServiceUnavailable)
		default:
			log.Errorf("recommend [h=%.1f, w=%.1f]: %s", query.HeightCm, query.WeightKg, err)
			http.Error(w, "recommendation failed", http.StatusInternalServerError)
		}
		return
	}

	respJson, err := json.Marshal(RecommendResponse{Candidates: candidates})
	if err != nil {
		log.Errorf("failed to marshal recommendations: %s", err)
		http.Error(w, "recommendation failed", http.StatusInternalServerError)
		return
	}

	if handler.cacheSeconds > 0 {
		if err := handler.cache.Set(cacheKey, respJson, handler.cacheSeconds); err != nil {
			log.Tracef("failed to cache recommendation: %s", err)
		}
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

// HandleTrain kicks off a training run in the background and responds
// immediately. On success the new bundle is published via a service
// reload and the prediction cache is flushed.
func (handler *Handler) HandleTrain(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.prescription.train")
	defer span.End()

	if handler.trainer.InProgress() {
		http.Error(w, "training already in progress", http.StatusConflict)
		return
	}

	go func() {
		// detached from the request context on purpose: the run must
		// survive the client disconnecting
		ctx := context.Background()
		meta, err := handler.trainer.Run(ctx)
		if err != nil {
			if errors.Is(err, ErrTrainingInProgress) {
				log.Warnf("training run skipped: %s", err)
				return
			}
			log.Errorf("training run failed: %s", err)
			return
		}
		log.Infof(
			"training run done: n_samples=%d, cv_micro_f1=%.4f, cv_macro_f1=%.4f",
			meta.NSamples, meta.CVResults.MicroF1, meta.CVResults.MacroF1,
		)

		if err := handler.service.Reload(ctx); err != nil {
			log.Errorf("reload after training failed: %s", err)
			return
		}
		handler.cache.Clear()
	}()

	respJson, err := json.Marshal(TrainAcceptedResponse{Status: "training started"})
	if err != nil {
		log.Errorf("failed to marshal train response: %s", err)
		http.Error(w, "failed to start training", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusAccepted)
}
