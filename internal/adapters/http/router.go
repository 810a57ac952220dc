package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/hybrid-retriever/internal/config"
	"github.com/kirillkom/hybrid-retriever/internal/core/ports"
	"github.com/kirillkom/hybrid-retriever/internal/observability/metrics"
)

const serviceName = "api"

// Dependencies carries the inbound services the router exposes. Metrics
// and Logger are optional; nil disables the corresponding middleware.
type Dependencies struct {
	Retrieval ports.RetrievalService
	Answer    ports.AnswerService
	Ingestor  ports.DocumentIngestor
	Reader    ports.DocumentReader
	Lister    ports.DocumentLister
	Metrics   *metrics.HTTPServerMetrics
	Logger    *slog.Logger
}

type Router struct {
	retrieval ports.RetrievalService
	answer    ports.AnswerService
	ingestor  ports.DocumentIngestor
	reader    ports.DocumentReader
	lister    ports.DocumentLister
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
	validator *requestValidator

	retrieveTopK int

	openAICompatAPIKey           string
	openAICompatModelID          string
	openAICompatContextMessages  int
	openAICompatStreamChunkChars int

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		retrieval: deps.Retrieval,
		answer:    deps.Answer,
		ingestor:  deps.Ingestor,
		reader:    deps.Reader,
		lister:    deps.Lister,
		metrics:   deps.Metrics,
		logger:    logger,
		validator: newRequestValidator(),

		retrieveTopK: cfg.RetrievalTopK,

		openAICompatAPIKey:           cfg.OpenAICompatAPIKey,
		openAICompatModelID:          cfg.OpenAICompatModelID,
		openAICompatContextMessages:  cfg.OpenAICompatContextMessages,
		openAICompatStreamChunkChars: cfg.OpenAICompatStreamChunkChars,

		rateLimitRPS:   cfg.APIRateLimitRPS,
		rateLimitBurst: cfg.APIRateLimitBurst,
		maxInFlight:    cfg.APIMaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	mux.HandleFunc("/v1/rag/query", rt.queryRAG)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/models", rt.listModels)
	mux.HandleFunc("/v1/chat/completions", rt.chatCompletions)

	// Innermost first: validation sees the request exactly as handlers
	// will; traffic control and logging wrap everything.
	var handler http.Handler = mux
	handler = rt.validator.middleware(handler)
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, defaultBackpressureWait)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rate.Limit(rt.rateLimitRPS), rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

const defaultBackpressureWait = 50 * time.Millisecond
