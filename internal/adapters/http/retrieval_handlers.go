package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

type retrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type ragQueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type ragQueryResponse struct {
	Answer  string                `json:"answer"`
	Sources []domain.RankedResult `json:"sources"`
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	start := time.Now()
	result, err := rt.retrieval.Execute(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRetrieval(serviceName, "retrieve", string(result.Outcome), result.Attempts, len(result.Results), time.Since(start))
		if origin := lastRetrieveOrigin(result.Steps); origin != "" {
			rt.metrics.RecordRerankOrigin(serviceName, origin)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ragQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()
	answer, err := rt.answer.Answer(r.Context(), req.Question, req.TopK)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation(serviceName, "rag_query", len(answer.Sources), time.Since(start))
	}

	writeJSON(w, http.StatusOK, ragQueryResponse{
		Answer:  answer.Text,
		Sources: answer.Sources,
	})
}

// lastRetrieveOrigin reads the ordering origin of the final retrieve
// step; the orchestrator records it in the step detail.
func lastRetrieveOrigin(steps []domain.TraceStep) string {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Kind == domain.StepRetrieve {
			return steps[i].Detail
		}
	}
	return ""
}
