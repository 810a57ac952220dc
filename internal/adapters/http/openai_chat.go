package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const fallbackModelID = "hybrid-retriever-v1"

func (rt *Router) modelID() string {
	if rt.openAICompatModelID != "" {
		return rt.openAICompatModelID
	}
	return fallbackModelID
}

// authorized gates the OpenAI-compatible endpoints with a static bearer
// key; an empty configured key leaves them open.
func (rt *Router) authorized(r *http.Request) bool {
	if rt.openAICompatAPIKey == "" {
		return true
	}
	return isAuthorizedBearerHeader(r.Header.Get("Authorization"), rt.openAICompatAPIKey)
}

func (rt *Router) listModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !rt.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, modelListResponse{
		Object: "list",
		Data: []modelObject{{
			ID:      rt.modelID(),
			Object:  "model",
			OwnedBy: "hybrid-retriever",
			Created: time.Now().Unix(),
		}},
	})
}

func (rt *Router) chatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !rt.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	lastUser, ok := latestUserMessageContent(req.Messages)
	if !ok {
		writeError(w, http.StatusBadRequest, "at least one user message with text content is required")
		return
	}

	modelID := strings.TrimSpace(req.Model)
	if modelID == "" {
		modelID = rt.modelID()
	}

	question := buildContextualQuestion(req.Messages, lastUser, rt.openAICompatContextMessages)

	start := time.Now()
	answer, err := rt.answer.Answer(r.Context(), question, rt.retrieveTopK)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	usage := estimateUsage(question, answer.Text)
	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation(serviceName, "chat_completions", len(answer.Sources), time.Since(start))
		rt.metrics.RecordTokenUsage(serviceName, "chat_completions", modelID, usage.PromptTokens, usage.CompletionTokens)
	}

	completionID := newCompletionID()
	created := time.Now().Unix()

	if req.Stream {
		chunks := buildTextStreamChunks(completionID, created, modelID, answer.Text, rt.openAICompatStreamChunkChars)
		if err := writeSSEChunks(w, chunks); err != nil {
			rt.logger.Error("sse_stream_failed", "error", err, "request_id", requestIDFromContext(r.Context()))
		}
		return
	}

	debug := &debugInfo{Mode: "rag"}
	if sources := toDebugSources(answer.Sources); len(sources) > 0 {
		debug.Sources = sources
	}

	writeJSON(w, http.StatusOK, chatCompletionResponse{
		ID:      completionID,
		Object:  "chat.completion",
		Created: created,
		Model:   modelID,
		Choices: []chatCompletionChoice{{
			Index: 0,
			Message: chatMessage{
				Role:    "assistant",
				Content: answer.Text,
			},
			FinishReason: "stop",
		}},
		Usage: usage,
		Debug: debug,
	})
}
