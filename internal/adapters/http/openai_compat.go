package httpadapter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

// Hand-written OpenAI-compatible wire types. Content is `any` because
// clients send either a plain string or a list of typed content parts.

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type debugSource struct {
	DocumentID string  `json:"document_id"`
	SourcePath string  `json:"source_path,omitempty"`
	Page       int     `json:"page,omitempty"`
	Section    string  `json:"section,omitempty"`
	Score      float64 `json:"score"`
}

type debugInfo struct {
	Mode    string        `json:"mode"`
	Sources []debugSource `json:"sources,omitempty"`
}

type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Usage   chatUsage              `json:"usage"`
	Debug   *debugInfo             `json:"debug,omitempty"`
}

type chatMessageDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type chatCompletionChunkChoice struct {
	Index        int              `json:"index"`
	Delta        chatMessageDelta `json:"delta"`
	FinishReason *string          `json:"finish_reason"`
}

type chatCompletionChunk struct {
	ID      string                      `json:"id"`
	Object  string                      `json:"object"`
	Created int64                       `json:"created"`
	Model   string                      `json:"model"`
	Choices []chatCompletionChunkChoice `json:"choices"`
}

type modelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
	Created int64  `json:"created"`
}

type modelListResponse struct {
	Object string        `json:"object"`
	Data   []modelObject `json:"data"`
}

func newCompletionID() string {
	return fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
}

func estimateUsage(prompt, completion string) chatUsage {
	promptTokens := len(strings.Fields(prompt))
	completionTokens := len(strings.Fields(completion))
	return chatUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

func toDebugSources(results []domain.RankedResult) []debugSource {
	out := make([]debugSource, 0, len(results))
	for _, res := range results {
		out = append(out, debugSource{
			DocumentID: res.DocumentID,
			SourcePath: res.SourcePath,
			Page:       res.Page,
			Section:    res.Section,
			Score:      res.Score,
		})
	}
	return out
}

// extractMessageText flattens string or multi-part message content into
// plain text.
func extractMessageText(message chatMessage) string {
	switch content := message.Content.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(content)
	case []any:
		parts := make([]string, 0, len(content))
		for _, item := range content {
			switch typed := item.(type) {
			case string:
				if s := strings.TrimSpace(typed); s != "" {
					parts = append(parts, s)
				}
			case map[string]any:
				if text, ok := typed["text"].(string); ok {
					if s := strings.TrimSpace(text); s != "" {
						parts = append(parts, s)
					}
				}
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	default:
		payload, err := json.Marshal(content)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(payload))
	}
}

func latestUserMessageContent(messages []chatMessage) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		if text := extractMessageText(messages[i]); text != "" {
			return text, true
		}
	}
	return "", false
}

// buildContextualQuestion prefixes the current question with a window
// of recent conversation turns so retrieval sees follow-up context.
func buildContextualQuestion(messages []chatMessage, lastUserMessage string, contextMessages int) string {
	if contextMessages <= 1 {
		return lastUserMessage
	}

	start := len(messages) - contextMessages
	if start < 0 {
		start = 0
	}
	contextLines := make([]string, 0, contextMessages)
	for _, msg := range messages[start:] {
		text := extractMessageText(msg)
		if text == "" {
			continue
		}
		contextLines = append(contextLines, fmt.Sprintf("%s: %s", msg.Role, text))
	}
	if len(contextLines) == 0 {
		return lastUserMessage
	}

	return fmt.Sprintf("Conversation context:\n%s\n\nCurrent user question:\n%s", strings.Join(contextLines, "\n"), lastUserMessage)
}

func isAuthorizedBearerHeader(headerValue, expectedToken string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || expectedToken == "" {
		return false
	}
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	return token == expectedToken
}
