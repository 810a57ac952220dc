package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/hybrid-retriever/internal/core/domain"
)

func buildAnswerPrompt(question string, sources []domain.RankedResult) string {
	var contextBuilder strings.Builder
	for idx, source := range sources {
		contextBuilder.WriteString(fmt.Sprintf("[%d] source=%s", idx+1, source.SourcePath))
		if source.Page > 0 {
			contextBuilder.WriteString(fmt.Sprintf(" page=%d", source.Page))
		}
		if source.Section != "" {
			contextBuilder.WriteString(fmt.Sprintf(" section=%s", source.Section))
		}
		contextBuilder.WriteString(fmt.Sprintf(" score=%.3f\n%s\n\n", source.Score, source.Text))
	}

	return fmt.Sprintf(`Answer user question only from context below.
Cite passages as [n] where they support a statement.
If context is insufficient, say it directly.

Question:
%s

Context:
%s
`, question, contextBuilder.String())
}
