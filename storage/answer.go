package storage

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"pawLingo/config"
)

// SynthesizeAnswer answers a free-text question about a pet from
// previously stored interpretations. With a configured API it goes
// through the chat model; otherwise it degrades to plain concatenation
// of the retrieved narratives.
func SynthesizeAnswer(question string, hits []IndexHit) string {
	if len(hits) == 0 {
		return "No saved interpretations match that question yet."
	}
	return synthesizeAnswerWithRAG(question, hits)
}

func synthesizeAnswerWithRAG(question string, hits []IndexHit) string {
	cfg, err := config.LoadConfig()
	if err != nil || !cfg.HasValidAPI() {
		return synthesizeAnswerSimple(hits)
	}

	contextParts := make([]string, 0, len(hits))
	for i, hit := range hits {
		contextParts = append(contextParts, fmt.Sprintf("Interpretation %d (confidence %.2f): %s", i+1, hit.Confidence, hit.Narrative))
	}
	contextStr := strings.Join(contextParts, "\n\n")

	prompt := fmt.Sprintf(`You are an assistant that explains canine body language to pet owners. Based on the saved behavior interpretations below, answer the owner's question.

Saved interpretations:
%s

Owner's question: %s

Answer in plain language based only on the interpretations above. If they are not enough to answer the question, say what is missing.`, contextStr, question)

	cli := openaiClient()
	req := openai.ChatCompletionRequest{
		Model: cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   1000,
		Temperature: 0.3,
	}

	resp, err := cli.CreateChatCompletion(context.Background(), req)
	if err != nil {
		fmt.Printf("Warning: LLM call failed (%v), falling back to simple synthesis\n", err)
		return synthesizeAnswerSimple(hits)
	}
	if len(resp.Choices) == 0 {
		return synthesizeAnswerSimple(hits)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func synthesizeAnswerSimple(hits []IndexHit) string {
	snips := make([]string, 0, len(hits))
	for _, h := range hits {
		snips = append(snips, h.Narrative)
	}
	return "Based on saved interpretations: " + strings.Join(snips, " ")
}
