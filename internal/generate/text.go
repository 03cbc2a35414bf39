// Package generate holds the adapters for the external generators: the
// language-model biography writer, the search suggester, and the portrait
// webhook client.
package generate

import (
	"context"
	"fmt"
	"os"
	"strings"

	"luminary/pkg/domain"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/openai"
)

const biographySystemPrompt = `You are a biographical expert. Write detailed, accurate biographies with important words and dates in bold using HTML <strong> tags. Format the biography with multiple paragraphs using <p> tags with style="margin-bottom: 1rem". Include key dates, achievements, and legacy. Make it informative and engaging.`

const biographyUserPrompt = `Write a comprehensive biography for %s. Include:
- Full name and birth/death dates
- Early life and education
- Major achievements and contributions
- Important movements, works, or discoveries
- Legacy and impact
Use <strong> tags for important names, dates, places, concepts, and achievements. Format with <p> tags.`

// BiographyWriter produces biography markup through an llm-sdk language
// model. It is a pure function of its input; all caching happens upstream.
type BiographyWriter struct {
	model llmsdk.LanguageModel
}

// NewBiographyWriter wraps the given language model.
func NewBiographyWriter(model llmsdk.LanguageModel) *BiographyWriter {
	return &BiographyWriter{model: model}
}

// GenerateBiography asks the model for biography markup for displayName.
func (w *BiographyWriter) GenerateBiography(ctx context.Context, displayName string) (string, error) {
	system := biographySystemPrompt
	temperature := 0.7
	maxTokens := uint32(1000)
	resp, err := w.model.Generate(ctx, &llmsdk.LanguageModelInput{
		SystemPrompt: &system,
		Messages: []llmsdk.Message{
			llmsdk.NewUserMessage(llmsdk.NewTextPart(fmt.Sprintf(biographyUserPrompt, displayName))),
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", &domain.GeneratorUnavailableError{Kind: domain.KindBiography, Err: err}
	}
	text := joinTextParts(resp)
	if text == "" {
		return "", &domain.UpstreamMalformedError{Kind: domain.KindBiography, Detail: "response contains no text"}
	}
	return text, nil
}

func joinTextParts(resp *llmsdk.ModelResponse) string {
	var b strings.Builder
	for _, part := range resp.Content {
		if part.TextPart != nil {
			b.WriteString(part.TextPart.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// OpenAIModelFromEnv constructs the OpenAI-backed language model from
// OPENAI_API_KEY, returning nil when no key is configured so callers can
// fall back explicitly instead of carrying a half-configured client.
func OpenAIModelFromEnv(modelID string) llmsdk.LanguageModel {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil
	}
	if modelID == "" {
		modelID = "gpt-4o-mini"
	}
	return openai.NewOpenAIModel(modelID, openai.OpenAIModelOptions{APIKey: key})
}
