package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/lexrag/internal/model"
	"github.com/kart-io/lexrag/pkg/llm"
)

// defaultSystemPrompt instructs the model to answer only from the provided
// sources and to mark every sentence as verbatim or derived. The output
// shape is what ParseAnswerUnits expects; unverifiable verbatim claims are
// caught downstream by the attribution resolver regardless.
const defaultSystemPrompt = `You are a legal information assistant for Indian criminal law. Answer the question using ONLY the numbered source passages provided.

Respond with a JSON array of answer units, one per sentence of your answer:
[
  {
    "id": 0,
    "text": "<the sentence>",
    "kind": "verbatim" or "derived",
    "quote": "<exact text copied from a source, only when kind is verbatim>",
    "supporting_sources": ["<citation id>", ...]
  }
]

Rules:
- Use "verbatim" only when the sentence quotes a source word for word; put the exact quoted text in "quote".
- Use "derived" for everything you paraphrase or conclude.
- Cite the source ids you relied on in "supporting_sources".
- Output the JSON array and nothing else.`

// GeneratorConfig configures answer generation.
type GeneratorConfig struct {
	// SystemPrompt overrides the built-in system prompt when non-empty.
	SystemPrompt string `json:"system_prompt" mapstructure:"system_prompt"`
}

// DefaultGeneratorConfig returns the default generator configuration.
func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{}
}

// Generator produces attributable answers from assembled context.
type Generator struct {
	chatProvider llm.ChatProvider
	config       *GeneratorConfig
}

// NewGenerator creates a Generator.
func NewGenerator(chatProvider llm.ChatProvider, config *GeneratorConfig) *Generator {
	if config == nil {
		config = DefaultGeneratorConfig()
	}
	return &Generator{
		chatProvider: chatProvider,
		config:       config,
	}
}

// GenerateAnswer calls the chat provider with the assembled context and
// parses the response into answer units. An unparseable response yields the
// raw text with zero units; the caller falls back to ungrounded plain text.
func (g *Generator) GenerateAnswer(ctx context.Context, question, contextText string) (string, []model.AnswerUnit, error) {
	if ctx.Err() != nil {
		return "", nil, fmt.Errorf("context cancelled before generation: %w", ctx.Err())
	}

	systemPrompt := g.config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	prompt := fmt.Sprintf("Sources:\n%s\n\nQuestion: %s", contextText, question)

	raw, err := g.chatProvider.Generate(ctx, prompt, systemPrompt)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	units, perr := ParseAnswerUnits(raw)
	if perr != nil {
		logger.Warnw("unparseable generation output, falling back to plain text",
			"error", perr.Error(),
			"response_length", len(raw),
		)
		return strings.TrimSpace(raw), nil, nil
	}

	texts := make([]string, len(units))
	for i, unit := range units {
		texts[i] = unit.Text
	}
	return strings.Join(texts, " "), units, nil
}
