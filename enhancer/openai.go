package enhancer

import (
	"context"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"golang.org/x/time/rate"
)

const systemPrompt = "Si strokovnjak za maloprodajne živilske izdelke. Odgovarjaš izključno z veljavnim JSON objektom."

// OpenAIConfig configures an OpenAIGenerator.
type OpenAIConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	Temperature       float64
	RequestsPerMinute int
	StructuredOutput  bool
	HTTPClient        *http.Client
}

// OpenAIGenerator talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	structured  bool
	limiter     *rate.Limiter
}

// NewOpenAIGenerator builds a generator. Retries are left to Client, so the
// SDK's own retry loop is disabled.
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	g := &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		structured:  cfg.StructuredOutput,
	}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return g
}

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model:       shared.ChatModel(g.model),
		Temperature: openai.Float(g.temperature),
	}
	if g.structured {
		params.ResponseFormat = responseFormat()
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return completion.Choices[0].Message.Content, nil
}
