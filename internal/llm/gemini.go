package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/raine/listing-digest/internal/logging"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30 // $0.30 per 1M input tokens (text/image/video)
	geminiOutputPricePerMillion = 2.50 // $2.50 per 1M output tokens (including thinking)
)

const fallbackImageMIME = "image/jpeg"

var errEmptyResponse = errors.New("empty response from gemini")

// GeminiOptions configures a GeminiGenerator.
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string // overrides the API endpoint, used in tests
}

// GeminiGenerator uses Google's Gemini API to generate text from an
// instruction and page screenshots.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a new Gemini-based generator.
func NewGeminiGenerator(ctx context.Context, opts GeminiOptions) (*GeminiGenerator, error) {
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Model returns the model name used for generation.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate sends the prompt first, then every attachment in order, as a
// single user turn. API errors are returned unwrapped.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, attachments [][]byte) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
	}
	for _, data := range attachments {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: data, MIMEType: detectImageMIME(data)},
		})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errEmptyResponse
	}

	if result.UsageMetadata != nil {
		inputTokens := int64(result.UsageMetadata.PromptTokenCount)
		outputTokens := int64(result.UsageMetadata.CandidatesTokenCount)
		logging.FromContext(ctx).Info().
			Str("model", g.model).
			Int("imageCount", len(attachments)).
			Int("promptChars", len(prompt)).
			Int64("inputTokens", inputTokens).
			Int64("outputTokens", outputTokens).
			Float64("costUSD", calculateGeminiCost(inputTokens, outputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)).
			Msg("generation llm call")
	}

	return strings.TrimSpace(result.Text()), nil
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

// detectImageMIME sniffs the attachment type. Uploads that are not
// recognizable images are sent as JPEG and left to the API to judge.
func detectImageMIME(data []byte) string {
	mt := mimetype.Detect(data)
	if strings.HasPrefix(mt.String(), "image/") {
		return mt.String()
	}
	return fallbackImageMIME
}
