// Package pipeline turns a product page payload into a marketing summary:
// classify the input, extract signals from the markup, build the prompt,
// call the generator once and assemble the response.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raine/listing-digest/internal/extract"
	"github.com/raine/listing-digest/internal/fetch"
	"github.com/raine/listing-digest/internal/llm"
	"github.com/raine/listing-digest/internal/logging"
)

// Config holds the tunables of the pipeline.
type Config struct {
	Rules  extract.Rules
	Limits Limits
	Prompt PromptOptions
	// RequireProductName rejects html-only requests whose markup has no
	// recognizable product name.
	RequireProductName bool
}

// DefaultConfig returns the canonical thresholds.
func DefaultConfig() Config {
	return Config{
		Rules: extract.DefaultRules(),
		Limits: Limits{
			MinHTMLLength: 1000,
			MaxImages:     10,
		},
		Prompt: PromptOptions{
			Bullets:        BulletKeyword,
			HTMLEmbedLimit: 50000,
			MinFeatures:    7,
			MaxFeatures:    15,
		},
		RequireProductName: true,
	}
}

// Service runs the analysis pipeline. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	gen     llm.Generator
	fetcher fetch.Fetcher
	cfg     Config
}

// NewService creates a new pipeline service. fetcher may be nil when the
// live URL flow is not used.
func NewService(gen llm.Generator, fetcher fetch.Fetcher, cfg Config) *Service {
	return &Service{gen: gen, fetcher: fetcher, cfg: cfg}
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Analyze runs one request through the pipeline. Every failure is reported
// in the returned Result.
func (s *Service) Analyze(ctx context.Context, p Payload) Result {
	logger := logging.FromContext(ctx)

	req, err := Classify(p, s.cfg.Limits)
	if err != nil {
		logger.Info().Err(err).Msg("rejected input")
		return Fail(s.inputErrorMessage(err))
	}

	var sig extract.Signals
	if req.Variant.UsesHTML() {
		sig = extract.Extract(req.HTML, s.cfg.Rules)
		if req.Variant == VariantHTMLOnly && s.cfg.RequireProductName && !sig.HasName() {
			logger.Info().Int("htmlLength", len(req.HTML)).Msg("no product name found")
			return Fail(MsgProductNotFound)
		}
	}

	prompt := BuildPrompt(req, sig, s.cfg.Prompt)

	logger.Info().
		Str("variant", string(req.Variant)).
		Int("imageCount", len(prompt.Attachments)).
		Int("promptChars", len(prompt.Text)).
		Str("productName", sig.Name).
		Msg("invoking generator")

	out := llm.Invoke(ctx, s.gen, prompt.Text, prompt.Attachments)
	return Assemble(req, sig, out)
}

// AnalyzeURL fetches a marketplace page and analyzes its HTML.
func (s *Service) AnalyzeURL(ctx context.Context, pageURL string) Result {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return Fail(MsgURLRequired)
	}
	if s.fetcher == nil {
		return Fail(fmt.Sprintf(MsgUnexpectedErr, "page fetching is disabled"))
	}

	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("url", pageURL).Msg("failed to fetch page")
		if errors.Is(err, fetch.ErrUnsupportedURL) {
			return Fail(MsgUnsupportedURL)
		}
		return Fail(fmt.Sprintf(MsgFetchFailed, err))
	}

	return s.Analyze(ctx, Payload{HTML: string(body), Type: ListingProduct})
}

func (s *Service) inputErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoInput):
		return MsgNoInput
	case errors.Is(err, ErrHTMLTooShort):
		return MsgHTMLTooShort
	case errors.Is(err, ErrImagesRequired):
		return MsgImagesRequired
	case errors.Is(err, ErrTooManyImages):
		return fmt.Sprintf(MsgTooManyImages, s.cfg.Limits.MaxImages)
	default:
		return fmt.Sprintf(MsgUnexpectedErr, err)
	}
}
