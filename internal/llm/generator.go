package llm

import (
	"context"
	"fmt"

	"github.com/raine/listing-digest/internal/logging"
)

// Generator turns an instruction and optional ordered image attachments into
// free-form text.
type Generator interface {
	Generate(ctx context.Context, prompt string, attachments [][]byte) (string, error)
}

// Outcome is the normalized result of a single generation call.
type Outcome struct {
	Failed  bool
	Text    string // generated text on success
	Message string // underlying error message on failure
}

// Success wraps generated text.
func Success(text string) Outcome {
	return Outcome{Text: text}
}

// Failure wraps an error message.
func Failure(message string) Outcome {
	return Outcome{Failed: true, Message: message}
}

// Invoke performs exactly one generation call. Errors are not classified:
// the failure carries the error's message as-is. A panicking generator is
// reported as a failure too.
func Invoke(ctx context.Context, gen Generator, prompt string, attachments [][]byte) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error().Interface("panic", r).Msg("generator panicked")
			out = Failure(fmt.Sprint(r))
		}
	}()

	text, err := gen.Generate(ctx, prompt, attachments)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Int("imageCount", len(attachments)).Msg("generation failed")
		return Failure(err.Error())
	}
	return Success(text)
}
