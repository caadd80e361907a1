package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubGenerator struct {
	text  string
	err   error
	panic bool
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, attachments [][]byte) (string, error) {
	s.calls++
	if s.panic {
		panic("boom")
	}
	return s.text, s.err
}

func TestInvoke_Success(t *testing.T) {
	gen := &stubGenerator{text: "- 특징"}

	out := Invoke(context.Background(), gen, "prompt", nil)

	assert.False(t, out.Failed)
	assert.Equal(t, "- 특징", out.Text)
	assert.Equal(t, 1, gen.calls)
}

func TestInvoke_FailureKeepsMessageVerbatim(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota exceeded")}

	out := Invoke(context.Background(), gen, "prompt", [][]byte{{1}})

	assert.True(t, out.Failed)
	assert.Equal(t, "quota exceeded", out.Message)
	assert.Equal(t, 1, gen.calls, "no retry on failure")
}

func TestInvoke_Panic(t *testing.T) {
	gen := &stubGenerator{panic: true}

	out := Invoke(context.Background(), gen, "prompt", nil)

	assert.True(t, out.Failed)
	assert.Equal(t, "boom", out.Message)
}

func TestCalculateGeminiCost(t *testing.T) {
	cost := calculateGeminiCost(1_000_000, 1_000_000, 0.30, 2.50)
	assert.InDelta(t, 2.80, cost, 1e-9)
}

func TestDetectImageMIME(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0}

	assert.Equal(t, "image/png", detectImageMIME(png))
	assert.Equal(t, "image/jpeg", detectImageMIME(jpeg))
	assert.Equal(t, "image/jpeg", detectImageMIME([]byte("not an image")))
}
