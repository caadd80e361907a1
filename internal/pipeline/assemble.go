package pipeline

import (
	"fmt"

	"github.com/raine/listing-digest/internal/extract"
	"github.com/raine/listing-digest/internal/llm"
)

// Result is the response returned to the caller.
type Result struct {
	Success     bool   `json:"success"`
	ProductName string `json:"product_name,omitempty"`
	Price       string `json:"price,omitempty"`
	ImageCount  int    `json:"image_count,omitempty"`
	Result      string `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Fail returns a failed result with a user-facing message.
func Fail(message string) Result {
	return Result{Success: false, Error: message}
}

// Assemble merges the generation outcome with the extracted signals. The
// extracted name and price are only reported for HTML variants that found a
// name.
func Assemble(req Request, sig extract.Signals, out llm.Outcome) Result {
	if out.Failed {
		return Fail(fmt.Sprintf(MsgGenerationFailed, out.Message))
	}

	res := Result{
		Success:    true,
		Result:     out.Text,
		ImageCount: len(req.Images),
	}
	if req.Variant.UsesHTML() && sig.HasName() {
		res.ProductName = sig.Name
		res.Price = sig.Price
	}
	return res
}
