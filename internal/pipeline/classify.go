package pipeline

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ListingType selects between product pages and local business pages.
type ListingType string

const (
	ListingProduct       ListingType = "marketplace-product"
	ListingLocalBusiness ListingType = "local-business-listing"
)

// ParseListingType maps the request's type field to a ListingType.
// Unknown values fall back to ListingProduct.
func ParseListingType(s string) ListingType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "place", "local", "local-business", string(ListingLocalBusiness):
		return ListingLocalBusiness
	default:
		return ListingProduct
	}
}

// Variant is the request shape chosen for a payload.
type Variant string

const (
	VariantHTMLOnly            Variant = "html-only"
	VariantImagesOnly          Variant = "images-only"
	VariantHTMLAndImages       Variant = "html-and-images"
	VariantLocalBusinessImages Variant = "local-business-images"
)

// UsesHTML reports whether the variant reads the page markup.
func (v Variant) UsesHTML() bool {
	return v == VariantHTMLOnly || v == VariantHTMLAndImages
}

// Input errors. These are reported before any extraction or generation.
var (
	ErrNoInput        = errors.New("no html or images provided")
	ErrHTMLTooShort   = errors.New("html too short")
	ErrImagesRequired = errors.New("images required for local business listing")
	ErrTooManyImages  = errors.New("too many images")
)

// Payload is the caller-supplied input.
type Payload struct {
	HTML   string
	Images [][]byte // in page order
	Type   ListingType
}

// Limits bounds what Classify accepts.
type Limits struct {
	// MinHTMLLength is the minimum trimmed length (in runes) of HTML submitted on its own.
	MinHTMLLength int
	// MaxImages rejects payloads with more images. Zero disables the check.
	MaxImages int
}

// Request is a classified payload with its inputs normalized.
type Request struct {
	Variant Variant
	HTML    string   // empty unless the variant uses HTML
	Images  [][]byte // empty for html-only
}

// Classify picks exactly one variant for the payload. It is a pure function
// of the payload shape and limits.
func Classify(p Payload, limits Limits) (Request, error) {
	html := strings.TrimSpace(p.HTML)
	images := nonEmpty(p.Images)

	if html == "" && len(images) == 0 {
		return Request{}, ErrNoInput
	}
	if limits.MaxImages > 0 && len(images) > limits.MaxImages {
		return Request{}, ErrTooManyImages
	}

	if html != "" && utf8.RuneCountInString(html) < limits.MinHTMLLength {
		if len(images) == 0 {
			return Request{}, ErrHTMLTooShort
		}
		html = ""
	}

	// Local business listings are read from screenshots only. Any HTML sent
	// alongside them is dropped.
	if p.Type == ListingLocalBusiness {
		if len(images) == 0 {
			return Request{}, ErrImagesRequired
		}
		return Request{Variant: VariantLocalBusinessImages, Images: images}, nil
	}

	switch {
	case html != "" && len(images) > 0:
		return Request{Variant: VariantHTMLAndImages, HTML: html, Images: images}, nil
	case len(images) > 0:
		return Request{Variant: VariantImagesOnly, Images: images}, nil
	default:
		return Request{Variant: VariantHTMLOnly, HTML: html}, nil
	}
}

func nonEmpty(images [][]byte) [][]byte {
	out := make([][]byte, 0, len(images))
	for _, img := range images {
		if len(img) > 0 {
			out = append(out, img)
		}
	}
	return out
}
