package extract

// Rule is a single selector in a fallback chain. When Attr is set the
// attribute value is used instead of the element text.
type Rule struct {
	Selector string
	Attr     string
}

// Rules holds the selector chains and limits the extractor works with.
type Rules struct {
	NameSelectors        []Rule
	PriceSelectors       []Rule
	DescriptionSelectors []string

	// CurrencySuffix is appended to prices taken from structured data.
	CurrencySuffix string

	// MinFragmentLength is exclusive: fragments must be longer than this (in runes).
	MinFragmentLength int
	// MaxFragments caps the deduplicated description fragments.
	MaxFragments int

	// Parse bounds for untrusted markup.
	MaxParseBytes      int64
	MaxSelectorMatches int
	MaxJSONLDBlocks    int
}

// DefaultRules returns the selector chains for Coupang product pages.
func DefaultRules() Rules {
	return Rules{
		NameSelectors: []Rule{
			{Selector: "h1.prod-buy-header__title"},
			{Selector: ".prod-buy-header__title"},
			{Selector: `meta[property="og:title"]`, Attr: "content"},
		},
		PriceSelectors: []Rule{
			{Selector: ".total-price strong"},
			{Selector: "span.total-price"},
			{Selector: `meta[property="product:price:amount"]`, Attr: "content"},
		},
		DescriptionSelectors: []string{
			".prod-description",
			".prod-buy-header__sub-title",
			".prod-option-item",
			".prod-attr-item",
		},
		CurrencySuffix:     "원",
		MinFragmentLength:  3,
		MaxFragments:       30,
		MaxParseBytes:      8 * 1024 * 1024,
		MaxSelectorMatches: 500,
		MaxJSONLDBlocks:    50,
	}
}
