// Package extract pulls product signals (name, price, description fragments)
// out of a product page's HTML. Structured data is preferred; selector chains
// are the fallback.
package extract

import (
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

const maxJSONLDDepth = 4

// Signals contains the product information recovered from a page.
// Any field may be empty.
type Signals struct {
	Name         string   `json:"name"`
	Price        string   `json:"price"`
	Descriptions []string `json:"descriptions"`
}

// HasName reports whether a product name was found.
func (s Signals) HasName() bool {
	return s.Name != ""
}

// Extract parses the page and returns whatever product signals it can find.
// It never fails: a step that cannot produce a value leaves its field empty.
func Extract(page string, rules Rules) Signals {
	doc, err := parse(page, rules.MaxParseBytes)
	if err != nil {
		log.Debug().Err(err).Msg("failed to parse html")
		return Signals{}
	}

	var sig Signals
	var fragments []string

	if p, ok := structuredProduct(doc, rules.MaxJSONLDBlocks); ok {
		sig.Name = p.name
		if p.price != "" {
			sig.Price = p.price + rules.CurrencySuffix
		}
		if p.description != "" {
			fragments = append(fragments, p.description)
		}
	}

	if sig.Name == "" {
		sig.Name = firstNonEmptyMatch(doc, rules.NameSelectors)
	}
	if sig.Price == "" {
		sig.Price = firstNonEmptyMatch(doc, rules.PriceSelectors)
	}

	fragments = append(fragments, collectFragments(doc, rules)...)
	sig.Descriptions = dedupe(fragments, rules.MaxFragments)

	log.Debug().
		Str("name", sig.Name).
		Str("price", sig.Price).
		Int("fragments", len(sig.Descriptions)).
		Msg("extracted product signals")

	return sig
}

// parse reads at most limit bytes of markup into a document tree.
func parse(page string, limit int64) (*goquery.Document, error) {
	var r io.Reader = strings.NewReader(page)
	if limit > 0 {
		if int64(len(page)) > limit {
			log.Debug().Int("htmlBytes", len(page)).Int64("limit", limit).Msg("html truncated before parsing")
		}
		r = io.LimitReader(r, limit)
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

type ldProduct struct {
	name        string
	price       string
	description string
}

// structuredProduct returns the first schema.org Product found in the page's
// JSON-LD blocks. Blocks that fail to decode are skipped.
func structuredProduct(doc *goquery.Document, maxBlocks int) (ldProduct, bool) {
	var (
		found ldProduct
		ok    bool
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if maxBlocks > 0 && i >= maxBlocks {
			return false
		}
		found, ok = decodeProduct(s.Text())
		return !ok
	})
	return found, ok
}

func decodeProduct(raw string) (ldProduct, bool) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return ldProduct{}, false
	}
	return findProduct(v, 0)
}

func findProduct(v any, depth int) (ldProduct, bool) {
	if depth > maxJSONLDDepth {
		return ldProduct{}, false
	}

	switch t := v.(type) {
	case map[string]any:
		if isProductType(t["@type"]) {
			return productFromMap(t), true
		}
		if graph, ok := t["@graph"].([]any); ok {
			return findProduct(graph, depth+1)
		}
	case []any:
		for _, item := range t {
			if p, ok := findProduct(item, depth+1); ok {
				return p, true
			}
		}
	}
	return ldProduct{}, false
}

func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Product"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func productFromMap(m map[string]any) ldProduct {
	p := ldProduct{
		name:        strings.TrimSpace(scalarString(m["name"])),
		description: strings.TrimSpace(scalarString(m["description"])),
	}

	offers := m["offers"]
	if list, ok := offers.([]any); ok && len(list) > 0 {
		offers = list[0]
	}
	if o, ok := offers.(map[string]any); ok {
		p.price = strings.TrimSpace(scalarString(o["price"]))
	}
	return p
}

// scalarString stringifies JSON strings and numbers. Numbers keep their
// literal form, so "9900" and 9900 both become "9900".
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return ""
}

// firstNonEmptyMatch walks the chain in priority order and returns the value
// of the first rule whose matched element yields non-empty text. Among rules
// that yield text, the earlier one always wins; a rule that matches only an
// empty element is passed over.
func firstNonEmptyMatch(doc *goquery.Document, chain []Rule) string {
	for _, rule := range chain {
		sel := doc.Find(rule.Selector).First()
		if sel.Length() == 0 {
			continue
		}

		var text string
		if rule.Attr != "" {
			text, _ = sel.Attr(rule.Attr)
			text = cleanText(text)
		} else {
			text = cleanText(sel.Text())
		}
		if text != "" {
			return text
		}
	}
	return ""
}

func collectFragments(doc *goquery.Document, rules Rules) []string {
	if len(rules.DescriptionSelectors) == 0 {
		return nil
	}

	var out []string
	group := strings.Join(rules.DescriptionSelectors, ", ")
	doc.Find(group).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if rules.MaxSelectorMatches > 0 && i >= rules.MaxSelectorMatches {
			return false
		}
		text := cleanText(s.Text())
		if utf8.RuneCountInString(text) > rules.MinFragmentLength {
			out = append(out, text)
		}
		return true
	})
	return out
}

// cleanText trims the text and collapses internal whitespace runs.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// dedupe removes duplicates keeping first-seen order and truncates to max.
func dedupe(in []string, max int) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
