package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hypd/urlshortener/internal/models"
)

// strategy is one structural query for a field. It reports false when it found nothing usable.
type strategy = func(doc *goquery.Document) (string, bool)

// firstMatch runs strategies in order and returns the first usable value.
// Later strategies are fallbacks only; values are never merged.
func firstMatch[T any](in T, strategies ...func(T) (string, bool)) (string, bool) {
	for _, s := range strategies {
		if v, ok := s(in); ok {
			return v, true
		}
	}
	return "", false
}

// Extract pulls name, price, brand and image out of a product page.
// Missing fields are left nil; an error is returned only when the markup
// cannot be read at all. baseURL absolutises root-relative image paths.
func Extract(markup []byte, baseURL string) (models.ProductFields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return models.ProductFields{}, fmt.Errorf("failed to parse markup: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		base = nil
	}

	var fields models.ProductFields

	name, hasName := firstMatch(doc, nameStrategies...)
	if hasName {
		fields.ProductName = &name
	}
	if price, ok := firstMatch(doc, priceStrategies...); ok {
		fields.Price = &price
	}
	if brand, ok := firstMatch(doc, brandStrategies(name, hasName)...); ok {
		fields.BrandName = &brand
	}
	if img, ok := firstMatch(doc, imageStrategies(base)...); ok {
		fields.FeaturedImageURL = &img
	}

	return fields, nil
}

var nameStrategies = []strategy{
	textOf("h1.product-title"),
	textOf(`h1[data-testid="product-title"]`),
	textOf(".product-details h1"),
	textOf(".product-info h1"),
	attrOf(`meta[property="og:title"]`, "content"),
	textOf("h1"),
	textOf(".title"),
	textOf(`[class*="product"][class*="title"]`),
	textOf(`[class*="title"]`),
}

var priceStrategies = []strategy{
	normalized(textOf(".price"), normalizePrice),
	normalized(textOf(".product-price"), normalizePrice),
	normalized(textOf(`[data-testid="price"]`), normalizePrice),
	normalized(textOf(".current-price"), normalizePrice),
	normalized(textOf(".selling-price"), normalizePrice),
	normalized(textOf(".price-current"), normalizePrice),
	normalized(attrOf(`meta[property="product:price:amount"]`, "content"), normalizePrice),
	normalized(textOf(`[class*="price"]`), normalizePrice),
	normalized(textOf(`span[class*="price"]`), normalizePrice),
	normalized(textOf(`div[class*="price"]`), normalizePrice),
}

// brandStrategies falls back to the left part of "Brand - Product" names.
func brandStrategies(name string, hasName bool) []strategy {
	return []strategy{
		normalized(textOf(".brand"), cleanBrand),
		normalized(textOf(".product-brand"), cleanBrand),
		normalized(textOf(`[data-testid="brand"]`), cleanBrand),
		normalized(textOf(".brand-name"), cleanBrand),
		normalized(attrOf(`meta[property="product:brand"]`, "content"), cleanBrand),
		normalized(textOf(`[class*="brand"]`), cleanBrand),
		normalized(textOf(`span[class*="brand"]`), cleanBrand),
		normalized(textOf(`div[class*="brand"]`), cleanBrand),
		func(*goquery.Document) (string, bool) {
			if !hasName {
				return "", false
			}
			left, _, found := strings.Cut(name, " - ")
			if !found {
				return "", false
			}
			return cleanBrand(left)
		},
	}
}

func imageStrategies(base *url.URL) []strategy {
	resolve := func(src string) (string, bool) { return resolveImageURL(src, base) }
	imgAttrs := []string{"src", "data-src", "data-lazy"}
	return []strategy{
		normalized(attrOf(".product-image img", imgAttrs...), resolve),
		normalized(attrOf(".featured-image img", imgAttrs...), resolve),
		normalized(attrOf(`[data-testid="product-image"] img`, imgAttrs...), resolve),
		normalized(attrOf(".main-image img", imgAttrs...), resolve),
		normalized(attrOf(".product-gallery img", imgAttrs...), resolve),
		normalized(attrOf(`[class*="product"][class*="image"] img`, imgAttrs...), resolve),
		normalized(attrOf(`[class*="featured"][class*="image"] img`, imgAttrs...), resolve),
		normalized(attrOf(`meta[property="og:image"]`, "content"), resolve),
	}
}

// textOf yields the whitespace-collapsed text of the first element matching selector.
func textOf(selector string) strategy {
	return func(doc *goquery.Document) (string, bool) {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return "", false
		}
		text := collapseSpace(sel.Text())
		return text, text != ""
	}
}

// attrOf yields the first non-empty attribute, in attrs order, of the first element matching selector.
func attrOf(selector string, attrs ...string) strategy {
	return func(doc *goquery.Document) (string, bool) {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return "", false
		}
		for _, a := range attrs {
			if v, ok := sel.Attr(a); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v, true
				}
			}
		}
		return "", false
	}
}

// normalized post-processes a strategy's value; a rejected value counts as no match.
func normalized(s strategy, norm func(string) (string, bool)) strategy {
	return func(doc *goquery.Document) (string, bool) {
		v, ok := s(doc)
		if !ok {
			return "", false
		}
		return norm(v)
	}
}

var (
	currencyAmount = regexp.MustCompile(`[₹$]\s?\d[\d,]*(?:\.\d+)?`)
	priceJunk      = regexp.MustCompile(`[^\d.,₹$]`)
	hasDigit       = regexp.MustCompile(`\d`)
)

// normalizePrice prefers an exact currency-prefixed amount ("₹1,299.00");
// otherwise it keeps only digits, currency symbols and separators.
func normalizePrice(text string) (string, bool) {
	if m := currencyAmount.FindString(text); m != "" {
		return m, true
	}
	cleaned := strings.Trim(priceJunk.ReplaceAllString(text, ""), ".,")
	if !hasDigit.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

var brandNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:fulfilled|sold|shipped)\s+by\b.*$`),
	regexp.MustCompile(`(?i)\bvisit\s+(?:the\s+)?`),
	regexp.MustCompile(`(?i)\s*\bstore\s*$`),
	regexp.MustCompile(`(?i)^\s*brand\s*:\s*`),
	regexp.MustCompile(`(?i)\(?\bpack\s+of\s+\d+\)?`),
	regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:ml|l|g|gm|kg|oz|pcs|pieces)\b`),
}

// cleanBrand strips seller boilerplate and pack or size suffixes.
func cleanBrand(text string) (string, bool) {
	for _, re := range brandNoise {
		text = re.ReplaceAllString(text, " ")
	}
	text = strings.Trim(collapseSpace(text), " -|:,")
	return text, text != ""
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {}, ".avif": {}, ".svg": {},
}

// resolveImageURL absolutises protocol- and root-relative sources against base
// and accepts only http(s) URLs whose path ends in an image extension.
func resolveImageURL(src string, base *url.URL) (string, bool) {
	src = strings.TrimSpace(src)
	switch {
	case strings.HasPrefix(src, "//"):
		scheme := "https"
		if base != nil && base.Scheme != "" {
			scheme = base.Scheme
		}
		src = scheme + ":" + src
	case strings.HasPrefix(src, "/"):
		if base == nil {
			return "", false
		}
		src = base.Scheme + "://" + base.Host + src
	}

	u, err := url.Parse(src)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	if _, ok := imageExtensions[strings.ToLower(path.Ext(u.Path))]; !ok {
		return "", false
	}
	return src, true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
