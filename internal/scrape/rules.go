package scrape

import (
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pricehawk/pricehawk/internal/search"
)

// FieldRule is one selector alternative for a field. An empty Attr reads the
// element text; otherwise the named attribute is read.
type FieldRule struct {
	Selector string
	Attr     string
}

// Rules is the data-driven description of one storefront: how to build the
// search URL, when the results are ready, and how to pull each field out of
// a result candidate. Selector alternatives are tried in order and the first
// non-empty value wins, because storefront markup varies across experiments
// and locales.
type Rules struct {
	Source       search.Source
	Origin       string
	AffiliateTag string
	BuildPath    func(req search.Request) string
	WaitSelector string
	ItemSelector string

	Title     []FieldRule
	Price     []FieldRule
	ListPrice []FieldRule
	Rating    []FieldRule
	Image     []FieldRule
	Link      []FieldRule
}

// SearchURL builds the deterministic navigation target for a request.
func (r Rules) SearchURL(req search.Request) string {
	return r.Origin + r.BuildPath(req)
}

// Parse turns rendered markup into canonical records. Candidates missing a
// title or a usable price are skipped silently; per-candidate problems never
// abort the whole extraction.
func (r Rules) Parse(html string, req search.Request, logger *zap.Logger) ([]search.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &search.NavigationError{URL: r.SearchURL(req), Err: err}
	}

	var products []search.Product
	seen := make(map[string]struct{})

	doc.Find(r.ItemSelector).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(firstValue(sel, r.Title))
		if title == "" {
			return
		}

		price, ok := ParsePrice(firstValue(sel, r.Price))
		if !ok {
			logger.Debug("candidate skipped on unusable price",
				zap.String("source", string(r.Source)),
				zap.String("title", title),
			)
			return
		}

		// First occurrence wins for duplicate titles within one source.
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		listPrice := price
		if lp, ok := ParsePrice(firstValue(sel, r.ListPrice)); ok && lp > price {
			listPrice = lp
		}

		rating := strings.TrimSpace(firstValue(sel, r.Rating))
		if rating == "" {
			rating = search.NoRating
		}

		image := strings.TrimSpace(firstValue(sel, r.Image))
		if image == "" {
			image = search.PlaceholderImage
		}

		products = append(products, search.Product{
			Title:          title,
			Price:          price,
			ListPrice:      listPrice,
			Rating:         rating,
			ImageURL:       image,
			DeepLink:       r.normalizeLink(firstValue(sel, r.Link)),
			Source:         r.Source,
			RelevanceScore: search.Score(title, req.Term, price),
		})
	})

	return products, nil
}

// firstValue walks the fallback chain and returns the first non-empty value.
func firstValue(sel *goquery.Selection, chain []FieldRule) string {
	for _, rule := range chain {
		node := sel.Find(rule.Selector).First()
		if node.Length() == 0 {
			continue
		}
		var value string
		if rule.Attr == "" {
			value = node.Text()
		} else {
			value, _ = node.Attr(rule.Attr)
		}
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// ParsePrice reads the first numeric run out of a price string, tolerating
// currency symbols, thousands separators, and prefixes like "Rs.". A zero,
// negative, or non-finite price is data-quality noise, not a product.
func ParsePrice(text string) (float64, bool) {
	start := strings.IndexFunc(text, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return 0, false
	}

	var b strings.Builder
	dotSeen := false
loop:
	for _, ch := range text[start:] {
		switch {
		case ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == ',':
		case ch == '.' && !dotSeen:
			dotSeen = true
			b.WriteRune(ch)
		default:
			break loop
		}
	}

	price, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || price <= 0 || math.IsInf(price, 0) || math.IsNaN(price) {
		return 0, false
	}
	return price, true
}

// normalizeLink converts relative paths to absolute against the storefront
// origin and appends the storefront's tracking token.
func (r Rules) normalizeLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return search.MissingLink
	}
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		if !strings.HasPrefix(href, "/") {
			href = "/" + href
		}
		href = r.Origin + href
	}
	if r.AffiliateTag == "" {
		return href
	}
	sep := "?"
	if strings.Contains(href, "?") {
		sep = "&"
	}
	return href + sep + r.AffiliateTag
}
