package scrape

import (
	"fmt"
	"net/url"

	"github.com/pricehawk/pricehawk/internal/search"
)

// AmazonRules describes the amazon.in search results page. Selector
// alternatives cover the markup variants Amazon serves across experiments.
func AmazonRules() Rules {
	return Rules{
		Source:       search.SourceAmazon,
		Origin:       "https://www.amazon.in",
		AffiliateTag: "tag=pricehawk-21",
		BuildPath: func(req search.Request) string {
			q := url.Values{}
			q.Set("k", req.Term)
			if req.Category != "" {
				q.Set("i", req.Category)
			}
			if req.HasCeiling {
				q.Set("high-price", fmt.Sprintf("%.2f", req.PriceCeiling))
			}
			return "/s?" + q.Encode()
		},
		WaitSelector: "div[data-component-type='s-search-result']",
		ItemSelector: "div[data-component-type='s-search-result']",
		Title: []FieldRule{
			{Selector: "h2 a span"},
			{Selector: "h2 span"},
			{Selector: "span.a-text-normal"},
		},
		Price: []FieldRule{
			{Selector: "span.a-price > span.a-offscreen"},
			{Selector: "span.a-price-whole"},
		},
		ListPrice: []FieldRule{
			{Selector: "span.a-price.a-text-price > span.a-offscreen"},
		},
		Rating: []FieldRule{
			{Selector: "span.a-icon-alt"},
			{Selector: "i.a-icon-star-small span"},
		},
		Image: []FieldRule{
			{Selector: "img.s-image", Attr: "src"},
			{Selector: "img.s-image", Attr: "data-src"},
		},
		Link: []FieldRule{
			{Selector: "h2 a", Attr: "href"},
			{Selector: "a.a-link-normal", Attr: "href"},
		},
	}
}
