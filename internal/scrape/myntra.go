package scrape

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pricehawk/pricehawk/internal/search"
)

// MyntraRules describes the myntra.com search results page. Myntra encodes
// the query in the path and repeats it in rawQuery; the price filter rides
// in the rf parameter.
func MyntraRules() Rules {
	return Rules{
		Source:       search.SourceMyntra,
		Origin:       "https://www.myntra.com",
		AffiliateTag: "utm_source=pricehawk",
		BuildPath: func(req search.Request) string {
			slug := strings.ReplaceAll(strings.ToLower(req.Term), " ", "-")
			q := url.Values{}
			q.Set("rawQuery", req.Term)
			if req.Category != "" {
				q.Set("f", "Categories:"+req.Category)
			}
			if req.HasCeiling {
				q.Set("rf", fmt.Sprintf("Price:0.0-%.1f", req.PriceCeiling))
			}
			return "/" + url.PathEscape(slug) + "?" + q.Encode()
		},
		WaitSelector: "li.product-base",
		ItemSelector: "li.product-base",
		Title: []FieldRule{
			{Selector: "h4.product-product"},
			{Selector: "div.product-product"},
			{Selector: "h3.product-brand"},
		},
		Price: []FieldRule{
			{Selector: "span.product-discountedPrice"},
			{Selector: "div.product-price span"},
			{Selector: "div.product-price"},
		},
		ListPrice: []FieldRule{
			{Selector: "span.product-strike"},
		},
		Rating: []FieldRule{
			{Selector: "div.product-ratingsContainer span"},
		},
		Image: []FieldRule{
			{Selector: "img.img-responsive", Attr: "src"},
			{Selector: "img", Attr: "data-src"},
		},
		Link: []FieldRule{
			{Selector: "a", Attr: "href"},
		},
	}
}
