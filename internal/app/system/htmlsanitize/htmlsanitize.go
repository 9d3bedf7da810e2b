// Package htmlsanitize provides HTML sanitization for user-generated content.
// It uses bluemonday to strip potentially dangerous HTML while preserving safe
// formatting. Announcements get a rich-text policy; comments and reviews get a
// stricter one.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy   *bluemonday.Policy
	strictPolicy *bluemonday.Policy
	policyOnce   sync.Once
)

func initPolicies() {
	policyOnce.Do(func() {
		// Rich text for announcements: UGC base plus tables and common
		// formatting used by the editor.
		richPolicy = bluemonday.UGCPolicy()
		richPolicy.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td")
		richPolicy.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
		richPolicy.AllowElements("u", "s", "sub", "sup", "mark")

		// Comments and reviews: inline formatting and links only.
		strictPolicy = bluemonday.NewPolicy()
		strictPolicy.AllowElements("b", "strong", "i", "em", "u", "s", "br", "p")
		strictPolicy.AllowStandardURLs()
		strictPolicy.AllowAttrs("href").OnElements("a")
		strictPolicy.RequireNoFollowOnLinks(true)
	})
}

// Rich cleans HTML input with the announcement policy, preserving safe
// formatting like headings, lists, links, and tables.
func Rich(html string) string {
	if html == "" {
		return ""
	}
	initPolicies()
	return richPolicy.Sanitize(html)
}

// Strict cleans HTML input with the comment/review policy, stripping
// everything but basic inline formatting and links.
func Strict(html string) string {
	if html == "" {
		return ""
	}
	initPolicies()
	return strings.TrimSpace(strictPolicy.Sanitize(html))
}
