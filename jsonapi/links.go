package jsonapi

import (
	"net/url"
	"strconv"
)

// Links holds a document's or resource's link object. Values are either
// bare URL strings or {"href": ..., "meta": ...} objects; Href copes with
// both.
type Links map[string]any

// Href returns the URL string for the named link, or "" when the link is
// absent or shaped unexpectedly.
func (l Links) Href(name string) string {
	if l == nil {
		return ""
	}
	switch v := l[name].(type) {
	case string:
		return v
	case map[string]any:
		if href, ok := v["href"].(string); ok {
			return href
		}
	}
	return ""
}

// Self returns the self link.
func (l Links) Self() string { return l.Href("self") }

// Next returns the next-page link.
func (l Links) Next() string { return l.Href("next") }

// Prev returns the previous-page link.
func (l Links) Prev() string { return l.Href("prev") }

// PageNumberFromLink extracts the page[number] query parameter from a
// pagination link. The second return is false when the link is absent,
// unparseable, or carries no usable page number. Pure function.
func PageNumberFromLink(link string) (int, bool) {
	if link == "" {
		return 0, false
	}
	u, err := url.Parse(link)
	if err != nil {
		return 0, false
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return 0, false
	}
	v := q.Get("page[number]")
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
