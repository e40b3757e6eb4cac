// Package crawl discovers same-origin candidate URLs for the bundled
// scanners to inject into.
package crawl

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/buemura/scanrun/internal/scanner/probe"
)

// formFillValue is the placeholder given to form inputs that have no value.
const formFillValue = "1"

// Result is what a crawl produced.
type Result struct {
	// Visited counts the pages fetched, the seed included.
	Visited int
	// Candidates are discovered URLs that carry at least one query
	// parameter, in discovery order. The seed is always first when it has
	// parameters.
	Candidates []string
	// SeedErr is set when the seed page could not be fetched.
	SeedErr error
}

// Discover walks links breadth-first from seed, staying on the seed's host,
// until maxLinks distinct URLs have been seen or the frontier is empty.
// Links are taken from a[href] and from GET forms, whose input names become
// query parameters.
func Discover(ctx context.Context, client *probe.Client, seed string, maxLinks int) Result {
	var res Result

	base, err := url.Parse(seed)
	if err != nil {
		res.SeedErr = err
		return res
	}
	if maxLinks < 1 {
		maxLinks = 1
	}

	seen := map[string]bool{}
	var queue []string
	add := func(u string) {
		if seen[u] || len(seen) >= maxLinks {
			return
		}
		seen[u] = true
		queue = append(queue, u)
		if hasQuery(u) {
			res.Candidates = append(res.Candidates, u)
		}
	}
	add(normalize(base))

	for len(queue) > 0 {
		if ctx.Err() != nil {
			break
		}
		current := queue[0]
		queue = queue[1:]

		resp, err := client.Get(ctx, current)
		if err != nil {
			if res.Visited == 0 {
				res.SeedErr = err
			}
			res.Visited++
			continue
		}
		res.Visited++

		if !isHTML(resp.ContentType, resp.Body) {
			continue
		}
		pageURL, _ := url.Parse(current)
		for _, link := range extractLinks(pageURL, resp.Body) {
			if link.Host != base.Host {
				continue
			}
			add(normalize(link))
		}
	}

	return res
}

// extractLinks pulls absolute http(s) URLs out of an HTML page.
func extractLinks(page *url.URL, body string) []*url.URL {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var links []*url.URL
	resolve := func(ref string) *url.URL {
		ref = strings.TrimSpace(ref)
		if ref == "" || strings.HasPrefix(ref, "#") {
			return nil
		}
		u, err := page.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil
		}
		return u
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if u := resolve(href); u != nil {
			links = append(links, u)
		}
	})

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		method := strings.ToLower(strings.TrimSpace(form.AttrOr("method", "get")))
		if method != "get" {
			return
		}
		action := form.AttrOr("action", "")
		var u *url.URL
		if strings.TrimSpace(action) == "" {
			copied := *page
			u = &copied
		} else if u = resolve(action); u == nil {
			return
		}

		q := u.Query()
		form.Find("input[name], textarea[name], select[name]").Each(func(_ int, input *goquery.Selection) {
			name, _ := input.Attr("name")
			if name == "" {
				return
			}
			if strings.EqualFold(input.AttrOr("type", ""), "submit") {
				return
			}
			q.Set(name, input.AttrOr("value", formFillValue))
		})
		u.RawQuery = q.Encode()
		links = append(links, u)
	})

	return links
}

func normalize(u *url.URL) string {
	copied := *u
	copied.Fragment = ""
	copied.RawFragment = ""
	if copied.Path == "" {
		copied.Path = "/"
	}
	return copied.String()
}

func hasQuery(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && len(u.Query()) > 0
}

func isHTML(contentType, body string) bool {
	if contentType != "" {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return strings.Contains(strings.ToLower(body), "<html")
}
