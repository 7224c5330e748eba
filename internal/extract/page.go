package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page is one parsed WebBook page
type Page struct {
	doc  *goquery.Document
	base *url.URL
}

// NewPage parses HTML fetched from pageURL.
// pageURL is used to resolve relative links and image sources.
func NewPage(htmlContent string, pageURL string) (*Page, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	return &Page{
		doc:  goquery.NewDocumentFromNode(root),
		base: base,
	}, nil
}

// URL returns the page address
func (p *Page) URL() string {
	return p.base.String()
}

// resolve turns an href or src into an absolute URL
func (p *Page) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return p.base.ResolveReference(parsed).String()
}

// cellText returns the trimmed text content of a selection
func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// ownText returns the text nodes that are direct children of the selection,
// skipping text inside nested elements
func ownText(s *goquery.Selection) string {
	var buf strings.Builder
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				buf.WriteString(c.Data)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
