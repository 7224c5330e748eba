// Package harvest discovers substance root page URLs from third-party list pages.
package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/thermobook/internal/model"
	"github.com/ppiankov/thermobook/internal/pipeline"
	"github.com/ppiankov/thermobook/internal/worker"
)

const (
	casLinkSelector   = "span[title='commonchemistry.cas.org'] a"
	missingPageMarker = "page does not exist"
	seeAlsoHeading    = "See also"
)

// Harvester turns list pages into WebBook root page URLs
type Harvester struct {
	fetch       pipeline.FetchFunc
	baseURL     string
	concurrency int
	logger      *slog.Logger
}

// NewHarvester creates a harvester fetching through fetch
func NewHarvester(fetch pipeline.FetchFunc, baseURL string, concurrency int, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = model.DefaultBaseURL
	}
	return &Harvester{fetch: fetch, baseURL: baseURL, concurrency: concurrency, logger: logger}
}

// Wikipedia reads a Wikipedia list of compounds, visits every listed article
// and returns a CAS number root URL for each article that shows one.
// Article failures are logged and skipped.
func (h *Harvester) Wikipedia(ctx context.Context, listURL string) ([]string, error) {
	doc, base, err := h.document(ctx, listURL)
	if err != nil {
		return nil, err
	}
	articles := listArticles(doc, base)
	h.logger.Info("found articles", "url", listURL, "count", len(articles))

	pool := worker.NewPool(ctx, h.concurrency)
	pool.Start()
	for i, article := range articles {
		if !pool.Submit(&articleJob{index: i, url: article, h: h}) {
			break
		}
	}

	var found []*articleResult
	for _, r := range pool.Wait() {
		res := r.(*articleResult)
		if res.err != nil {
			h.logger.Warn("article skipped", "url", res.url, "err", res.err)
			continue
		}
		if res.link != "" {
			found = append(found, res)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })

	links := make([]string, 0, len(found))
	for _, res := range found {
		links = append(links, res.link)
	}
	return Dedup(links), nil
}

// NameTable reads a table of compound names: every row after the first,
// second column heading text. Names become name-query root URLs.
func (h *Harvester) NameTable(ctx context.Context, listURL string) ([]string, error) {
	doc, _, err := h.document(ctx, listURL)
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("table tbody").Each(func(_ int, body *goquery.Selection) {
		body.ChildrenFiltered("tr").Each(func(i int, tr *goquery.Selection) {
			if i == 0 {
				return
			}
			name := strings.TrimSpace(tr.ChildrenFiltered("td").Eq(1).Find("h5").First().Text())
			if name == "" {
				return
			}
			links = append(links, model.RootURLByName(h.baseURL, name))
		})
	})
	return Dedup(links), nil
}

// listArticles collects article links listed under each section heading.
// h2 sections contribute every item of their first list, h3 sections only the first item.
func listArticles(doc *goquery.Document, base *url.URL) []string {
	var articles []string
	doc.Find("h2, h3").Each(func(_ int, heading *goquery.Selection) {
		if strings.Contains(heading.Text(), seeAlsoHeading) {
			return
		}

		// Current skins wrap headings in div.mw-heading
		anchor := heading
		if parent := heading.Parent(); parent.HasClass("mw-heading") {
			anchor = parent
		}
		items := anchor.NextAllFiltered("ul").First().ChildrenFiltered("li")
		if goquery.NodeName(heading) == "h3" {
			items = items.First()
		}

		items.ChildrenFiltered("a").Each(func(_ int, a *goquery.Selection) {
			if title, _ := a.Attr("title"); strings.Contains(title, missingPageMarker) {
				return
			}
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			articles = append(articles, base.ResolveReference(ref).String())
		})
	})
	return Dedup(articles)
}

// CASLink returns the root URL for the CAS number shown on an article, or ""
func (h *Harvester) CASLink(doc *goquery.Document) string {
	cas := strings.TrimSpace(doc.Find(casLinkSelector).First().Text())
	if cas == "" {
		return ""
	}
	return model.RootURLByCAS(h.baseURL, cas)
}

func (h *Harvester) document(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	fetched, err := h.fetch(ctx, pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch list: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fetched.HTML))
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	final := fetched.FinalURL
	if final == "" {
		final = pageURL
	}
	base, err := url.Parse(final)
	if err != nil {
		return nil, nil, fmt.Errorf("parse url: %w", err)
	}
	return doc, base, nil
}

type articleJob struct {
	index int
	url   string
	h     *Harvester
}

type articleResult struct {
	index int
	url   string
	link  string
	err   error
}

func (r *articleResult) GetError() error { return r.err }

func (j *articleJob) Execute(ctx context.Context) worker.Result {
	doc, _, err := j.h.document(ctx, j.url)
	if err != nil {
		return &articleResult{index: j.index, url: j.url, err: err}
	}
	return &articleResult{index: j.index, url: j.url, link: j.h.CASLink(doc)}
}

// Dedup drops repeated links, keeping discovery order
func Dedup(links []string) []string {
	seen := make(map[string]bool, len(links))
	out := make([]string, 0, len(links))
	for _, l := range links {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

type linkItem struct {
	Link string `json:"link"`
}

// Write renders links one per line, or as [{"link": ...}] for FormatJSON
func Write(w io.Writer, links []string, format string) error {
	switch format {
	case FormatJSON:
		items := make([]linkItem, len(links))
		for i, l := range links {
			items[i] = linkItem{Link: l}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(items)
	case FormatText, "":
		for _, l := range links {
			if _, err := fmt.Fprintln(w, l); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}
