package tool

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/harrison/evalrun/internal/model"
	"github.com/harrison/evalrun/internal/models"
)

// WebSearchName is the name models use to call the web search tool.
const WebSearchName = "web_search"

const (
	maxPageWords = 2000

	noResultsResponse = "I'm sorry, I couldn't find any relevant information on the web."
	resultsPreamble   = "Here are your web search results. Please read them carefully as they may be useful later! "

	relevancePrompt = `I am trying to answer the following question and need to find the most relevant information on the web. Please let me know if the following content is relevant to the question or not. You should just respond with "yes" or "no".

Question: %s
Page Content: %s
`
)

// WebSearchOptions configures the web search tool
type WebSearchOptions struct {
	Provider         string // Only "google" is supported
	NumResults       int    // Relevant pages to return
	MaxProviderCalls int    // Result pages to request from the provider
	MaxConnections   int    // Concurrent provider requests across all searches
	Model            model.Model
	HTTPClient       *http.Client
	SearchProvider   SearchProvider // Overrides Provider when set
}

// WebSearch searches the web, keeps the pages a model judges relevant to the
// query and returns their text.
type WebSearch struct {
	provider         string
	search           SearchProvider
	numResults       int
	maxProviderCalls int
	maxConnections   int
	model            model.Model
	client           *http.Client
}

// NewWebSearch creates the web search tool.
func NewWebSearch(opts WebSearchOptions) (*WebSearch, error) {
	if opts.Provider == "" {
		opts.Provider = "google"
	}
	if opts.NumResults <= 0 {
		opts.NumResults = 3
	}
	if opts.MaxProviderCalls <= 0 {
		opts.MaxProviderCalls = 3
	}
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = 10
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Model == nil {
		return nil, fmt.Errorf("web_search requires a model to judge page relevance")
	}

	search := opts.SearchProvider
	if search == nil {
		if opts.Provider != "google" {
			return nil, fmt.Errorf("web_search provider %q not supported; only \"google\" is supported", opts.Provider)
		}
		g, err := NewGoogleProviderFromEnv(opts.HTTPClient)
		if err != nil {
			return nil, err
		}
		search = g
	}

	return &WebSearch{
		provider:         opts.Provider,
		search:           search,
		numResults:       opts.NumResults,
		maxProviderCalls: opts.MaxProviderCalls,
		maxConnections:   opts.MaxConnections,
		model:            opts.Model,
		client:           opts.HTTPClient,
	}, nil
}

func (w *WebSearch) Info() models.ToolInfo {
	return models.ToolInfo{
		Name:        WebSearchName,
		Description: "Use the web_search tool to perform keyword searches of the web.",
		Parameters: map[string]models.ToolParam{
			"query": {Type: "string", Description: "Search query."},
		},
		Required: []string{"query"},
	}
}

// Call pages through provider results until NumResults relevant pages are
// found or MaxProviderCalls requests were made. Pages that fail to load are
// skipped.
func (w *WebSearch) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	query, err := StringArg(args, "query")
	if err != nil {
		return "", err
	}

	var pages []string
	for calls := 0; len(pages) < w.numResults && calls < w.maxProviderCalls; calls++ {
		links, err := w.searchPage(ctx, query, calls*10)
		if err != nil {
			return "", fmt.Errorf("web search: %w", err)
		}

		found := make([]string, len(links))
		var wg sync.WaitGroup
		for i, link := range links {
			wg.Add(1)
			go func(i int, link SearchLink) {
				defer wg.Done()
				if page, err := w.pageIfRelevant(ctx, link.URL, query); err == nil {
					found[i] = page
				}
			}(i, link)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return "", err
		}
		for _, page := range found {
			if page != "" {
				pages = append(pages, page)
			}
		}
	}

	if len(pages) == 0 {
		return noResultsResponse, nil
	}
	return resultsPreamble + strings.Join(pages, "\n\n"), nil
}

func (w *WebSearch) searchPage(ctx context.Context, query string, start int) ([]SearchLink, error) {
	release, err := acquire(ctx, w.provider+"_web_search", w.maxConnections)
	if err != nil {
		return nil, err
	}
	defer release()
	return w.search.Search(ctx, query, start)
}

// pageIfRelevant returns the page's text when the model judges it relevant
// to query, or "" when it does not.
func (w *WebSearch) pageIfRelevant(ctx context.Context, link, query string) (string, error) {
	text, err := w.fetchText(ctx, link)
	if err != nil {
		return "", err
	}

	reply, err := w.model.Generate(ctx, []models.Message{
		models.UserMessage(fmt.Sprintf(relevancePrompt, query, text)),
	}, nil)
	if err != nil {
		return "", err
	}
	if !strings.Contains(strings.ToLower(reply.Content), "yes") {
		return "", nil
	}
	return text, nil
}

func (w *WebSearch) fetchText(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: status %d", link, resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", link, err)
	}
	doc, err := html.Parse(body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", link, err)
	}
	return extractText(doc), nil
}

// extractText collects the paragraph text of the page's <main> element, or
// of <body> when there is none, stopping once maxPageWords is exceeded.
func extractText(doc *html.Node) string {
	root := findElement(doc, atom.Main)
	if root == nil {
		root = findElement(doc, atom.Body)
	}
	if root == nil {
		root = doc
	}

	var paragraphs []string
	words := 0
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			text := nodeText(n)
			if text != "" {
				paragraphs = append(paragraphs, text)
				words += len(strings.Fields(text))
			}
			return words <= maxPageWords
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(root)

	return strings.Join(paragraphs, " ")
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// nodeText joins the trimmed text nodes under n with single spaces, skipping
// script and style content.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
