package tool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/harrison/evalrun/internal/models"
)

// judge answers relevance prompts with "yes" when the page content contains
// keyword.
type judge struct {
	keyword string

	mu      sync.Mutex
	prompts []string
}

func (j *judge) Name() string { return "mockllm/judge" }

func (j *judge) Generate(ctx context.Context, messages []models.Message, tools []models.ToolInfo) (models.Message, error) {
	prompt := messages[len(messages)-1].Content
	j.mu.Lock()
	j.prompts = append(j.prompts, prompt)
	j.mu.Unlock()

	content := prompt[strings.Index(prompt, "Page Content:"):]
	if strings.Contains(content, j.keyword) {
		return models.AssistantMessage("Yes."), nil
	}
	return models.AssistantMessage("no"), nil
}

type stubProvider struct {
	mu     sync.Mutex
	pages  map[int][]SearchLink
	starts []int
	err    error
}

func (p *stubProvider) Search(ctx context.Context, query string, start int) ([]SearchLink, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts = append(p.starts, start)
	if p.err != nil {
		return nil, p.err
	}
	return p.pages[start], nil
}

func pageServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewWebSearch(t *testing.T) {
	t.Run("requires a model", func(t *testing.T) {
		_, err := NewWebSearch(WebSearchOptions{SearchProvider: &stubProvider{}})
		assert.Error(t, err)
	})

	t.Run("rejects unknown providers", func(t *testing.T) {
		_, err := NewWebSearch(WebSearchOptions{Provider: "bing", Model: &judge{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"bing" not supported`)
	})

	t.Run("google needs credentials", func(t *testing.T) {
		t.Setenv("GOOGLE_CSE_API_KEY", "")
		t.Setenv("GOOGLE_CSE_ID", "")
		_, err := NewWebSearch(WebSearchOptions{Model: &judge{}})
		assert.ErrorIs(t, err, ErrPrerequisite)
	})

	t.Run("defaults", func(t *testing.T) {
		ws, err := NewWebSearch(WebSearchOptions{Model: &judge{}, SearchProvider: &stubProvider{}})
		require.NoError(t, err)
		assert.Equal(t, 3, ws.numResults)
		assert.Equal(t, 3, ws.maxProviderCalls)
		assert.Equal(t, 10, ws.maxConnections)
		assert.Equal(t, "google", ws.provider)
	})
}

func TestWebSearchInfo(t *testing.T) {
	ws, err := NewWebSearch(WebSearchOptions{Model: &judge{}, SearchProvider: &stubProvider{}})
	require.NoError(t, err)

	info := ws.Info()
	assert.Equal(t, WebSearchName, info.Name)
	assert.Equal(t, []string{"query"}, info.Required)
	assert.Equal(t, "string", info.Parameters["query"].Type)
}

func TestWebSearchCollectsRelevantPages(t *testing.T) {
	server := pageServer(t, map[string]string{
		"/gophers": `<html><body><nav><p>menu</p></nav><main><p>Gophers are rodents.</p><p>They dig <b>tunnels</b>.</p></main></body></html>`,
		"/cats":    `<html><body><p>Cats purr.</p></body></html>`,
		"/burrows": `<html><body><p>A gophers burrow is deep.</p><script>var x = 1;</script></body></html>`,
	})

	provider := &stubProvider{pages: map[int][]SearchLink{
		0: {
			{URL: server.URL + "/gophers"},
			{URL: server.URL + "/missing"},
			{URL: server.URL + "/cats"},
			{URL: server.URL + "/burrows"},
		},
	}}
	j := &judge{keyword: "ophers"}

	ws, err := NewWebSearch(WebSearchOptions{
		NumResults:     2,
		Model:          j,
		HTTPClient:     server.Client(),
		SearchProvider: provider,
	})
	require.NoError(t, err)

	out, err := ws.Call(context.Background(), map[string]interface{}{"query": "what are gophers"})
	require.NoError(t, err)

	assert.Equal(t, resultsPreamble+"Gophers are rodents. They dig tunnels .\n\nA gophers burrow is deep.", out)
	assert.Equal(t, []int{0}, provider.starts)
	assert.Len(t, j.prompts, 3)
	assert.Contains(t, j.prompts[0], "Question: what are gophers\nPage Content: ")
}

func TestWebSearchPaginates(t *testing.T) {
	server := pageServer(t, map[string]string{
		"/a": `<p>nothing here</p>`,
		"/b": `<p>the answer</p>`,
	})

	provider := &stubProvider{pages: map[int][]SearchLink{
		0:  {{URL: server.URL + "/a"}},
		10: {{URL: server.URL + "/a"}},
		20: {{URL: server.URL + "/b"}},
	}}

	ws, err := NewWebSearch(WebSearchOptions{
		NumResults:     1,
		Model:          &judge{keyword: "answer"},
		HTTPClient:     server.Client(),
		SearchProvider: provider,
	})
	require.NoError(t, err)

	out, err := ws.Call(context.Background(), map[string]interface{}{"query": "q"})
	require.NoError(t, err)
	assert.Equal(t, resultsPreamble+"the answer", out)
	assert.Equal(t, []int{0, 10, 20}, provider.starts)
}

func TestWebSearchNoRelevantPages(t *testing.T) {
	server := pageServer(t, map[string]string{"/a": `<p>unrelated</p>`})
	provider := &stubProvider{pages: map[int][]SearchLink{0: {{URL: server.URL + "/a"}}}}

	ws, err := NewWebSearch(WebSearchOptions{
		MaxProviderCalls: 2,
		Model:            &judge{keyword: "answer"},
		HTTPClient:       server.Client(),
		SearchProvider:   provider,
	})
	require.NoError(t, err)

	out, err := ws.Call(context.Background(), map[string]interface{}{"query": "q"})
	require.NoError(t, err)
	assert.Equal(t, noResultsResponse, out)
	assert.Equal(t, []int{0, 10}, provider.starts)
}

func TestWebSearchErrors(t *testing.T) {
	provider := &stubProvider{err: errors.New("quota exceeded")}
	ws, err := NewWebSearch(WebSearchOptions{Model: &judge{}, SearchProvider: provider})
	require.NoError(t, err)

	_, err = ws.Call(context.Background(), map[string]interface{}{"query": "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = ws.Call(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestExtractTextWordLimit(t *testing.T) {
	para := "<p>" + strings.Repeat("word ", 900) + "</p>"
	doc, err := html.Parse(strings.NewReader("<body>" + para + para + para + para + "</body>"))
	require.NoError(t, err)

	text := extractText(doc)
	assert.Equal(t, 2700, len(strings.Fields(text)))
}

func TestBuild(t *testing.T) {
	tools, err := Build([]string{WebSearchName, WebSearchName}, Options{
		WebSearch: WebSearchOptions{Model: &judge{}, SearchProvider: &stubProvider{}},
	})
	require.NoError(t, err)
	require.Len(t, tools, 1)

	found, ok := Find(tools, WebSearchName)
	assert.True(t, ok)
	assert.Equal(t, tools[0], found)
	assert.Equal(t, WebSearchName, Infos(tools)[0].Name)

	_, ok = Find(tools, "bash")
	assert.False(t, ok)

	_, err = Build([]string{"bash"}, Options{})
	assert.Error(t, err)
}

func TestStringArg(t *testing.T) {
	args := map[string]interface{}{"s": "text", "n": float64(42), "b": true, "l": []string{"x"}}

	s, err := StringArg(args, "s")
	require.NoError(t, err)
	assert.Equal(t, "text", s)

	s, err = StringArg(args, "n")
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	s, err = StringArg(args, "b")
	require.NoError(t, err)
	assert.Equal(t, "true", s)

	_, err = StringArg(args, "l")
	assert.Error(t, err)
	_, err = StringArg(args, "missing")
	assert.Error(t, err)
}

func TestAcquireLimitsConcurrency(t *testing.T) {
	release, err := acquire(context.Background(), "test_limit", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = acquire(ctx, "test_limit", 1)
	assert.ErrorIs(t, err, context.Canceled)

	release()
	release2, err := acquire(context.Background(), "test_limit", 1)
	require.NoError(t, err)
	release2()
}
