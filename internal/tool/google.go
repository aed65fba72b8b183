package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultGoogleEndpoint is the Google Custom Search JSON API.
const DefaultGoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

const (
	searchMaxAttempts = 5
	searchMaxElapsed  = 60 * time.Second
)

// SearchLink is one search result
type SearchLink struct {
	URL     string
	Snippet string
}

// SearchProvider returns one page of results for query, starting at start.
type SearchProvider interface {
	Search(ctx context.Context, query string, start int) ([]SearchLink, error)
}

// GoogleProvider searches with Google Custom Search.
type GoogleProvider struct {
	client   *http.Client
	apiKey   string
	cseID    string
	endpoint string

	// newBackOff builds the retry policy of one search.
	newBackOff func() backoff.BackOff
}

// NewGoogleProviderFromEnv reads GOOGLE_CSE_API_KEY and GOOGLE_CSE_ID.
func NewGoogleProviderFromEnv(client *http.Client) (*GoogleProvider, error) {
	apiKey := os.Getenv("GOOGLE_CSE_API_KEY")
	cseID := os.Getenv("GOOGLE_CSE_ID")
	if apiKey == "" || cseID == "" {
		return nil, fmt.Errorf("%w: GOOGLE_CSE_ID and/or GOOGLE_CSE_API_KEY not set in the environment; both are required to use Google Custom Search with the web_search tool", ErrPrerequisite)
	}
	return NewGoogleProvider(client, apiKey, cseID, DefaultGoogleEndpoint), nil
}

// NewGoogleProvider creates a provider for an explicit endpoint.
func NewGoogleProvider(client *http.Client, apiKey, cseID, endpoint string) *GoogleProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleProvider{
		client:     client,
		apiKey:     apiKey,
		cseID:      cseID,
		endpoint:   endpoint,
		newBackOff: defaultSearchBackOff,
	}
}

// defaultSearchBackOff retries with jittered exponential waits, up to five
// attempts or one minute.
func defaultSearchBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = searchMaxElapsed
	return backoff.WithMaxRetries(b, searchMaxAttempts-1)
}

type googleResponse struct {
	Items []struct {
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search runs one Custom Search request. Transport errors, 429 and 5xx
// responses are retried.
func (g *GoogleProvider) Search(ctx context.Context, query string, start int) ([]SearchLink, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", g.apiKey)
	params.Set("cx", g.cseID)
	params.Set("start", strconv.Itoa(start))
	searchURL := g.endpoint + "?" + params.Encode()

	var data googleResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := g.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("google search: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("google search: status %d", resp.StatusCode))
		}

		data = googleResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return backoff.Permanent(fmt.Errorf("decode google search response: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(g.newBackOff(), ctx)); err != nil {
		return nil, err
	}

	links := make([]SearchLink, 0, len(data.Items))
	for _, item := range data.Items {
		links = append(links, SearchLink{URL: item.Link, Snippet: item.Snippet})
	}
	return links, nil
}
