package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"trip-agent/config"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Request mirrors the Tavily /search payload. Zero-valued optional fields are
// omitted so the provider applies its own defaults.
type Request struct {
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
	IncludeRawContent string   `json:"include_raw_content,omitempty"`
	ChunksPerSource   int      `json:"chunks_per_source,omitempty"`
	IncludeAnswer     bool     `json:"include_answer"`
}

// Result is one record of a Tavily search response. Every field is optional
// on the wire; callers must apply their own fallbacks.
type Result struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	RawContent string    `json:"raw_content"`
	Content    Fragments `json:"content"`
}

// Fragments tolerates the content field arriving as a single string or as a
// list of snippet strings, depending on the provider's chunking settings.
type Fragments []string

func (f *Fragments) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = nil
		} else {
			*f = Fragments{s}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*f = Fragments(list)
	return nil
}

// Joined concatenates the fragments with newlines.
func (f Fragments) Joined() string {
	return strings.Join([]string(f), "\n")
}

// Response is the subset of the Tavily search response the pipeline reads.
type Response struct {
	Results []Result `json:"results"`
}

type extractRequest struct {
	URLs []string `json:"urls"`
}

type extractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
		Text       string `json:"text"`
	} `json:"results"`
	FailedResults []struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	} `json:"failed_results"`
}

// Client talks to the Tavily search API. Extraction results are cached for
// the life of the process so repeated collections don't re-fetch a page.
type Client struct {
	cfg          *config.Config
	httpClient   *http.Client
	logger       *zap.Logger
	extractCache *lru.Cache
}

func New(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	size := cfg.ExtractCacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create extract cache: %w", err)
	}
	return &Client{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.SearchTimeout},
		logger:       logger,
		extractCache: cache,
	}, nil
}

// Search performs one Tavily search call.
func (c *Client) Search(ctx context.Context, req Request) (*Response, error) {
	bodyBytes, err := c.post(ctx, "/search", req)
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &resp, nil
}

// Extract fetches the extracted page text for a URL. A URL whose extraction
// already succeeded this process is served from cache.
func (c *Client) Extract(ctx context.Context, url string) (string, error) {
	if cached, ok := c.extractCache.Get(url); ok {
		if text, ok := cached.(string); ok {
			return text, nil
		}
	}

	bodyBytes, err := c.post(ctx, "/extract", extractRequest{URLs: []string{url}})
	if err != nil {
		return "", err
	}
	var resp extractResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return "", fmt.Errorf("decode extract response: %w", err)
	}
	if len(resp.Results) == 0 {
		if len(resp.FailedResults) > 0 {
			return "", fmt.Errorf("extraction failed for %s: %s", url, resp.FailedResults[0].Error)
		}
		return "", fmt.Errorf("extraction returned no results for %s", url)
	}

	text := resp.Results[0].RawContent
	if text == "" {
		text = resp.Results[0].Text
	}
	if text != "" {
		c.extractCache.Add(url, text)
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.TavilyBaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.TavilyAPIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily %s status %s: %s", path, resp.Status, string(bodyBytes))
	}
	return bodyBytes, nil
}
