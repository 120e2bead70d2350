package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"trip-agent/search"
)

func plainResult(url, title, content string) search.Result {
	return search.Result{URL: url, Title: title, RawContent: content}
}

func TestCollectRestrictedOnly(t *testing.T) {
	searcher := &fakeSearcher{
		searchFn: func(req search.Request) (*search.Response, error) {
			return &search.Response{Results: []search.Result{
				plainResult("https://iyokannet.jp/spot/1", "道後温泉", "Historic onsen in Matsuyama."),
				plainResult("https://iyokannet.jp/spot/2", "松山城", "Castle on Katsuyama hill."),
			}}, nil
		},
	}
	r := newTestRAG(t, testConfig(), searcher, nil, nil)

	items := r.Collect(context.Background(), "道後温泉", 5, false)

	if len(searcher.searches) != 1 {
		t.Fatalf("expected a single search call, got %d", len(searcher.searches))
	}
	req := searcher.searches[0]
	if req.MaxResults != 5 {
		t.Errorf("MaxResults = %d, want 5", req.MaxResults)
	}
	if len(req.IncludeDomains) == 0 {
		t.Error("restricted search should carry the domain allowlist")
	}
	if req.SearchDepth != "advanced" || req.IncludeRawContent != "markdown" {
		t.Errorf("unexpected search parameters: %+v", req)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		if item.Site != "いよ観ネット" {
			t.Errorf("restricted item site = %q", item.Site)
		}
	}
}

func TestCollectSplitsBudgetWithOpenWeb(t *testing.T) {
	searcher := &fakeSearcher{
		searchFn: func(req search.Request) (*search.Response, error) {
			return &search.Response{}, nil
		},
	}
	r := newTestRAG(t, testConfig(), searcher, nil, nil)

	r.Collect(context.Background(), "query", 5, true)

	if len(searcher.searches) != 2 {
		t.Fatalf("expected two search calls, got %d", len(searcher.searches))
	}
	// Odd budgets favor the restricted-domain search.
	if searcher.searches[0].MaxResults != 3 {
		t.Errorf("restricted MaxResults = %d, want 3", searcher.searches[0].MaxResults)
	}
	if searcher.searches[1].MaxResults != 2 {
		t.Errorf("open-web MaxResults = %d, want 2", searcher.searches[1].MaxResults)
	}
	if len(searcher.searches[1].IncludeDomains) != 0 {
		t.Error("open-web search must not carry the domain allowlist")
	}
}

func TestCollectSurvivesRestrictedFailure(t *testing.T) {
	searcher := &fakeSearcher{
		searchFn: func(req search.Request) (*search.Response, error) {
			if len(req.IncludeDomains) > 0 {
				return nil, fmt.Errorf("upstream 502")
			}
			results := make([]search.Result, 0, req.MaxResults)
			for i := 0; i < req.MaxResults; i++ {
				url := fmt.Sprintf("https://blog.example.com/post/%d", i)
				results = append(results, plainResult(url, fmt.Sprintf("Post %d", i), "Some travel notes."))
			}
			return &search.Response{Results: results}, nil
		},
	}
	r := newTestRAG(t, testConfig(), searcher, nil, nil)

	items := r.Collect(context.Background(), "query", 10, true)

	if len(items) != 5 {
		t.Fatalf("expected the open-web half of the budget, got %d items", len(items))
	}
	for _, item := range items {
		if item.Site != "blog.example.com" {
			t.Errorf("open-web site label = %q", item.Site)
		}
	}
}

func TestCollectDeduplicatesURLs(t *testing.T) {
	shared := "https://iyokannet.jp/feature/10"
	searcher := &fakeSearcher{
		searchFn: func(req search.Request) (*search.Response, error) {
			if len(req.IncludeDomains) > 0 {
				return &search.Response{Results: []search.Result{
					plainResult("https://iyokannet.jp/spot/1", "A", "content a"),
					plainResult(shared, "B", "content b"),
				}}, nil
			}
			return &search.Response{Results: []search.Result{
				plainResult(shared, "B again", "content b duplicate"),
				plainResult("https://other.example.com/c", "C", "content c"),
			}}, nil
		},
	}
	r := newTestRAG(t, testConfig(), searcher, nil, nil)

	items := r.Collect(context.Background(), "query", 4, true)

	if len(items) != 3 {
		t.Fatalf("expected 3 deduplicated items, got %d", len(items))
	}
	// The first occurrence wins, so the shared URL keeps the restricted label.
	if items[1].URL != shared || items[1].Site != "いよ観ネット" {
		t.Errorf("shared URL item = %+v", items[1])
	}
	if items[2].Title != "C" {
		t.Errorf("expected open-web item C last, got %+v", items[2])
	}
}

func TestCollectTitleFallbackAndTruncation(t *testing.T) {
	longTitle := strings.Repeat("観", 200)
	searcher := &fakeSearcher{
		searchFn: func(req search.Request) (*search.Response, error) {
			return &search.Response{Results: []search.Result{
				plainResult("https://iyokannet.jp/a", "", "content"),
				plainResult("https://iyokannet.jp/b", longTitle, "content"),
			}}, nil
		},
	}
	r := newTestRAG(t, testConfig(), searcher, nil, nil)

	items := r.Collect(context.Background(), "query", 2, false)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "https://iyokannet.jp/a" {
		t.Errorf("missing title should fall back to the URL, got %q", items[0].Title)
	}
	if got := utf8.RuneCountInString(items[1].Title); got != 180 {
		t.Errorf("title rune count = %d, want 180", got)
	}
}

func TestCollectCapsContent(t *testing.T) {
	long := strings.Repeat("あ", 12000)
	searcher := &fakeSearcher{
		searchFn: func(req search.Request) (*search.Response, error) {
			return &search.Response{Results: []search.Result{
				plainResult("https://iyokannet.jp/long", "Long", long),
			}}, nil
		},
	}
	r := newTestRAG(t, testConfig(), searcher, nil, nil)

	items := r.Collect(context.Background(), "query", 1, false)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if got := utf8.RuneCountInString(items[0].Content); got != 10000 {
		t.Errorf("stored content rune count = %d, want 10000", got)
	}
	// ContentChars reports the pre-cap size.
	if items[0].ContentChars != 12000 {
		t.Errorf("ContentChars = %d, want 12000", items[0].ContentChars)
	}
}

func TestCollectExtractionFallback(t *testing.T) {
	searcher := &fakeSearcher{
		searchFn: func(req search.Request) (*search.Response, error) {
			return &search.Response{Results: []search.Result{
				{URL: "https://iyokannet.jp/empty", Title: "Empty"},
				{URL: "https://iyokannet.jp/broken", Title: "Broken"},
				plainResult("https://iyokannet.jp/fine", "Fine", "inline content"),
			}}, nil
		},
		extractFn: func(url string) (string, error) {
			if strings.HasSuffix(url, "/broken") {
				return "", fmt.Errorf("fetch failed")
			}
			return "recovered page text", nil
		},
	}
	r := newTestRAG(t, testConfig(), searcher, nil, nil)

	items := r.Collect(context.Background(), "query", 3, false)

	if len(searcher.extracts) != 2 {
		t.Fatalf("expected 2 extraction attempts, got %d", len(searcher.extracts))
	}
	// The failed extraction drops its item only.
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Content != "recovered page text" {
		t.Errorf("extracted content = %q", items[0].Content)
	}
	if items[1].Content != "inline content" {
		t.Errorf("inline content = %q", items[1].Content)
	}
}

func TestHostLabel(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/page", "example.com"},
		{"https://blog.example.jp/a", "blog.example.jp"},
		{"not a url", "web"},
		{"", "web"},
	}
	for _, tt := range tests {
		if got := hostLabel(tt.url); got != tt.want {
			t.Errorf("hostLabel(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
