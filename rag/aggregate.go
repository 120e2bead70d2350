package rag

import (
	"context"
	neturl "net/url"
	"strings"
	"unicode/utf8"

	"trip-agent/search"

	"go.uber.org/zap"
)

// Collect runs the configured searches for query and returns normalized,
// URL-deduplicated content items: the restricted-domain search first, then
// the open web when includeOpenWeb is set, each in provider order. A failed
// search call is logged and the other call's results are kept; collection
// never aborts because one source failed.
func (r *RAG) Collect(ctx context.Context, query string, maxResults int, includeOpenWeb bool) []SearchResultItem {
	if maxResults <= 0 {
		maxResults = r.cfg.TopK
	}

	restrictedMax := maxResults
	openMax := 0
	if includeOpenWeb {
		// Restricted-domain search gets the ceiling share of an odd budget.
		restrictedMax = (maxResults + 1) / 2
		openMax = maxResults / 2
	}

	var items []SearchResultItem
	seen := make(map[string]bool)

	resp, err := r.searcher.Search(ctx, search.Request{
		Query:             query,
		SearchDepth:       r.cfg.SearchDepth,
		IncludeDomains:    r.cfg.SearchDomains,
		MaxResults:        restrictedMax,
		IncludeRawContent: "markdown",
		ChunksPerSource:   r.cfg.ChunksPerSource,
	})
	if err != nil {
		r.logger.Warn("Restricted-domain search failed, continuing with remaining sources",
			zap.String("query", query), zap.Error(err))
	} else {
		items = append(items, r.prepareResults(ctx, resp.Results, r.cfg.RestrictedSiteLabel, seen)...)
	}

	if includeOpenWeb && openMax > 0 {
		resp, err := r.searcher.Search(ctx, search.Request{
			Query:             query,
			SearchDepth:       r.cfg.SearchDepth,
			MaxResults:        openMax,
			IncludeRawContent: "markdown",
			ChunksPerSource:   r.cfg.ChunksPerSource,
		})
		if err != nil {
			r.logger.Warn("Open-web search failed, continuing with remaining sources",
				zap.String("query", query), zap.Error(err))
		} else {
			items = append(items, r.prepareResults(ctx, resp.Results, "", seen)...)
		}
	}

	r.logger.Info("Collected search results",
		zap.String("query", query),
		zap.Int("items", len(items)),
		zap.Bool("open_web", includeOpenWeb))
	return items
}

// prepareResults turns raw provider records into SearchResultItems:
// title fallback and truncation, content resolution with the extraction
// fallback, normalization, the content cap and URL dedup. An empty siteLabel
// means the label is derived from the URL host.
func (r *RAG) prepareResults(ctx context.Context, results []search.Result, siteLabel string, seen map[string]bool) []SearchResultItem {
	var items []SearchResultItem
	for _, res := range results {
		url := strings.TrimSpace(res.URL)
		if url == "" || seen[url] {
			continue
		}

		title := strings.TrimSpace(res.Title)
		if title == "" {
			title = url
		}
		title = truncateRunes(title, r.cfg.TitleMaxChars)

		raw := res.RawContent
		if raw == "" {
			raw = res.Content.Joined()
		}
		cleaned := Normalize(raw)
		if cleaned == "" {
			// Best effort: a failed extraction skips the item, not the batch.
			extracted, err := r.searcher.Extract(ctx, url)
			if err != nil {
				r.logger.Warn("Extraction fallback failed, skipping result",
					zap.String("url", url), zap.Error(err))
				continue
			}
			cleaned = Normalize(extracted)
		}
		if cleaned == "" {
			continue
		}

		site := siteLabel
		if site == "" {
			site = hostLabel(url)
		}

		contentChars := utf8.RuneCountInString(cleaned)
		items = append(items, SearchResultItem{
			Title:        title,
			URL:          url,
			Site:         site,
			Content:      truncateRunes(cleaned, r.cfg.MaxContentChars),
			ContentChars: contentChars,
		})
		seen[url] = true
	}
	return items
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// hostLabel derives a site label from a URL's host name.
func hostLabel(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil || u.Host == "" {
		return "web"
	}
	return strings.TrimPrefix(u.Host, "www.")
}
