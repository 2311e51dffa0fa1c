package brightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Engines supported by SerpSearch.
const (
	EngineGoogle = "google"
	EngineBing   = "bing"
)

// OrganicResult is a single organic search hit.
type OrganicResult struct {
	Title       string `json:"title,omitempty"`
	Link        string `json:"link,omitempty"`
	Description string `json:"description,omitempty"`
}

// SerpResults holds the sections of a SERP response the pipeline consumes.
// The raw provider payload is never passed along.
type SerpResults struct {
	Knowledge map[string]any  `json:"knowledge,omitempty"`
	Organic   []OrganicResult `json:"organic"`
}

// SerpSearch runs a web search through the Bright Data SERP zone and
// extracts the organic results and knowledge panel.
func (c *Client) SerpSearch(ctx context.Context, query, engine string) (*SerpResults, error) {
	var base string
	switch engine {
	case EngineGoogle:
		base = "https://www.google.com/search"
	case EngineBing:
		base = "https://www.bing.com/search"
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}

	payload := map[string]string{
		"zone":   "ai_agent",
		"url":    fmt.Sprintf("%s?q=%s&brd_json=1", base, url.QueryEscape(query)),
		"format": "raw",
	}

	c.logger.Info("Requesting SERP results", "engine", engine, "query", query)
	data, err := c.doPost(ctx, "/request", nil, payload)
	if err != nil {
		return nil, fmt.Errorf("serp search failed: %w", err)
	}

	var full struct {
		Knowledge map[string]any  `json:"knowledge"`
		Organic   []OrganicResult `json:"organic"`
	}
	if err := json.Unmarshal(data, &full); err != nil {
		return nil, fmt.Errorf("failed to decode serp response: %w", err)
	}

	results := &SerpResults{Knowledge: full.Knowledge, Organic: full.Organic}
	if results.Organic == nil {
		results.Organic = []OrganicResult{}
	}
	c.logger.Info("SERP search complete", "engine", engine, "organic", len(results.Organic))
	return results, nil
}
