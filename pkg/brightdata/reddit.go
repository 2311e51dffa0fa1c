package brightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// RedditPost is the minimal slice of a discovered Reddit post the pipeline
// needs: enough to present to the model for URL selection.
type RedditPost struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// RedditResults is the normalized outcome of a Reddit keyword search.
type RedditResults struct {
	ParsedPosts []RedditPost `json:"parsed_posts"`
	TotalFound  int          `json:"total_found"`
}

// RedditComment is one normalized comment from a deep-dive retrieval.
type RedditComment struct {
	CommentID string `json:"comment_id"`
	Content   string `json:"content"`
	Date      string `json:"date"`
}

// RedditComments is the normalized outcome of a deep-dive retrieval.
type RedditComments struct {
	Comments       []RedditComment `json:"comments"`
	TotalRetrieved int             `json:"total_retrieved"`
}

// RedditSearch discovers Reddit posts matching a keyword through the
// dataset trigger/poll/download protocol and normalizes them to title+url.
func (c *Client) RedditSearch(ctx context.Context, keyword, datasetID string) (*RedditResults, error) {
	if datasetID == "" {
		return nil, fmt.Errorf("dataset id is required for Reddit search")
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("api key is required for Reddit search")
	}

	params := url.Values{}
	params.Set("dataset_id", datasetID)
	params.Set("include_errors", "true")
	params.Set("type", "discover_new")
	params.Set("discover_by", "keyword")

	payload := []map[string]any{{
		"keyword":      keyword,
		"date":         "All time",
		"sort_by":      "Hot",
		"num_of_posts": 75,
	}}

	items, err := c.triggerAndDownload(ctx, params, payload, "reddit search")
	if err != nil {
		return nil, err
	}

	results := &RedditResults{ParsedPosts: []RedditPost{}}
	for _, item := range items {
		var post RedditPost
		if err := json.Unmarshal(item, &post); err != nil {
			c.logger.Warn("Dropping malformed reddit post entry", "error", err)
			continue
		}
		results.ParsedPosts = append(results.ParsedPosts, post)
	}
	results.TotalFound = len(results.ParsedPosts)
	c.logger.Info("Reddit search complete", "found", results.TotalFound)
	return results, nil
}

// RedditPostRetrieval fetches the comments for a set of post URLs in a
// single collection job. A nil or empty URL list returns nil without any
// provider call.
func (c *Client) RedditPostRetrieval(ctx context.Context, urls []string, commentsDatasetID string) (*RedditComments, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if commentsDatasetID == "" {
		return nil, fmt.Errorf("comments dataset id is required for Reddit comments retrieval")
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("api key is required for Reddit comments retrieval")
	}

	params := url.Values{}
	params.Set("dataset_id", commentsDatasetID)
	params.Set("include_errors", "true")

	payload := make([]map[string]any, 0, len(urls))
	for _, u := range urls {
		payload = append(payload, map[string]any{
			"url":              u,
			"days_back":        10,
			"load_all_replies": false,
			"comment_limit":    "",
		})
	}

	items, err := c.triggerAndDownload(ctx, params, payload, "reddit comments")
	if err != nil {
		return nil, err
	}

	results := &RedditComments{Comments: []RedditComment{}}
	for _, item := range items {
		var raw struct {
			CommentID  string `json:"comment_id"`
			Comment    string `json:"comment"`
			DatePosted string `json:"date_posted"`
		}
		if err := json.Unmarshal(item, &raw); err != nil {
			c.logger.Warn("Dropping malformed reddit comment entry", "error", err)
			continue
		}
		results.Comments = append(results.Comments, RedditComment{
			CommentID: raw.CommentID,
			Content:   raw.Comment,
			Date:      raw.DatePosted,
		})
	}
	results.TotalRetrieved = len(results.Comments)
	c.logger.Info("Reddit comments retrieval complete", "retrieved", results.TotalRetrieved)
	return results, nil
}
