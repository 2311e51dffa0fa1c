package pipeline

import (
	"github.com/mikeboe/search-agent/pkg/brightdata"
	"github.com/mikeboe/search-agent/pkg/llm"
)

// Config carries the provider credentials and dataset identifiers a run
// needs. Values are copied into the state at run start and never persisted
// by the pipeline.
type Config struct {
	BrightDataAPIKey        string
	RedditDatasetID         string
	RedditCommentsDatasetID string
}

// State is the single record threaded through every stage of a run. Each
// field is populated by exactly one stage; nil means the owning stage has
// not run or was degraded. A State is exclusively owned by one in-flight
// run and must never be shared across runs.
type State struct {
	Question string `json:"question"`
	Config   Config `json:"-"`

	// Append-only message log: the question up front, the final answer
	// once synthesis completes. Kept for a future multi-turn extension.
	Messages []llm.Message `json:"messages,omitempty"`

	GoogleResults *brightdata.SerpResults   `json:"google_results,omitempty"`
	BingResults   *brightdata.SerpResults   `json:"bing_results,omitempty"`
	RedditResults *brightdata.RedditResults `json:"reddit_results,omitempty"`

	// Non-nil after the selection stage; empty on failure or when the
	// Reddit search produced nothing.
	SelectedRedditURLs []string                   `json:"selected_reddit_urls,omitempty"`
	RedditPostData     *brightdata.RedditComments `json:"reddit_post_data,omitempty"`

	GoogleAnalysis string `json:"google_analysis,omitempty"`
	BingAnalysis   string `json:"bing_analysis,omitempty"`
	RedditAnalysis string `json:"reddit_analysis,omitempty"`

	// Set if and only if the synthesis stage completed.
	FinalAnswer string `json:"final_answer,omitempty"`
}

func newState(question string, cfg Config) *State {
	return &State{
		Question: question,
		Config:   cfg,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: question}},
	}
}
