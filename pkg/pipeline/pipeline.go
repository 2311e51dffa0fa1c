// Package pipeline orchestrates the multi-source research run: concurrent
// Google, Bing and Reddit retrieval, model-driven selection of Reddit posts
// worth a deep dive, per-source analysis, and a final synthesis.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/mikeboe/search-agent/pkg/brightdata"
	"github.com/mikeboe/search-agent/pkg/llm"
)

// Gateway is the data-collection capability the retrieval stages depend on.
// *brightdata.Client satisfies it; tests substitute fakes.
type Gateway interface {
	SerpSearch(ctx context.Context, query, engine string) (*brightdata.SerpResults, error)
	RedditSearch(ctx context.Context, keyword, datasetID string) (*brightdata.RedditResults, error)
	RedditPostRetrieval(ctx context.Context, urls []string, commentsDatasetID string) (*brightdata.RedditComments, error)
}

// Pipeline executes the research stage graph. The graph topology is fixed
// at construction; all mutable state lives in the per-run State, so one
// Pipeline may serve concurrent runs.
type Pipeline struct {
	gateway Gateway
	llm     llm.Client
	logger  *slog.Logger
	graph   graph
}

func New(gateway Gateway, model llm.Client, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{gateway: gateway, llm: model, logger: logger}

	// Two barriers: the three searches join into selection (the google and
	// bing edges only enforce ordering; selection reads reddit data alone),
	// and the deep dive joins into the three analyses.
	p.graph = graph{stages: []stage{
		{name: "google_search", run: p.googleSearch},
		{name: "bing_search", run: p.bingSearch},
		{name: "reddit_search", run: p.redditSearch},
		{name: "select_reddit_urls", deps: []string{"google_search", "bing_search", "reddit_search"}, run: p.selectRedditURLs},
		{name: "retrieve_reddit_posts", deps: []string{"select_reddit_urls"}, run: p.retrieveRedditPosts},
		{name: "analyze_google", deps: []string{"retrieve_reddit_posts"}, run: p.analyzeGoogle},
		{name: "analyze_bing", deps: []string{"retrieve_reddit_posts"}, run: p.analyzeBing},
		{name: "analyze_reddit", deps: []string{"retrieve_reddit_posts"}, run: p.analyzeReddit},
		{name: "synthesize", deps: []string{"analyze_google", "analyze_bing", "analyze_reddit"}, run: p.synthesize},
	}}
	return p
}

// Run executes the full research graph for a question and returns the
// final state snapshot. Degraded sources surface as absent fields; an
// analysis or synthesis failure aborts the run with an error.
func (p *Pipeline) Run(ctx context.Context, question string, cfg Config) (*State, error) {
	p.logger.Info("Starting research", "question", question)
	state := newState(question, cfg)
	if err := p.graph.execute(ctx, state); err != nil {
		return nil, err
	}
	p.logger.Info("Research pipeline finished")
	return state, nil
}
