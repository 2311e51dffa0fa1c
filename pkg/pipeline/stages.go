package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikeboe/search-agent/pkg/brightdata"
	"github.com/mikeboe/search-agent/pkg/llm"
	"github.com/mikeboe/search-agent/pkg/prompts"
)

// ErrMissingConfig marks a run aborted because a required credential or
// dataset identifier was absent. Raised before any network call is made.
var ErrMissingConfig = errors.New("missing required configuration")

func missingConfig(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingConfig, name)
}

// --- Source retrieval ---
//
// Provider failures degrade to an absent result so sibling stages and the
// barrier are unaffected. Missing configuration is fatal instead.

func (p *Pipeline) googleSearch(ctx context.Context, s *State) error {
	if s.Config.BrightDataAPIKey == "" {
		return missingConfig("brightdata api key")
	}
	p.logger.Info("Searching Google", "question", s.Question)
	results, err := p.gateway.SerpSearch(ctx, s.Question, brightdata.EngineGoogle)
	if err != nil {
		p.logger.Warn("Google search failed", "error", err)
		return nil
	}
	s.GoogleResults = results
	return nil
}

func (p *Pipeline) bingSearch(ctx context.Context, s *State) error {
	if s.Config.BrightDataAPIKey == "" {
		return missingConfig("brightdata api key")
	}
	p.logger.Info("Searching Bing", "question", s.Question)
	results, err := p.gateway.SerpSearch(ctx, s.Question, brightdata.EngineBing)
	if err != nil {
		p.logger.Warn("Bing search failed", "error", err)
		return nil
	}
	s.BingResults = results
	return nil
}

func (p *Pipeline) redditSearch(ctx context.Context, s *State) error {
	if s.Config.BrightDataAPIKey == "" {
		return missingConfig("brightdata api key")
	}
	if s.Config.RedditDatasetID == "" {
		return missingConfig("reddit dataset id")
	}
	p.logger.Info("Searching Reddit", "question", s.Question)
	results, err := p.gateway.RedditSearch(ctx, s.Question, s.Config.RedditDatasetID)
	if err != nil {
		p.logger.Warn("Reddit search failed", "error", err)
		return nil
	}
	s.RedditResults = results
	return nil
}

// --- Selection and deep dive ---

type urlSelection struct {
	SelectedURLs []string `json:"selected_urls"`
}

// selectRedditURLs asks the model which posts deserve a deep dive. Any
// failure (absent search results, model error, malformed output) collapses
// to an empty selection; this stage never aborts the run.
func (p *Pipeline) selectRedditURLs(ctx context.Context, s *State) error {
	s.SelectedRedditURLs = []string{}
	if s.RedditResults == nil {
		return nil
	}

	messages := prompts.RedditURLSelectionMessages(s.Question, s.RedditResults)
	var selection urlSelection
	if err := p.llm.CompleteStructured(ctx, messages, prompts.SelectionSchema, &selection); err != nil {
		p.logger.Warn("URL selection failed, continuing with empty selection", "error", err)
		return nil
	}
	if selection.SelectedURLs != nil {
		s.SelectedRedditURLs = selection.SelectedURLs
	}
	p.logger.Info("Selected Reddit URLs", "count", len(s.SelectedRedditURLs), "urls", s.SelectedRedditURLs)
	return nil
}

// retrieveRedditPosts fetches comments for the selected posts. An empty
// selection short-circuits without a provider call; paid collection jobs
// are never triggered for nothing.
func (p *Pipeline) retrieveRedditPosts(ctx context.Context, s *State) error {
	s.RedditPostData = &brightdata.RedditComments{Comments: []brightdata.RedditComment{}}
	if len(s.SelectedRedditURLs) == 0 {
		return nil
	}
	if s.Config.BrightDataAPIKey == "" {
		return missingConfig("brightdata api key")
	}
	if s.Config.RedditCommentsDatasetID == "" {
		return missingConfig("reddit comments dataset id")
	}

	p.logger.Info("Retrieving Reddit post comments", "urls", len(s.SelectedRedditURLs))
	data, err := p.gateway.RedditPostRetrieval(ctx, s.SelectedRedditURLs, s.Config.RedditCommentsDatasetID)
	if err != nil {
		p.logger.Warn("Reddit post retrieval failed, continuing with empty data", "error", err)
		return nil
	}
	if data != nil {
		s.RedditPostData = data
	}
	return nil
}

// --- Analysis and synthesis ---
//
// A model failure here aborts the run: partial source coverage is
// acceptable, a broken final answer is not.

func (p *Pipeline) analyzeGoogle(ctx context.Context, s *State) error {
	p.logger.Info("Analyzing Google results")
	text, err := p.llm.Complete(ctx, prompts.GoogleAnalysisMessages(s.Question, s.GoogleResults))
	if err != nil {
		return err
	}
	s.GoogleAnalysis = text
	return nil
}

func (p *Pipeline) analyzeBing(ctx context.Context, s *State) error {
	p.logger.Info("Analyzing Bing results")
	text, err := p.llm.Complete(ctx, prompts.BingAnalysisMessages(s.Question, s.BingResults))
	if err != nil {
		return err
	}
	s.BingAnalysis = text
	return nil
}

func (p *Pipeline) analyzeReddit(ctx context.Context, s *State) error {
	p.logger.Info("Analyzing Reddit results")
	text, err := p.llm.Complete(ctx, prompts.RedditAnalysisMessages(s.Question, s.RedditResults, s.RedditPostData))
	if err != nil {
		return err
	}
	s.RedditAnalysis = text
	return nil
}

func (p *Pipeline) synthesize(ctx context.Context, s *State) error {
	p.logger.Info("Synthesizing analyses into a final answer")
	text, err := p.llm.Complete(ctx, prompts.SynthesisMessages(
		s.Question, s.GoogleAnalysis, s.BingAnalysis, s.RedditAnalysis))
	if err != nil {
		return err
	}
	s.FinalAnswer = text
	s.Messages = append(s.Messages, llm.Message{Role: llm.RoleAssistant, Content: text})
	p.logger.Info("Synthesis complete")
	return nil
}
