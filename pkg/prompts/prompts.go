// Package prompts builds the message lists for every model call in the
// research pipeline. Functions here are pure: no I/O, no state.
package prompts

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/mikeboe/search-agent/pkg/llm"
)

// SelectionSchema constrains the URL-selection call to a JSON object with a
// selected_urls string array.
const SelectionSchema = `Return the JSON object directly without any formatting or additional text. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "selected_urls": {
      "type": "array",
      "items": {
        "type": "string"
      },
      "description": "List of Reddit URLs that contain valuable information for answering the user's question"
    }
  },
  "required": ["selected_urls"]
}`

// RedditURLSelectionMessages asks the model to pick the Reddit posts worth a
// deep dive.
func RedditURLSelectionMessages(question string, redditResults any) []llm.Message {
	return []llm.Message{
		{
			Role: llm.RoleSystem,
			Content: `You are an expert at analyzing social media discussions.
Given a list of Reddit posts, select the URLs most likely to contain valuable
first-hand information for answering the user's question. Prefer posts with
substantive discussion over link dumps. Select at most 3 URLs.`,
		},
		{
			Role: llm.RoleUser,
			Content: fmt.Sprintf("Question: %s\n\nReddit posts:\n%s",
				question, asJSON(redditResults)),
		},
	}
}

// GoogleAnalysisMessages formats the Google analysis prompt.
func GoogleAnalysisMessages(question string, googleResults any) []llm.Message {
	return searchAnalysisMessages("Google", question, googleResults)
}

// BingAnalysisMessages formats the Bing analysis prompt.
func BingAnalysisMessages(question string, bingResults any) []llm.Message {
	return searchAnalysisMessages("Bing", question, bingResults)
}

func searchAnalysisMessages(engine, question string, results any) []llm.Message {
	return []llm.Message{
		{
			Role: llm.RoleSystem,
			Content: fmt.Sprintf(`You are an expert research analyst.
Analyze the %s search results below and extract the information relevant to
the user's question. Summarize the key findings concisely and note any
authoritative sources.`, engine),
		},
		{
			Role: llm.RoleUser,
			Content: fmt.Sprintf("Question: %s\n\n%s search results:\n%s",
				question, engine, asJSON(results)),
		},
	}
}

// RedditAnalysisMessages formats the Reddit analysis prompt, combining the
// search results with retrieved post comments.
func RedditAnalysisMessages(question string, redditResults, postData any) []llm.Message {
	return []llm.Message{
		{
			Role: llm.RoleSystem,
			Content: `You are an expert at distilling community discussions.
Analyze the Reddit posts and comments below and summarize the community's
experiences and opinions relevant to the user's question. Note points of
consensus and disagreement.`,
		},
		{
			Role: llm.RoleUser,
			Content: fmt.Sprintf("Question: %s\n\nReddit search results:\n%s\n\nRetrieved post comments:\n%s",
				question, asJSON(redditResults), asJSON(postData)),
		},
	}
}

// SynthesisMessages formats the final prompt combining all three analyses.
func SynthesisMessages(question, googleAnalysis, bingAnalysis, redditAnalysis string) []llm.Message {
	return []llm.Message{
		{
			Role: llm.RoleSystem,
			Content: `You are a research synthesizer. Combine the three source
analyses below into one clear, well-organized answer to the user's question.
Weigh official sources against community experience and call out any
contradictions.`,
		},
		{
			Role: llm.RoleUser,
			Content: fmt.Sprintf("Question: %s\n\nGoogle analysis:\n%s\n\nBing analysis:\n%s\n\nReddit analysis:\n%s",
				question, googleAnalysis, bingAnalysis, redditAnalysis),
		},
	}
}

func asJSON(v any) string {
	if v == nil {
		return "(no data)"
	}
	// A degraded source arrives as a typed nil pointer, which a plain
	// interface comparison misses.
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return "(no data)"
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
