// Package preflight validates credentials and dataset identifiers with
// cheap reachability calls before a research run spends money.
package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	openAIModelsURL    = "https://api.openai.com/v1/models"
	brightDataProbeURL = "https://api.brightdata.com/datasets/list?page=1"
)

// Check is the result of one probe.
type Check struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Result aggregates all probes for one preflight pass.
type Result struct {
	OK                    bool  `json:"ok"`
	OpenAI                Check `json:"openai"`
	BrightData            Check `json:"brightdata_api"`
	RedditDataset         Check `json:"reddit_dataset"`
	RedditCommentsDataset Check `json:"reddit_comments_dataset"`
}

// Summary joins the failing checks into one human-readable line.
func (r Result) Summary() string {
	var parts []string
	for _, c := range []struct {
		name  string
		check Check
	}{
		{"openai", r.OpenAI},
		{"brightdata", r.BrightData},
		{"reddit_dataset", r.RedditDataset},
		{"reddit_comments_dataset", r.RedditCommentsDataset},
	} {
		if !c.check.OK {
			parts = append(parts, fmt.Sprintf("%s: %s", c.name, c.check.Message))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ")
}

// Params are the credentials to validate.
type Params struct {
	OpenAIAPIKey            string
	BrightDataAPIKey        string
	RedditDatasetID         string
	RedditCommentsDatasetID string
}

// Checker runs preflight probes. The URLs and client are overridable for
// tests.
type Checker struct {
	HTTP          *http.Client
	OpenAIURL     string
	BrightDataURL string
}

func NewChecker() *Checker {
	return &Checker{
		HTTP:          &http.Client{Timeout: 8 * time.Second},
		OpenAIURL:     openAIModelsURL,
		BrightDataURL: brightDataProbeURL,
	}
}

// Run executes all checks and aggregates them.
func (c *Checker) Run(ctx context.Context, p Params) Result {
	r := Result{
		OpenAI:                c.CheckOpenAI(ctx, p.OpenAIAPIKey),
		BrightData:            c.CheckBrightDataToken(ctx, p.BrightDataAPIKey),
		RedditDataset:         CheckDataset(p.BrightDataAPIKey, p.RedditDatasetID),
		RedditCommentsDataset: CheckDataset(p.BrightDataAPIKey, p.RedditCommentsDatasetID),
	}
	r.OK = r.OpenAI.OK && r.BrightData.OK && r.RedditDataset.OK && r.RedditCommentsDataset.OK
	return r
}

// CheckOpenAI probes the models endpoint; it consumes no completion tokens.
func (c *Checker) CheckOpenAI(ctx context.Context, key string) Check {
	if strings.TrimSpace(key) == "" {
		return Check{OK: false, Message: "Missing OpenAI API key"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.OpenAIURL, nil)
	if err != nil {
		return Check{OK: false, Message: fmt.Sprintf("OpenAI check error: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Check{OK: false, Message: fmt.Sprintf("OpenAI check error: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Check{OK: false, Message: fmt.Sprintf("OpenAI check failed (%d)", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Check{OK: true, Message: "OpenAI reachable"}
	}
	var models struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &models); err != nil {
		return Check{OK: true, Message: "OpenAI reachable"}
	}
	for _, m := range models.Data {
		if m.ID == "gpt-4o" || m.ID == "gpt-4o-mini" {
			return Check{OK: true, Message: "OpenAI reachable (model available)"}
		}
	}
	return Check{OK: true, Message: "OpenAI reachable (model access uncertain)"}
}

// CheckBrightDataToken probes the stable datasets list endpoint.
func (c *Checker) CheckBrightDataToken(ctx context.Context, token string) Check {
	if strings.TrimSpace(token) == "" {
		return Check{OK: false, Message: "Missing Bright Data token"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BrightDataURL, nil)
	if err != nil {
		return Check{OK: false, Message: fmt.Sprintf("Bright Data check error: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Check{OK: false, Message: fmt.Sprintf("Bright Data check error: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Check{OK: false, Message: fmt.Sprintf("Bright Data check failed (%d)", resp.StatusCode)}
	}
	return Check{OK: true, Message: "Bright Data reachable"}
}

// CheckDataset validates a dataset identifier by format only; verifying it
// for real would trigger a paid collection job.
func CheckDataset(token, datasetID string) Check {
	if strings.TrimSpace(token) == "" {
		return Check{OK: false, Message: "Missing Bright Data token"}
	}
	if strings.TrimSpace(datasetID) == "" {
		return Check{OK: false, Message: "Missing dataset id"}
	}
	if strings.HasPrefix(datasetID, "gd_") && len(datasetID) >= 6 {
		return Check{OK: true, Message: "Looks valid (format check)"}
	}
	return Check{OK: false, Message: "Dataset id format looks unusual"}
}
