package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mikeboe/search-agent/pkg/brightdata"
	"github.com/mikeboe/search-agent/pkg/config"
	"github.com/mikeboe/search-agent/pkg/database"
	"github.com/mikeboe/search-agent/pkg/llm"
	"github.com/mikeboe/search-agent/pkg/pipeline"
	"github.com/mikeboe/search-agent/pkg/preflight"
)

// RunStore is the persistence the server depends on; *database.PostgresDB
// satisfies it.
type RunStore interface {
	LogStore
	SaveRun(ctx context.Context, sessionID, runID, question string, result json.RawMessage) error
	ListRuns(ctx context.Context, sessionID string) ([]database.RunMeta, error)
	GetRun(ctx context.Context, sessionID, runID string) (*database.RunRecord, error)
	ClearRuns(ctx context.Context, sessionID string) error
	CreateShare(ctx context.Context, runID, shareID string) error
	GetShared(ctx context.Context, shareID string) (*database.RunRecord, error)
	GetRunLogs(ctx context.Context, runID string) ([]database.LogEntry, error)
}

// Settings are the per-session credential overrides a client may store.
type Settings struct {
	OpenAIAPIKey            string
	BrightDataAPIKey        string
	RedditDatasetID         string
	RedditCommentsDatasetID string
}

// runner executes one research run bound to resolved credentials. Tests
// substitute a deterministic implementation.
type runner func(ctx context.Context, question string, cfg pipeline.Config, openAIKey, runID string) (*pipeline.State, error)

type Service struct {
	Store     RunStore
	Cfg       *config.Config
	Preflight *preflight.Checker

	run runner

	mu       sync.RWMutex
	settings map[string]Settings
}

func NewService(store RunStore, cfg *config.Config) *Service {
	s := &Service{
		Store:     store,
		Cfg:       cfg,
		Preflight: preflight.NewChecker(),
		settings:  make(map[string]Settings),
	}
	s.run = s.runPipeline
	return s
}

// runPipeline wires live clients to the pipeline for one run. Pipeline logs
// go to the run_logs table keyed by run id.
func (s *Service) runPipeline(ctx context.Context, question string, cfg pipeline.Config, openAIKey, runID string) (*pipeline.State, error) {
	model, err := llm.OpenAI(openAIKey, s.Cfg.Model)
	if err != nil {
		return nil, err
	}

	logger := slog.New(NewDBLogHandler(s.Store, runID))
	gateway := brightdata.New(cfg.BrightDataAPIKey,
		brightdata.WithLogger(logger),
		brightdata.WithPolling(s.Cfg.PollMaxAttempts, time.Duration(s.Cfg.PollDelaySeconds)*time.Second))

	return pipeline.New(gateway, model, logger).Run(ctx, question, cfg)
}

// GetSettings returns a copy of the stored settings for a session.
func (s *Service) GetSettings(sessionID string) Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings[sessionID]
}

// UpdateSettings overwrites only the provided values for a session.
func (s *Service) UpdateSettings(sessionID string, openAIKey, brightDataKey, redditDS, redditCommentsDS *string) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.settings[sessionID]
	if openAIKey != nil {
		cur.OpenAIAPIKey = *openAIKey
	}
	if brightDataKey != nil {
		cur.BrightDataAPIKey = *brightDataKey
	}
	if redditDS != nil {
		cur.RedditDatasetID = *redditDS
	}
	if redditCommentsDS != nil {
		cur.RedditCommentsDatasetID = *redditCommentsDS
	}
	s.settings[sessionID] = cur
	return cur
}

// resolvedCredentials merges request overrides, session settings and env
// config, in that priority order.
type resolvedCredentials struct {
	OpenAIAPIKey            string
	BrightDataAPIKey        string
	RedditDatasetID         string
	RedditCommentsDatasetID string
}

func (s *Service) resolveCredentials(sessionID string, req ResearchRequest) resolvedCredentials {
	session := s.GetSettings(sessionID)
	return resolvedCredentials{
		OpenAIAPIKey:            firstNonEmpty(req.OpenAIAPIKey, session.OpenAIAPIKey, s.Cfg.OpenAIAPIKey),
		BrightDataAPIKey:        firstNonEmpty(req.BrightDataAPIKey, session.BrightDataAPIKey, s.Cfg.BrightDataAPIKey),
		RedditDatasetID:         firstNonEmpty(req.RedditDatasetID, session.RedditDatasetID, s.Cfg.RedditDatasetID),
		RedditCommentsDatasetID: firstNonEmpty(req.RedditCommentsDatasetID, session.RedditCommentsDatasetID, s.Cfg.RedditCommentsDatasetID),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
