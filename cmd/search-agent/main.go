package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mikeboe/search-agent/pkg/brightdata"
	"github.com/mikeboe/search-agent/pkg/config"
	"github.com/mikeboe/search-agent/pkg/llm"
	"github.com/mikeboe/search-agent/pkg/pipeline"
	"github.com/spf13/cobra"
)

var question string

func main() {
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "search-agent",
		Short: "A multi-source research agent",
		Long:  `search-agent answers a question by searching Google, Bing and Reddit in parallel, deep-diving into the most promising Reddit threads, and synthesizing a single answer.`,
		Run: func(cmd *cobra.Command, args []string) {
			model, err := llm.OpenAI(cfg.OpenAIAPIKey, cfg.Model)
			if err != nil {
				slog.Error("Failed to init language model", "error", err)
				os.Exit(1)
			}

			gateway := brightdata.New(cfg.BrightDataAPIKey,
				brightdata.WithPolling(cfg.PollMaxAttempts, time.Duration(cfg.PollDelaySeconds)*time.Second))

			p := pipeline.New(gateway, model, slog.Default())
			runCfg := pipeline.Config{
				BrightDataAPIKey:        cfg.BrightDataAPIKey,
				RedditDatasetID:         cfg.RedditDatasetID,
				RedditCommentsDatasetID: cfg.RedditCommentsDatasetID,
			}

			if cmd.Flags().Changed("question") {
				if strings.TrimSpace(question) == "" {
					slog.Error("--question flag provided but empty")
					os.Exit(1)
				}
				answer(p, runCfg, question)
				return
			}

			// Interactive mode
			fmt.Println("Multi-Source Research Agent (CLI)")
			fmt.Println("Type 'exit' to quit")
			fmt.Println()

			reader := bufio.NewReader(os.Stdin)
			for {
				fmt.Print("Ask me anything: ")
				input, err := reader.ReadString('\n')
				if err != nil {
					return
				}
				input = strings.TrimSpace(input)
				if strings.EqualFold(input, "exit") {
					fmt.Println("Bye")
					return
				}
				if input == "" {
					continue
				}
				answer(p, runCfg, input)
				fmt.Println(strings.Repeat("-", 80))
			}
		},
	}

	rootCmd.Flags().StringVarP(&question, "question", "q", "", "Run a single question and exit")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func answer(p *pipeline.Pipeline, cfg pipeline.Config, q string) {
	fmt.Println("\nStarting parallel research process...")
	fmt.Println("Launching Google, Bing, and Reddit searches...")
	fmt.Println()

	state, err := p.Run(context.Background(), q, cfg)
	if err != nil {
		slog.Error("Research failed", "error", err)
		return
	}
	if state.FinalAnswer != "" {
		fmt.Printf("\nFinal Answer:\n%s\n\n", state.FinalAnswer)
	}
}
