package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowgraph/csagent/internal/hub"
	"github.com/flowgraph/csagent/internal/llm"
	"github.com/flowgraph/csagent/internal/search"
	"github.com/flowgraph/csagent/pkg/flowgraph"
	"github.com/flowgraph/csagent/pkg/prebuilt/react"
)

func newReactCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "react",
		Short: "Ask a tool-calling agent with web search a single question",
		Long: `Pull the agent prompt from the prompt hub, print it, run the agent once on
the question and print the content of every resulting message.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReact(cmd)
		},
	}
	cmd.Flags().String("question", "", "user question (overrides react.question)")
	cmd.Flags().String("prompt", "", "hub prompt owner/name[:commit] (overrides react.prompt)")
	_ = a.v.BindPFlag("react.question", cmd.Flags().Lookup("question"))
	_ = a.v.BindPFlag("react.prompt", cmd.Flags().Lookup("prompt"))
	return cmd
}

func (a *app) runReact(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := a.cfg
	logger := a.logger

	if err := cfg.ValidateReact(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	model, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:         cfg.React.APIKey,
		Model:          cfg.React.Model,
		BaseURL:        cfg.React.BaseURL,
		Temperature:    cfg.React.Temperature,
		RequestTimeout: cfg.App.RequestTimeout,
	}, logger)
	if err != nil {
		return err
	}
	searcher, err := search.NewClient(search.Config{
		APIKey:  cfg.Search.APIKey,
		BaseURL: cfg.Search.BaseURL,
		Timeout: cfg.App.RequestTimeout,
	}, logger)
	if err != nil {
		return err
	}

	hubClient := hub.NewClient(hub.Config{APIURL: cfg.Hub.APIURL, APIKey: cfg.Hub.APIKey, Timeout: cfg.App.RequestTimeout}, logger)
	prompt, err := hubClient.Pull(ctx, cfg.React.Prompt)
	if err != nil {
		logger.Error("failed to pull prompt", "prompt", cfg.React.Prompt, "error", err)
		return err
	}
	out := cmd.OutOrStdout()
	if err := prompt.PrettyPrint(out); err != nil {
		return err
	}

	saver, err := openSaver(ctx, cfg.Checkpoint)
	if err != nil {
		logger.Error("failed to open checkpoint store", "backend", cfg.Checkpoint.Backend, "error", err)
		return err
	}
	defer saver.Close()

	agent, err := react.New(ctx, react.Config{
		Model:          model,
		Tools:          []react.Tool{search.NewTool(searcher, cfg.React.SearchMaxResults)},
		Prompt:         prompt,
		MaxIterations:  cfg.React.MaxIterations,
		Logger:         logger,
		RuntimeOptions: []flowgraph.Option{flowgraph.WithSaver(saver)},
	})
	if err != nil {
		return err
	}

	messages, err := agent.Invoke(ctx, []llm.Message{llm.Human(cfg.React.Question)})
	if err != nil {
		logger.Error("react agent failed", "error", err)
		return err
	}
	for _, m := range messages {
		if _, err := fmt.Fprintln(out, m.Content); err != nil {
			return err
		}
	}
	return nil
}
