package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowgraph/csagent/internal/llm"
	"github.com/flowgraph/csagent/internal/search"
	"github.com/flowgraph/csagent/internal/support"
	"github.com/flowgraph/csagent/pkg/flowgraph"
)

func newSupportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "support",
		Short: "Plan, research, draft and critique an answer to a customer task",
		Long: `Run the customer service workflow. Every finished step is printed as
{"node": update}, followed by the final draft.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSupport(cmd)
		},
	}
	cmd.Flags().String("task", "", "customer question (overrides support.task)")
	cmd.Flags().Int("max-revisions", 0, "revision budget (overrides support.max_revisions)")
	cmd.Flags().String("thread-id", "", "checkpoint thread (overrides support.thread_id)")
	cmd.Flags().Bool("resume", false, "continue the thread from its newest checkpoint (needs a durable checkpoint backend)")
	_ = a.v.BindPFlag("support.task", cmd.Flags().Lookup("task"))
	_ = a.v.BindPFlag("support.max_revisions", cmd.Flags().Lookup("max-revisions"))
	_ = a.v.BindPFlag("support.thread_id", cmd.Flags().Lookup("thread-id"))
	return cmd
}

func (a *app) runSupport(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := a.cfg
	logger := a.logger

	if err := cfg.ValidateSupport(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	model, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:         cfg.OpenAI.APIKey,
		Model:          cfg.OpenAI.Model,
		BaseURL:        cfg.OpenAI.BaseURL,
		Temperature:    cfg.OpenAI.Temperature,
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

	saver, err := openSaver(ctx, cfg.Checkpoint)
	if err != nil {
		logger.Error("failed to open checkpoint store", "backend", cfg.Checkpoint.Backend, "error", err)
		return err
	}
	defer saver.Close()

	nodes := &support.Nodes{Model: model, Searcher: searcher, MaxResults: cfg.Search.MaxResults, Logger: logger}
	wf, err := support.NewWorkflow(ctx, nodes, cfg.App.NodeRetries, flowgraph.WithSaver(saver))
	if err != nil {
		return err
	}

	logger.Info("starting support workflow",
		"thread_id", cfg.Support.ThreadID,
		"max_revisions", cfg.Support.MaxRevisions,
		"checkpoint_backend", cfg.Checkpoint.Backend)

	out := cmd.OutOrStdout()
	printStep := func(step map[string]map[string]interface{}) error {
		line, err := json.Marshal(step)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(line))
		return err
	}

	var final support.State
	if resume, _ := cmd.Flags().GetBool("resume"); resume {
		final, err = wf.Resume(ctx, cfg.Support.ThreadID, printStep)
	} else {
		final, err = wf.Stream(ctx, cfg.Support.ThreadID, support.State{
			Task:           cfg.Support.Task,
			MaxRevisions:   cfg.Support.MaxRevisions,
			RevisionNumber: 1,
		}, printStep)
	}
	if err != nil {
		logger.Error("support workflow failed", "error", err)
		return err
	}

	_, err = fmt.Fprintf(out, "Final state: %s\n", final.Draft)
	return err
}
