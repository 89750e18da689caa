package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/stepwise/internal/app"
	"github.com/ashureev/stepwise/internal/config"
	"github.com/spf13/cobra"
)

type solveOptions struct {
	maxRetries int
	generator  string
	noCache    bool
}

func newSolveCmd(root *rootOptions) *cobra.Command {
	opts := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve [question...]",
		Short: "Answer one question and print the result as JSON",
		Long: "Answer one question and print the result as JSON.\n" +
			"With no arguments the question is read from standard input.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, root, opts, args)
		},
	}
	cmd.Flags().IntVar(&opts.maxRetries, "max-retries", -1, "re-attempts after the first (default from MAX_RETRIES)")
	cmd.Flags().StringVar(&opts.generator, "generator", "", "generator backend: mock, gemini or grpc (default from GENERATOR)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the plan cache")
	return cmd
}

func runSolve(cmd *cobra.Command, root *rootOptions, opts *solveOptions, args []string) error {
	question := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read question: %w", err)
		}
		question = string(data)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question is required")
	}

	cfg, err := solveConfig(opts)
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, root.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.Loop.Solve(cmd.Context(), question)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func solveConfig(opts *solveOptions) (*config.Config, error) {
	cfg := config.FromEnv()
	if opts.maxRetries >= 0 {
		cfg.MaxRetries = opts.maxRetries
	}
	if opts.generator != "" {
		cfg.Generator.Kind = strings.ToLower(opts.generator)
	}
	if opts.noCache {
		cfg.PlanCache.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
