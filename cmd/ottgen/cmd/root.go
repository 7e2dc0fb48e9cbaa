package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/timmy/ottgen/internal/api/handler"
	"github.com/timmy/ottgen/internal/app"
	"github.com/timmy/ottgen/internal/config"
)

// Runtime is what a command needs from the wired application.
type Runtime struct {
	Pipeline handler.Pipeline
	// Run blocks running the daily schedule until ctx is cancelled.
	Run      func(ctx context.Context)
	Close    func()
}

// Opener loads configuration from path and wires a Runtime.
type Opener func(ctx context.Context, configPath string) (*Runtime, error)

// OpenApp is the production Opener.
func OpenApp(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		Pipeline: a.Orchestrator,
		Run:      func(ctx context.Context) { a.Scheduler().Run(ctx) },
		Close:    a.Close,
	}, nil
}

// RootCmd is the root Cobra command that gets called from the main func.
func RootCmd(open Opener) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "ottgen",
		Short:        "ottgen discovers OTT titles and drives daily review generation.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./configs/config.yaml)")

	withRuntime := func(run func(cmd *cobra.Command, rt *Runtime, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			return run(cmd, rt, args)
		}
	}

	cmd.AddCommand(
		parseCmd(withRuntime),
		submitCmd(withRuntime),
		fullCmd(withRuntime),
		generateOneCmd(withRuntime),
		resetCmd(withRuntime),
		deleteCmd(withRuntime),
		enrichCmd(withRuntime),
		scheduleCmd(withRuntime),
	)

	return cmd
}

type runtimeWrapper func(run func(cmd *cobra.Command, rt *Runtime, args []string) error) func(*cobra.Command, []string) error

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// candidateIDArg validates the single positional candidate ID.
func candidateIDArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	_, err := parseCandidateID(args[0])
	return err
}

func parseCandidateID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid candidate id %q", raw)
	}
	return id, nil
}
