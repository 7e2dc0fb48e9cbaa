package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timmy/ottgen/internal/service"
)

func parseCmd(with runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "parse",
		Short: "Run one discovery pass and queue matching titles",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, rt *Runtime, _ []string) error {
			res, err := rt.Pipeline.ParseSources(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
}

func submitCmd(with runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Submit queued candidates up to the remaining daily quota",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, rt *Runtime, _ []string) error {
			res, err := rt.Pipeline.GenerateDailyBatch(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
}

func fullCmd(with runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "full",
		Short: "Run parse followed by submit",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, rt *Runtime, _ []string) error {
			parsed, err := rt.Pipeline.ParseSources(cmd.Context())
			if err != nil {
				return err
			}
			batch, err := rt.Pipeline.GenerateDailyBatch(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, struct {
				Parse *service.ParseResult `json:"parse"`
				Batch *service.BatchResult `json:"batch"`
			}{parsed, batch})
		}),
	}
}

func scheduleCmd(with runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the daily parse and publish-hour batches until interrupted",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, rt *Runtime, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			rt.Run(ctx)
			return nil
		}),
	}
}
