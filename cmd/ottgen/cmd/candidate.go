package cmd

import (
	"github.com/spf13/cobra"
)

func generateOneCmd(with runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-one <candidateID>",
		Short: "Generate a post for one queued candidate",
		Args:  candidateIDArg,
		RunE: with(func(cmd *cobra.Command, rt *Runtime, args []string) error {
			id, _ := parseCandidateID(args[0])
			res, err := rt.Pipeline.GenerateOne(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
}

func resetCmd(with runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <candidateID>",
		Short: "Put a candidate back in the queue",
		Args:  candidateIDArg,
		RunE: with(func(cmd *cobra.Command, rt *Runtime, args []string) error {
			id, _ := parseCandidateID(args[0])
			if err := rt.Pipeline.ResetGeneratedFlag(cmd.Context(), id); err != nil {
				return err
			}
			cmd.Printf("Candidate %d reset to queued\n", id)
			return nil
		}),
	}
}

func deleteCmd(with runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <candidateID>",
		Short: "Delete a candidate",
		Long:  "Deletes the candidate row. A later discovery pass may queue the title again.",
		Args:  candidateIDArg,
		RunE: with(func(cmd *cobra.Command, rt *Runtime, args []string) error {
			id, _ := parseCandidateID(args[0])
			if err := rt.Pipeline.DeleteCandidate(cmd.Context(), id); err != nil {
				return err
			}
			cmd.Printf("Candidate %d deleted\n", id)
			return nil
		}),
	}
}

func enrichCmd(with runtimeWrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich <candidateID>",
		Short: "Force overview enrichment for one candidate",
		Args:  candidateIDArg,
		RunE: with(func(cmd *cobra.Command, rt *Runtime, args []string) error {
			id, _ := parseCandidateID(args[0])
			res, err := rt.Pipeline.EnrichOne(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
}
