package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/noah-isme/tutorq-api/internal/bootstrap"
)

func (a *cli) newEvaluateCommand() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate session transcripts that have no AI evaluation yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withContainer(cmd, func(ctx context.Context, c *bootstrap.Container) (interface{}, error) {
				if sessionID != "" {
					result, err := c.Evaluations.EvaluateSession(ctx, sessionID)
					if err != nil {
						return nil, err
					}
					return result, nil
				}

				summary, err := c.Evaluations.RunPending(ctx)
				if err != nil && summary.StartedAt.IsZero() {
					return nil, err
				}
				return summary, err
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "evaluate a single session instead of the pending backlog")
	return cmd
}
