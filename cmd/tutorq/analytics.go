package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/noah-isme/tutorq-api/internal/bootstrap"
)

func (a *cli) newAnalyticsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Recompute the metrics snapshot of every tutor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withContainer(cmd, func(ctx context.Context, c *bootstrap.Container) (interface{}, error) {
				summary, err := c.Analytics.Run(ctx)
				if err != nil && summary.StartedAt.IsZero() {
					return nil, err
				}
				return summary, err
			})
		},
	}
}
