package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/noah-isme/tutorq-api/internal/bootstrap"
	"github.com/noah-isme/tutorq-api/internal/dto"
)

func (a *cli) newSeedCommand() *cobra.Command {
	var req dto.SeedRequest

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace all data with a deterministic synthetic dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withContainer(cmd, func(ctx context.Context, c *bootstrap.Container) (interface{}, error) {
				summary, err := c.Seed.Generate(ctx, req)
				if err != nil {
					return nil, err
				}
				return summary, nil
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&req.Tutors, "tutors", 100, "number of tutors")
	flags.IntVar(&req.Students, "students", 2500, "number of students")
	flags.IntVar(&req.Sessions, "sessions", 3000, "number of sessions")
	flags.IntVar(&req.Days, "days", 60, "length of the generated history in days")
	flags.Int64Var(&req.Seed, "seed", 1, "random seed")

	return cmd
}
