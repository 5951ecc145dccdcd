package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/tutorq-api/internal/bootstrap"
	"github.com/noah-isme/tutorq-api/internal/config"
)

const version = "1.0.0"

// containerFactory builds the dependency container; tests replace it.
type containerFactory func(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*bootstrap.Container, error)

type cli struct {
	newContainer containerFactory
	loadConfig   func() (config.Config, error)
	out          io.Writer
	logOutput    io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli{
		newContainer: bootstrap.New,
		loadConfig:   config.Load,
		out:          os.Stdout,
		logOutput:    os.Stderr,
	}

	if err := app.rootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (a *cli) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tutorq",
		Short: "TutorQ batch jobs",
		Long: `tutorq runs the batch jobs behind the tutor quality dashboard.
Run summaries are printed to stdout as JSON; logs go to stderr.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(a.newAnalyticsCommand())
	rootCmd.AddCommand(a.newEvaluateCommand())
	rootCmd.AddCommand(a.newSeedCommand())

	return rootCmd
}

// withContainer loads configuration, builds the container and runs fn with it.
func (a *cli) withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *bootstrap.Container) (interface{}, error)) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := bootstrap.NewLogger(cfg, a.logOutput).With().Str("command", cmd.Name()).Logger()

	container, err := a.newContainer(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialise dependencies: %w", err)
	}
	defer container.Close()

	result, runErr := fn(cmd.Context(), container)
	if result != nil {
		if err := a.printJSON(result); err != nil {
			return err
		}
	}
	return runErr
}

func (a *cli) printJSON(value interface{}) error {
	encoder := json.NewEncoder(a.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
