package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/pipeline"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/internal/version"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata/provider"
)

type app struct {
	stdout io.Writer
	stderr io.Writer
	// provider replaces the configured market data provider when set.
	provider provider.Provider
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	return (&app{stdout: stdout, stderr: stderr}).command()
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "forecast",
		Usage:     "Predict the next daily close of an equity with an LSTM",
		Version:   version.GetVersion(),
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML `FILE` overlaying the defaults",
			},
			&cli.StringFlag{
				Name:  "raw",
				Usage: "Raw provider table path",
			},
			&cli.StringFlag{
				Name:  "clean",
				Usage: "Cleaned table path",
			},
			&cli.StringSliceFlag{
				Name:    "symbol",
				Aliases: []string{"s"},
				Usage:   "Ticker candidate, repeat to try several in order",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider (%s)", strings.Join(marketdata.GetSupportedProviders(), ", ")),
			},
			&cli.StringFlag{
				Name:    "writer",
				Aliases: []string{"w"},
				Usage:   fmt.Sprintf("Raw table format (%s, %s)", marketdata.WriterCSV, marketdata.WriterDuckDB),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log at debug level",
			},
		},
		Action: a.runAction,
		Commands: []*cli.Command{
			{
				Name:   "download",
				Usage:  "Download daily bars for the first ticker candidate with data",
				Action: a.downloadAction,
			},
			{
				Name:   "clean",
				Usage:  "Clean the raw table without training",
				Action: a.cleanAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the config file",
				Action: a.schemaAction,
			},
		},
	}
}

// loadConfig builds the run configuration from defaults, the optional config file and flags.
func loadConfig(cmd *cli.Command) (pipeline.Config, error) {
	config := pipeline.DefaultConfig()

	if path := cmd.String("config"); path != "" {
		loaded, err := pipeline.LoadConfig(path)
		if err != nil {
			return pipeline.Config{}, err
		}

		config = loaded
	}

	if cmd.IsSet("raw") {
		config.RawPath = cmd.String("raw")
	}

	if cmd.IsSet("clean") {
		config.CleanPath = cmd.String("clean")
	}

	if cmd.IsSet("symbol") {
		config.Symbols = cmd.StringSlice("symbol")
	}

	if cmd.IsSet("provider") {
		config.Provider = cmd.String("provider")
	}

	if cmd.IsSet("writer") {
		config.Writer = cmd.String("writer")
	}

	if config.PolygonApiKey == "" {
		config.PolygonApiKey = os.Getenv("POLYGON_API_KEY")
	}

	if err := config.Validate(); err != nil {
		return pipeline.Config{}, err
	}

	return config, nil
}

func (a *app) newLogger(cmd *cli.Command) (*logger.Logger, error) {
	if cmd.Bool("verbose") {
		return logger.NewDevelopmentLogger()
	}

	return logger.NewLogger()
}

func (a *app) setup(cmd *cli.Command) (pipeline.Config, *logger.Logger, error) {
	config, err := loadConfig(cmd)
	if err != nil {
		return pipeline.Config{}, nil, cli.Exit(ErrorStyle.Render(fmt.Sprintf("Invalid configuration: %v", err)), 1)
	}

	log, err := a.newLogger(cmd)
	if err != nil {
		return pipeline.Config{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return config, log, nil
}

func (a *app) runAction(ctx context.Context, cmd *cli.Command) error {
	config, log, err := a.setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	bar := progressbar.NewOptions(config.Model.Epochs,
		progressbar.OptionSetWriter(a.stderr),
		progressbar.OptionSetDescription("Training LSTM"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	p, err := pipeline.NewPipeline(config, log, pipeline.Callbacks{
		OnEpoch: func(epoch, _ int) {
			_ = bar.Set(epoch)
		},
	})
	if err != nil {
		return err
	}

	report, err := p.Run(ctx)
	if err != nil {
		return a.runFailure(config, err)
	}

	return pipeline.RenderReport(a.stdout, report)
}

// runFailure prints a short diagnostic for an aborted run and returns a non-zero exit.
func (a *app) runFailure(config pipeline.Config, err error) error {
	var lines []string

	switch {
	case errors.HasCode(err, errors.ErrCodeFileNotFound):
		lines = []string{
			fmt.Sprintf("Error: %s not found!", config.RawPath),
			"Please run `forecast download` first to download the data.",
		}
	case errors.IsInsufficientDataError(err):
		insufficient, _ := errors.AsInsufficientDataError(err)
		lines = []string{
			fmt.Sprintf("Error: insufficient training data (need %d trading days, got %d)", insufficient.Required, insufficient.Actual),
			fmt.Sprintf("A %d-day window needs at least one more day to form a training sample.", config.Model.WindowLength),
		}
	case errors.HasCode(err, errors.ErrCodeInvalidColumns), errors.HasCode(err, errors.ErrCodeCleaningFailed):
		lines = []string{
			fmt.Sprintf("Error processing data: %v", err),
		}
	default:
		lines = []string{
			fmt.Sprintf("Error during model training or prediction: %v", err),
			"This might be due to:",
			"- Insufficient training data",
			"- Model configuration issues",
		}
	}

	fmt.Fprintln(a.stderr, ErrorStyle.Render(lines[0]))

	for _, line := range lines[1:] {
		fmt.Fprintln(a.stderr, HelpStyle.Render(line))
	}

	return cli.Exit("", 1)
}

func (a *app) downloadAction(ctx context.Context, cmd *cli.Command) error {
	config, log, err := a.setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	info, err := marketdata.GetProviderInfo(config.Provider)
	if err != nil {
		return cli.Exit(ErrorStyle.Render(err.Error()), 1)
	}

	fmt.Fprintln(a.stdout, TitleStyle.Render(fmt.Sprintf("Downloading daily bars from %s", info.DisplayName)))
	fmt.Fprintf(a.stdout, "Candidates: %s\n", strings.Join(config.Symbols, ", "))

	bar := progressbar.NewOptions(len(config.Symbols),
		progressbar.OptionSetWriter(a.stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	p, err := pipeline.NewPipeline(config, log, pipeline.Callbacks{
		OnAcquireProgress: func(current, _ float64, message string) {
			bar.Describe(message)
			_ = bar.Set(int(current))
		},
	})
	if err != nil {
		return err
	}

	if a.provider != nil {
		p.WithProvider(a.provider)
	}

	result, err := p.Acquire(ctx)
	if err != nil {
		return cli.Exit(ErrorStyle.Render(fmt.Sprintf("Download failed: %v", err)), 1)
	}

	if result.IsNone() {
		fmt.Fprintln(a.stderr, ErrorStyle.Render("Could not find data with any of the tried symbols."))
		fmt.Fprintln(a.stderr, HelpStyle.Render("You may need to:"))
		fmt.Fprintln(a.stderr, HelpStyle.Render("1. Check the correct symbol with the data provider"))
		fmt.Fprintln(a.stderr, HelpStyle.Render("2. Download data manually and pass it with --raw"))
		fmt.Fprintln(a.stderr, HelpStyle.Render("3. Use a different data source with --provider"))

		return cli.Exit("", 1)
	}

	acquired := result.Unwrap()
	fmt.Fprintln(a.stdout, SuccessStyle.Render(fmt.Sprintf("Success! Found data for %s", acquired.Symbol)))
	fmt.Fprintf(a.stdout, "Rows: %d\n", acquired.Rows)
	fmt.Fprintf(a.stdout, "Date range: %s to %s\n", acquired.First.Format(types.DateLayout), acquired.Last.Format(types.DateLayout))
	fmt.Fprintf(a.stdout, "Saved to %s\n", acquired.Path)

	return nil
}

func (a *app) cleanAction(ctx context.Context, cmd *cli.Command) error {
	config, log, err := a.setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	p, err := pipeline.NewPipeline(config, log, pipeline.Callbacks{})
	if err != nil {
		return err
	}

	series, stats, err := p.Clean(ctx)
	if err != nil {
		return a.runFailure(config, err)
	}

	first, _ := series.First()
	last, ok := series.Last()

	fmt.Fprintln(a.stdout, SuccessStyle.Render("Data processed successfully!"))

	if ok {
		fmt.Fprintf(a.stdout, "Data range: %s to %s\n", first.Date.Format(types.DateLayout), last.Date.Format(types.DateLayout))
		fmt.Fprintf(a.stdout, "Latest closing price: $%.2f\n", last.Close)
	}

	fmt.Fprintf(a.stdout, "Total trading days: %d (dropped %d, duplicates %d)\n", stats.Rows, stats.Dropped, stats.Duplicates)
	fmt.Fprintf(a.stdout, "Cleaned data saved to %s\n", config.CleanPath)

	if stats.Rows <= config.Model.WindowLength {
		fmt.Fprintln(a.stdout, HelpStyle.Render(fmt.Sprintf("Note: at least %d trading days are needed to train.", config.Model.WindowLength+1)))
	}

	return nil
}

func (a *app) schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := pipeline.ConfigSchema()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(a.stdout, schema)

	return err
}
