package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/newhook/triage/internal/logging"
	"github.com/newhook/triage/internal/logtext"
	"github.com/newhook/triage/internal/report"
	"github.com/newhook/triage/internal/rules"
)

var (
	flagCheckFormat   string
	flagCheckRaw      bool
	flagCheckParallel bool
)

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Check logs for known problems",
	Long: `Check one or more launcher logs for known problems.
Reads standard input when no file is given or the file is "-".`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&flagCheckFormat, "format", "f", "", "output format: text, json or yaml (default from config)")
	checkCmd.Flags().BoolVar(&flagCheckRaw, "raw", false, "check the log exactly as given, without normalizing line endings")
	checkCmd.Flags().BoolVar(&flagCheckParallel, "parallel", false, "evaluate rules concurrently")
}

// checkOptions controls how sources are read and evaluated.
type checkOptions struct {
	Normalize bool
	Parallel  bool
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := GetContext()

	format, err := outputFormat(flagCheckFormat)
	if err != nil {
		return err
	}

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	sources := args
	if len(sources) == 0 {
		sources = []string{logtext.StdinName}
	}

	reports, err := checkSources(ctx, eng, sources, cmd.InOrStdin(), checkOptions{
		Normalize: appConfig.Input.ShouldNormalize() && !flagCheckRaw,
		Parallel:  flagCheckParallel,
	})
	if err != nil {
		return err
	}

	return report.Write(cmd.OutOrStdout(), format, reports, textOptions())
}

// checkSources evaluates every source concurrently and returns reports in the
// order the sources were given.
func checkSources(ctx context.Context, eng *rules.Engine, sources []string, stdin io.Reader, opts checkOptions) ([]report.Report, error) {
	stdinCount := 0
	for _, s := range sources {
		if s == logtext.StdinName {
			stdinCount++
		}
	}
	if stdinCount > 1 {
		return nil, fmt.Errorf("standard input can only be checked once")
	}

	reports := make([]report.Report, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, source := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := logtext.ReadSource(source, stdin)
			if err != nil {
				return err
			}
			reports[i] = evaluate(eng, source, text, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// evaluate runs the engine over one log and wraps the result in a report.
func evaluate(eng *rules.Engine, source, text string, opts checkOptions) report.Report {
	if opts.Normalize {
		text = logtext.Normalize(text)
	}

	var matches []rules.Match
	if opts.Parallel {
		matches = eng.EvaluateParallel(text)
	} else {
		matches = eng.Evaluate(text)
	}

	r := report.New(source, matches)
	logging.Info("checked log", "report", r.ID, "source", source, "bytes", len(text), "matches", len(matches))
	return r
}

// outputFormat resolves the --format flag against the configured default.
func outputFormat(flag string) (report.Format, error) {
	if flag == "" {
		flag = appConfig.Output.GetFormat()
	}
	return report.ParseFormat(flag)
}

func textOptions() report.TextOptions {
	return report.TextOptions{
		Width: appConfig.Output.GetWidth(),
		Color: appConfig.Output.UseColor(),
	}
}
