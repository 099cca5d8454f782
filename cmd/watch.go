package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/newhook/triage/internal/logging"
	"github.com/newhook/triage/internal/report"
	"github.com/newhook/triage/internal/rules"
	"github.com/newhook/triage/internal/watch"
)

var (
	flagWatchFormat string
	flagWatchRaw    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch file...",
	Short: "Re-check logs whenever they change",
	Long: `Watch launcher logs and print a report each time one changes.
Rewrites that leave the content unchanged are not reported again. Stop with Ctrl-C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&flagWatchFormat, "format", "f", "", "output format: text, json or yaml (default from config)")
	watchCmd.Flags().BoolVar(&flagWatchRaw, "raw", false, "check logs exactly as written, without normalizing line endings")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := GetContext()

	format, err := outputFormat(flagWatchFormat)
	if err != nil {
		return err
	}

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	w, err := watch.New(watch.Config{
		Paths:     args,
		Debounce:  appConfig.Watch.GetDebounce(),
		DedupeTTL: appConfig.Watch.GetDedupeTTL(),
	})
	if err != nil {
		return err
	}

	logging.Info("watching logs", "paths", w.Targets())
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d file(s), press Ctrl-C to stop\n", len(w.Targets()))

	opts := checkOptions{Normalize: appConfig.Input.ShouldNormalize() && !flagWatchRaw}
	return w.Run(ctx, watchHandler(cmd.OutOrStdout(), eng, format, opts))
}

// watchHandler prints a report for every changed file.
func watchHandler(out io.Writer, eng *rules.Engine, format report.Format, opts checkOptions) watch.Handler {
	return func(path, text string) {
		r := evaluate(eng, path, text, opts)
		if err := report.Write(out, format, []report.Report{r}, textOptions()); err != nil {
			logging.Error("failed to write report", "path", path, "error", err)
		}
	}
}
