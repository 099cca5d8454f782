package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/newhook/triage/internal/rules"
)

var flagRulesWide bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List detector rules in evaluation order",
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().BoolVar(&flagRulesWide, "wide", false, "do not truncate triggers")
}

func runRules(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(GetContext())
	if err != nil {
		return err
	}

	width := 0
	if !flagRulesWide {
		width = appConfig.Output.GetWidth()
	}
	printRules(cmd.OutOrStdout(), eng.Rules(), eng.MissingKeys(), width)
	return nil
}

// printRules writes one line per rule followed by its trigger. A width of 0
// disables truncation.
func printRules(w io.Writer, infos []rules.RuleInfo, missing []string, width int) {
	inactive := make(map[string]bool, len(missing))
	for _, key := range missing {
		inactive[key] = true
	}

	fmt.Fprintf(w, "%-3s %-28s %-8s %-9s %s\n", "#", "RULE", "SEVERITY", "KIND", "RESPONSE")
	fmt.Fprintf(w, "%-3s %-28s %-8s %-9s %s\n", "-", "----", "--------", "----", "--------")

	for i, info := range infos {
		response := info.Key
		if inactive[info.Key] {
			response += " (missing, inactive)"
		}
		fmt.Fprintf(w, "%-3d %-28s %-8s %-9s %s\n", i+1, info.Name, info.Severity, info.Kind, response)

		trigger := info.Trigger
		if width > 0 {
			trigger = ansi.Truncate(trigger, max(width-4, 10), "...")
		}
		fmt.Fprintf(w, "    %s\n", trigger)
	}
}
