package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/newhook/triage/internal/catalog"
	"github.com/newhook/triage/internal/rules"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and override response messages",
	Long: `Response messages come from the built-in catalog, then the catalog file named in
the config, then the override database. Later sources win for the same key.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List response keys",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Print a response message",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogShow,
}

var catalogSetCmd = &cobra.Command{
	Use:   "set KEY TEXT",
	Short: "Override a response message",
	Args:  cobra.ExactArgs(2),
	RunE:  runCatalogSet,
}

var catalogRemoveCmd = &cobra.Command{
	Use:   "remove KEY",
	Short: "Remove a response override",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogRemove,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Store every response from a TOML catalog file as an override",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogImport,
}

var catalogVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every rule has a response",
	Args:  cobra.NoArgs,
	RunE:  runCatalogVerify,
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogSetCmd)
	catalogCmd.AddCommand(catalogRemoveCmd)
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogVerifyCmd)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	cat, err := buildCatalog(GetContext(), appConfig, flagStateDir)
	if err != nil {
		return err
	}
	printCatalog(cmd.OutOrStdout(), cat, appConfig.Output.GetWidth())
	return nil
}

// printCatalog writes each key with the start of its message.
func printCatalog(w io.Writer, cat *catalog.Catalog, width int) {
	keys := cat.Keys()
	if len(keys) == 0 {
		fmt.Fprintln(w, "No responses")
		return
	}

	keyWidth := 0
	for _, key := range keys {
		keyWidth = max(keyWidth, len(key))
	}
	for _, key := range keys {
		text, _ := cat.Lookup(key)
		firstLine, _, _ := strings.Cut(text, "\n")
		preview := truncate.StringWithTail(firstLine, uint(max(width-keyWidth-2, 10)), "...")
		fmt.Fprintf(w, "%-*s  %s\n", keyWidth, key, preview)
	}
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	cat, err := buildCatalog(GetContext(), appConfig, flagStateDir)
	if err != nil {
		return err
	}
	text, ok := cat.Lookup(args[0])
	if !ok {
		return fmt.Errorf("no response for key %q", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), wordwrap.String(text, appConfig.Output.GetWidth()))
	return nil
}

func runCatalogSet(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetResponse(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set response %s\n", args[0])
	return nil
}

func runCatalogRemove(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	existed, err := store.DeleteResponse(ctx, args[0])
	if err != nil {
		return err
	}
	if !existed {
		fmt.Fprintf(cmd.OutOrStdout(), "No override for %s\n", args[0])
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed override for %s\n", args[0])
	return nil
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	ctx := GetContext()
	entries, err := catalog.LoadFile(args[0])
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ImportResponses(ctx, entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d response(s)\n", len(entries))
	return nil
}

func runCatalogVerify(cmd *cobra.Command, args []string) error {
	return verifyCatalog(GetContext(), cmd.OutOrStdout())
}

// verifyCatalog reports rules without a response and responses no rule uses.
// Missing responses are an error because those rules can never fire.
func verifyCatalog(ctx context.Context, w io.Writer) error {
	cat, err := buildCatalog(ctx, appConfig, flagStateDir)
	if err != nil {
		return err
	}
	eng, err := rules.Default(cat)
	if err != nil {
		return fmt.Errorf("failed to build rule engine: %w", err)
	}

	used := make(map[string]bool)
	for _, info := range eng.Rules() {
		used[info.Key] = true
	}
	for _, key := range cat.Keys() {
		if !used[key] {
			fmt.Fprintf(w, "unused response: %s\n", key)
		}
	}

	missing := eng.MissingKeys()
	for _, key := range missing {
		fmt.Fprintf(w, "missing response: %s\n", key)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%d rule response(s) missing", len(missing))
	}
	fmt.Fprintf(w, "All %d rules have responses\n", len(eng.Rules()))
	return nil
}
