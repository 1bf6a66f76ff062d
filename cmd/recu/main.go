// recu is the receipt-draft batch tool: it matches manifest rows to PDF
// receipts under a folder tree and writes one .eml draft per row.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/relais/receipts"
)

var rootCmd = &cobra.Command{
	Use:           "recu",
	Short:         "Batch-create mail drafts with PDF receipt attachments",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var draftsFlags struct {
	manifest string
	root     string
	out      string
}

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Write .eml drafts for every manifest row",
	RunE:  runDrafts,
}

func init() {
	f := draftsCmd.Flags()
	f.StringVarP(&draftsFlags.manifest, "manifest", "m", "", "CSV manifest: to,subject,company,pattern (required)")
	f.StringVarP(&draftsFlags.root, "root", "r", ".", "Folder tree to search for receipt PDFs")
	f.StringVarP(&draftsFlags.out, "out", "o", "drafts", "Output directory for .eml files")
	_ = draftsCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(draftsCmd)
}

func runDrafts(cmd *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

	reqs, err := receipts.LoadManifest(draftsFlags.manifest)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		return fmt.Errorf("manifest %s has no rows", draftsFlags.manifest)
	}

	scanner := receipts.NewScanner(draftsFlags.root, logger)
	sum, err := receipts.WriteDrafts(cmd.Context(), reqs, scanner, draftsFlags.out, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d draft(s) written to %s\n", sum.Written, draftsFlags.out)
	for _, f := range sum.Failures {
		fmt.Fprintf(out, "failed: %s\n", f)
	}
	if len(sum.Failures) > 0 {
		return fmt.Errorf("%d request(s) failed", len(sum.Failures))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "recu:", err)
		os.Exit(1)
	}
}
