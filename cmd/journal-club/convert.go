// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nayanlc19/journal-club-standalone/internal/convert"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdfs...]",
	Short: "Convert PDF files to Markdown",
	Long: `Convert writes <out>/<name>.md for each PDF with a YAML frontmatter header.
markitdown runs in a docker or podman container when its image is present;
otherwise the PDF text layer is read in process. Existing outputs are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		result := convert.ConvertBatch(cmd.Context(), newConverter(cmd.Context()), args, out, cmd.OutOrStdout())
		if result.HasFailures() {
			return fmt.Errorf("%d file(s) failed conversion", result.Failed)
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().String("out", "markdown", "output directory for Markdown files")
	rootCmd.AddCommand(convertCmd)
}
