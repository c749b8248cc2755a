// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var figuresCmd = &cobra.Command{
	Use:   "figures <pdf>",
	Short: "List the tables and figures found in a PDF",
	Long: `Figures runs the extraction backends in order (pdffigures2, chandra OCR,
caption scan) and prints what the first productive backend found. An empty
result is not an error. --images writes each extracted image to a directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runFigures,
}

func init() {
	figuresCmd.Flags().String("images", "", "write extracted images to this directory")
	rootCmd.AddCommand(figuresCmd)
}

func runFigures(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return err
	}
	set := newFigures().ExtractFigures(cmd.Context(), args[0])
	w := cmd.OutOrStdout()

	tables, figs := set.Count()
	if set.Empty() {
		fmt.Fprintln(w, "no tables or figures found")
		return nil
	}
	fmt.Fprintf(w, "%d tables, %d figures (via %s)\n", tables, figs, set.Source)

	imageDir, _ := cmd.Flags().GetString("images")
	if imageDir != "" {
		if err := os.MkdirAll(imageDir, 0o755); err != nil {
			return err
		}
	}
	for _, f := range set.Figures {
		fmt.Fprintf(w, "  %-6s %-4s p.%-3d %s\n", f.Type, f.Name, f.Page, truncate(f.Caption, 80))
		if imageDir == "" || len(f.Image) == 0 {
			continue
		}
		name := fmt.Sprintf("%s-%s-p%d.png", f.Type, sanitizeName(f.Name), f.Page)
		if err := os.WriteFile(filepath.Join(imageDir, name), f.Image, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
