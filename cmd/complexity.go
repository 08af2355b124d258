package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/JA3G3R/reviewcrew/scanners"
	"github.com/spf13/cobra"
)

var complexityCmd = &cobra.Command{
	Use:   "complexity [path]",
	Short: "Estimate cyclomatic complexity per file (radon for Python when installed)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := scanners.DiscoverFiles(cmd.Context(), targetPath(args), a.cfg.MaxContentBytes)
		if err != nil {
			return err
		}
		analyzer := scanners.NewComplexityAnalyzer(a.externalTool())

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tSCORE\tBAND\tSOURCE")
		for _, f := range files {
			if !f.Readable() {
				continue
			}
			c := analyzer.Measure(cmd.Context(), f)
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", c.File, c.Score, c.Band, c.Source)
			for _, fn := range c.Functions {
				fmt.Fprintf(w, "  %s:%d\t%d\t%s\t\n", fn.Name, fn.Line, fn.Complexity, fn.Rank)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(complexityCmd)
}
