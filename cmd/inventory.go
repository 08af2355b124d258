package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/JA3G3R/reviewcrew/report"
	"github.com/JA3G3R/reviewcrew/scanners"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var inventoryMarkdown bool

var inventoryCmd = &cobra.Command{
	Use:   "inventory [path]",
	Short: "List the supported source files under a path",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := scanners.DiscoverFiles(cmd.Context(), targetPath(args), scanners.DefaultMaxContentBytes)
		if err != nil {
			return err
		}
		if inventoryMarkdown {
			fmt.Println(report.Inventory(files))
			return nil
		}
		if len(files) == 0 {
			fmt.Println("No supported code files found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PATH\tLANGUAGE\tSIZE\tLINES\tNOTE")
		var total uint64
		lines := 0
		for _, f := range files {
			note := ""
			switch {
			case !f.Readable():
				note = f.Err
			case f.Truncated:
				note = "truncated for analysis"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Path, f.Language,
				humanize.Bytes(uint64(f.SizeBytes)), humanize.Comma(int64(f.LinesOfCode)), note)
			total += uint64(f.SizeBytes)
			lines += f.LinesOfCode
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%d files, %s, %s lines",
			len(files), humanize.Bytes(total), humanize.Comma(int64(lines)))))
		return nil
	},
}

func init() {
	inventoryCmd.Flags().BoolVar(&inventoryMarkdown, "markdown", false, "print the markdown inventory the review agents see")
	rootCmd.AddCommand(inventoryCmd)
}
