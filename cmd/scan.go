package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/JA3G3R/reviewcrew/report"
	"github.com/JA3G3R/reviewcrew/scanners"
	"github.com/JA3G3R/reviewcrew/types"
	"github.com/spf13/cobra"
)

var (
	scanOutput string
	scanOnly   []string
	scanFailOn string
	scanSARIF  string
)

var markdownKinds = map[string]report.Kind{
	"static":      report.Static,
	"security":    report.Security,
	"performance": report.Performance,
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Run the analyzers without the LLM crew",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "table", "output format: table, json, markdown or sarif")
	scanCmd.Flags().StringSliceVar(&scanOnly, "only", nil, "analyzers to run (static, security, performance, complexity)")
	scanCmd.Flags().StringVar(&scanFailOn, "fail-on", "", "exit non-zero when a finding at or above this severity exists")
	scanCmd.Flags().StringVar(&scanSARIF, "sarif-dir", "", "directory for the SARIF file (default output_dir)")
	rootCmd.AddCommand(scanCmd)
}

func selectAnalyzers(all []scanners.Analyzer, only []string) ([]scanners.Analyzer, error) {
	if len(only) == 0 {
		return all, nil
	}
	byName := make(map[string]scanners.Analyzer, len(all))
	for _, a := range all {
		byName[a.Name()] = a
	}
	var out []scanners.Analyzer
	for _, name := range only {
		a, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown analyzer %q", name)
		}
		out = append(out, a)
	}
	return out, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tool := a.externalTool()
	analyzers, err := selectAnalyzers(
		append(scanners.Default(a.cfg.MaxLineLength, tool), scanners.NewComplexityAnalyzer(tool)),
		scanOnly,
	)
	if err != nil {
		return err
	}

	path := targetPath(args)
	files, err := scanners.DiscoverFiles(ctx, path, a.cfg.MaxContentBytes)
	if err != nil {
		return err
	}
	results, err := scanners.Run(ctx, files, analyzers, a.cfg.Workers)
	if err != nil {
		return err
	}
	findings := results.All()
	a.log.Debugw("scan finished", "path", path, "files", len(files), "findings", len(findings))

	switch scanOutput {
	case "json":
		err = report.JSON(os.Stdout, findings)
	case "markdown":
		printMarkdown(ctx, results, analyzers)
	case "sarif":
		dir := scanSARIF
		if dir == "" {
			dir = a.cfg.OutputDir
		}
		var out string
		out, err = report.WriteSARIF(findings, dir, "reviewcrew", "reviewcrew", Version)
		if err == nil {
			fmt.Println("SARIF written to", out)
		}
	case "table":
		err = report.Table(os.Stdout, findings)
	default:
		return fmt.Errorf("unknown output format %q", scanOutput)
	}
	if err != nil {
		return err
	}

	if scanFailOn != "" {
		limit := types.ParseSeverity(scanFailOn)
		for _, f := range findings {
			if f.Severity.Rank() <= limit.Rank() {
				fmt.Fprintf(os.Stderr, "%s finding at or above %s\n", severityLabel(f.Severity), limit)
				return errReported
			}
		}
	}
	return nil
}

func printMarkdown(ctx context.Context, results scanners.Results, analyzers []scanners.Analyzer) {
	for _, an := range analyzers {
		kind, isReport := markdownKinds[an.Name()]
		cx, isComplexity := an.(*scanners.ComplexityAnalyzer)
		for _, fr := range results {
			if !fr.File.Readable() {
				continue
			}
			switch {
			case isReport:
				fmt.Println(report.Markdown(kind, fr.File.Path, fr.Findings[an.Name()]))
			case isComplexity:
				fmt.Println(report.Complexity(fr.File.Path, cx.Measure(ctx, fr.File)))
			default:
				continue
			}
			fmt.Println()
		}
	}
}
