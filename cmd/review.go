package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/JA3G3R/reviewcrew/reviewer"
	"github.com/JA3G3R/reviewcrew/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	reviewOffline bool
	reviewWatch   bool
	reviewRender  bool
)

var reviewCmd = &cobra.Command{
	Use:   "review [path]",
	Short: "Scan a path and have the review crew write error, security and performance reports",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewOffline, "offline", false, "skip the LLM and write the scanner output as the reports")
	reviewCmd.Flags().String("output-dir", "", "directory for the markdown reports (default output)")
	reviewCmd.Flags().BoolVar(&reviewWatch, "watch", false, "re-run the review whenever a source file changes")
	reviewCmd.Flags().BoolVar(&reviewRender, "render", false, "print the reports rendered for the terminal")
	_ = viper.BindPFlag("output_dir", reviewCmd.Flags().Lookup("output-dir"))
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	path := targetPath(args)
	if _, err := os.Stat(path); err != nil {
		fmt.Println(errStyle.Render(fmt.Sprintf("Error: Path '%s' does not exist.", path)))
		return errReported
	}

	gen, err := a.generator(ctx, reviewOffline)
	if err != nil {
		return err
	}
	p := a.pipeline(gen)

	fmt.Println(titleStyle.Render("🔍 Starting code review for: " + path))
	fmt.Println("📋 Generating 3 focused reports:")
	fmt.Println("  1. Error & Suggestions Report")
	fmt.Println("  2. Security Report")
	fmt.Println("  3. Performance Report")
	fmt.Println(mutedStyle.Render("using " + gen.Name()))
	fmt.Println(strings.Repeat("=", 50))

	ok := reviewOnce(ctx, p, path)
	if !reviewWatch {
		if !ok {
			return errReported
		}
		return nil
	}

	w, err := watch.New(path, watch.DefaultDebounce, a.log)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	fmt.Println(mutedStyle.Render("👀 Watching for changes, press Ctrl+C to stop"))
	return w.Run(ctx, func(changed []string) {
		fmt.Println()
		fmt.Printf("♻️  %d file(s) changed, reviewing again\n", len(changed))
		reviewOnce(ctx, p, path)
	})
}

// reviewOnce runs the pipeline and prints the outcome. Errors are printed,
// never returned, so watch mode keeps going.
func reviewOnce(ctx context.Context, p *reviewer.Pipeline, path string) bool {
	sum, err := p.Run(ctx, path)
	if err != nil {
		fmt.Println(errStyle.Render("❌ Error during code review: " + err.Error()))
		fmt.Println("💡 Try running again in a few minutes if rate limited.")
		return false
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println(okStyle.Render("✅ Code review completed successfully!"))
	fmt.Println("\n📊 Reports generated:")
	for _, r := range sum.Reports {
		fmt.Println("- " + r)
	}
	fmt.Println("\n📋 Summary:")
	fmt.Println(sum.String())
	fmt.Println(mutedStyle.Render("run " + sum.RunID))

	if reviewRender {
		for _, r := range sum.Reports {
			data, err := os.ReadFile(r)
			if err != nil {
				continue
			}
			fmt.Println(renderMarkdown(string(data)))
		}
	}
	return true
}
