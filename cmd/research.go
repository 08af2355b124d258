package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	researchOffline bool
	researchRender  bool
)

var researchCmd = &cobra.Command{
	Use:   "research <topic>",
	Short: "Run the researcher and reporting analyst on a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		gen, err := a.generator(ctx, researchOffline)
		if err != nil {
			return err
		}
		topic := strings.Join(args, " ")
		fmt.Println(titleStyle.Render("🚀 Researching: " + topic))

		out := a.researchRunner(gen).Respond(ctx, topic)
		if researchRender {
			out = renderMarkdown(out)
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	researchCmd.Flags().BoolVar(&researchOffline, "offline", false, "use the offline generator")
	researchCmd.Flags().BoolVar(&researchRender, "render", false, "render the report for the terminal")
	rootCmd.AddCommand(researchCmd)
}
