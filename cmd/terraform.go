package cmd

import (
	"fmt"
	"os"

	"github.com/JA3G3R/reviewcrew/report"
	"github.com/JA3G3R/reviewcrew/scanners"
	"github.com/JA3G3R/reviewcrew/types"
	"github.com/spf13/cobra"
)

var terraformFormat string

var terraformCmd = &cobra.Command{
	Use:   "terraform",
	Short: "Scan Terraform files for IAM policy and secret issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Scanning Terraform files in:", folder)

		files, err := scanners.DiscoverFiles(cmd.Context(), folder, 0)
		if err != nil {
			return err
		}
		var tf []types.FileRecord
		for _, f := range files {
			if f.Language == "terraform" {
				tf = append(tf, f)
			}
		}
		if len(tf) == 0 {
			fmt.Println("No Terraform files found.")
			return nil
		}
		// policy parsing needs the whole file
		for i, f := range tf {
			if f.Truncated {
				tf[i] = scanners.ReadFile(f.Path, int(f.SizeBytes))
			}
		}

		results, err := scanners.Run(cmd.Context(), tf, []scanners.Analyzer{scanners.NewSecurityAnalyzer()}, 0)
		if err != nil {
			return err
		}
		findings := results.All()
		if terraformFormat == "json" {
			return report.JSON(os.Stdout, findings)
		}
		return report.Table(os.Stdout, findings)
	},
}

func init() {
	terraformCmd.Flags().StringVarP(&terraformFormat, "output", "o", "table", "output format: table or json")
	rootCmd.AddCommand(terraformCmd)
}
