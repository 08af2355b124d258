package cmd

import (
	"github.com/JA3G3R/reviewcrew/web"
	"github.com/spf13/cobra"
)

var (
	serveAddr    string
	serveOffline bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research crew behind a web form",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		gen, err := a.generator(ctx, serveOffline)
		if err != nil {
			return err
		}
		srv := web.New(a.researchRunner(gen), a.store, a.log)
		return srv.ListenAndServe(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8501", "listen address")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "use the offline generator")
	rootCmd.AddCommand(serveCmd)
}
