package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JA3G3R/reviewcrew/crew"
	"github.com/JA3G3R/reviewcrew/research"
	"github.com/JA3G3R/reviewcrew/reviewer"
	"github.com/JA3G3R/reviewcrew/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var replayOffline bool

var replayCmd = &cobra.Command{
	Use:   "replay <run-id> <task>",
	Short: "Re-run a recorded crew starting at one of its tasks",
	Long: `Replay loads a recorded review or research run, reuses the stored outputs of
the tasks before <task> and runs <task> and everything after it again. The
replay is recorded as a new run.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		prev, err := a.store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		var inputs map[string]string
		if err := json.Unmarshal([]byte(prev.InputsJSON), &inputs); err != nil {
			return fmt.Errorf("decode inputs of run %s: %w", prev.RunID, err)
		}
		stored, err := a.store.TaskOutputs(ctx, prev.RunID)
		if err != nil {
			return err
		}

		gen, err := a.generator(ctx, replayOffline)
		if err != nil {
			return err
		}
		runID := uuid.NewString()
		var c *crew.Crew
		switch prev.Kind {
		case reviewer.CrewName:
			c, err = a.pipeline(gen).Crew(runID)
		case research.CrewName:
			c, err = a.researchRunner(gen).Crew(runID)
		default:
			return fmt.Errorf("run %s has unknown kind %q", prev.RunID, prev.Kind)
		}
		if err != nil {
			return err
		}

		if err := a.store.CreateRun(ctx, store.RunRecord{
			RunID:      runID,
			Kind:       prev.Kind,
			Target:     prev.Target,
			StartedAt:  time.Now(),
			InputsJSON: prev.InputsJSON,
		}); err != nil {
			return err
		}
		res, err := c.Replay(ctx, inputs, args[1], crew.FromRecords(stored))
		if err != nil {
			if ferr := a.store.FinishRun(ctx, runID, store.RunStatusFailed, err.Error()); ferr != nil {
				a.log.Warnw("finish run", "run_id", runID, "error", ferr)
			}
			fmt.Println(errStyle.Render("❌ Replay failed: " + err.Error()))
			return errReported
		}
		if err := a.store.InsertTaskOutputs(ctx, crew.Records(runID, res.Tasks, time.Now())); err != nil {
			a.log.Warnw("store task outputs", "error", err)
		}
		if err := a.store.FinishRun(ctx, runID, store.RunStatusSucceeded, fmt.Sprintf("replay of %s from %s", prev.RunID, args[1])); err != nil {
			a.log.Warnw("finish run", "run_id", runID, "error", err)
		}

		fmt.Println(okStyle.Render(fmt.Sprintf("✅ Replayed %s from %q as run %s", prev.RunID, args[1], runID)))
		for _, t := range res.Tasks {
			if t.OutputFile != "" {
				fmt.Println("- " + t.OutputFile)
			}
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replayOffline, "offline", false, "use the offline generator")
	rootCmd.AddCommand(replayCmd)
}
