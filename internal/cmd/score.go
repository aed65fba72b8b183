package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/evalrun/internal/display"
	"github.com/harrison/evalrun/internal/eval"
	"github.com/harrison/evalrun/internal/models"
	"github.com/harrison/evalrun/internal/store"
)

// NewScoreCommand creates the score command
func NewScoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <run-id>",
		Short: "Score the samples of a recorded run by hand",
		Long: `Score the samples of a recorded run by hand.

Each completed sample is shown with its conversation and targets, and the
score you enter replaces the stored one. Samples that did not complete are
skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: runScore,
	}

	cmd.Flags().String("sample", "", "Only score this sample id")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().String("store", "", "Path to the results database")

	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.NewStore(storePath(cmd, cfg))
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	run, err := st.GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	sampleID, _ := cmd.Flags().GetString("sample")
	samples, err := st.LoadSamples(ctx, run.ID, sampleID)
	if err != nil {
		return err
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	disp := display.New(display.ModeNone, display.Options{
		Out:     cmd.OutOrStdout(),
		In:      cmd.InOrStdin(),
		NoColor: noColor,
	})
	defer disp.Close()

	var scored, skipped int
	for _, s := range samples {
		if s.Status != models.StatusSuccess {
			skipped++
			continue
		}

		state := &eval.TaskState{
			Task:     s.Task,
			Sample:   s.Sample,
			Epoch:    s.Epoch,
			Messages: s.Messages,
			Output:   s.Output,
			Display:  disp,
		}
		score, err := eval.HumanScorer{}.Score(ctx, state)
		if err != nil {
			return fmt.Errorf("score %s: %w", state.Ref(), err)
		}
		if err := st.UpdateScore(ctx, run.ID, s.Task, s.Sample.ID, s.Epoch, score); err != nil {
			return err
		}
		scored++
	}

	disp.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "Scored %d sample(s) in run %s", scored, shortID(run.ID))
	if skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " (%d incomplete skipped)", skipped)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
