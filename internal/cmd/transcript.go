package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/evalrun/internal/display"
	"github.com/harrison/evalrun/internal/store"
)

// NewTranscriptCommand creates the transcript command
func NewTranscriptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <run-id>",
		Short: "Replay the conversations of a recorded run",
		Long: `Replay the conversations of a recorded run the way the conversation
display shows them: one panel per message followed by the sample's outcome.

Use --sample to show a single sample and --raw for JSON output.`,
		Args: cobra.ExactArgs(1),
		RunE: runTranscript,
	}

	cmd.Flags().String("sample", "", "Only show this sample id")
	cmd.Flags().String("task", "", "Only show samples of this task")
	cmd.Flags().Bool("raw", false, "Print the samples as JSON")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().String("store", "", "Path to the results database")

	return cmd
}

func runTranscript(cmd *cobra.Command, args []string) error {
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
	taskName, _ := cmd.Flags().GetString("task")
	samples, err := st.LoadSamples(ctx, run.ID, sampleID)
	if err != nil {
		return err
	}
	if taskName != "" {
		filtered := samples[:0]
		for _, s := range samples {
			if s.Task == taskName {
				filtered = append(filtered, s)
			}
		}
		samples = filtered
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples found in run %s", shortID(run.ID))
	}

	output := cmd.OutOrStdout()
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		enc := json.NewEncoder(output)
		enc.SetIndent("", "  ")
		return enc.Encode(samples)
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	renderer := display.NewTranscriptRenderer(output, !noColor && display.IsTerminal(output), 0)
	for _, s := range samples {
		renderer.RenderSample(s)
	}
	return nil
}
