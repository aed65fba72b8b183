package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/harrison/evalrun/internal/store"
)

const shortIDLen = 8

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded evaluation runs",
		Long: `List recorded evaluation runs, most recent first.

Run ids can be abbreviated to any unique prefix in the transcript and
score commands; the table shows the first 8 characters.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 = all)")
	cmd.Flags().String("store", "", "Path to the results database")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	output := cmd.OutOrStdout()

	dbPath := storePath(cmd, cfg)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(output, "No runs recorded yet.")
		return nil
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := st.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(output, "No runs recorded yet.")
		return nil
	}

	printRuns(output, runs)
	return nil
}

func printRuns(w io.Writer, runs []store.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Created", "Status", "Model", "Tasks", "Samples"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			shortID(run.ID),
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			run.Status,
			run.Model,
			strings.Join(run.Tasks, ", "),
			fmt.Sprintf("%d/%d", run.Succeeded, run.Samples),
		})
	}
	t.Render()
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}
