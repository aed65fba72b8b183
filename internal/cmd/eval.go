package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/harrison/evalrun/internal/config"
	"github.com/harrison/evalrun/internal/display"
	"github.com/harrison/evalrun/internal/eval"
	"github.com/harrison/evalrun/internal/filelock"
	"github.com/harrison/evalrun/internal/logger"
	"github.com/harrison/evalrun/internal/model"
	"github.com/harrison/evalrun/internal/models"
	"github.com/harrison/evalrun/internal/parser"
	"github.com/harrison/evalrun/internal/store"
	"github.com/harrison/evalrun/internal/tool"
)

// NewEvalCommand creates the eval command
func NewEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <task-file-or-directory>...",
		Short: "Run evaluation tasks",
		Long: `Run evaluation tasks against a model.

Each argument is a task file (.yaml, .yml, .md) or a directory that is
searched recursively for task files. Tasks run one after another; the
samples of a task run concurrently up to --max-samples.

Configuration is loaded from .evalrun/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  evalrun eval tasks/arith.yaml
  evalrun eval tasks/ --model openai/gpt-4o --max-samples 8
  evalrun eval review.md --display conversation --approval human
  evalrun eval tasks/ --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEval,
	}

	cmd.Flags().String("model", "", "Model to evaluate (provider/model)")
	cmd.Flags().Int("max-samples", -1, "Maximum number of concurrent samples (0 = unlimited, -1 = use config)")
	cmd.Flags().String("timeout", "", "Maximum run time (e.g., 30m, 2h)")
	cmd.Flags().String("log-dir", "", "Directory for run logs and JSON eval logs")
	cmd.Flags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	cmd.Flags().String("display", "", "Display mode (full, conversation, plain, none)")
	cmd.Flags().String("store", "", "Path to the results database")
	cmd.Flags().String("approval", "", "Tool call approval policy (none, human)")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().Bool("verbose", false, "Log at debug level")
	cmd.Flags().Bool("dry-run", false, "Validate task files and print a summary without running")

	return cmd
}

// evalFlags collects the flags that override configuration.
func evalFlags(cmd *cobra.Command) (config.Flags, error) {
	var f config.Flags
	stringFlag := func(name string) *string {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetString(name)
		return &v
	}

	f.Model = stringFlag("model")
	f.LogDir = stringFlag("log-dir")
	f.LogLevel = stringFlag("log-level")
	f.Display = stringFlag("display")
	f.StorePath = stringFlag("store")
	f.Approval = stringFlag("approval")

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose && f.LogLevel == nil {
		level := "debug"
		f.LogLevel = &level
	}

	if cmd.Flags().Changed("max-samples") {
		n, _ := cmd.Flags().GetInt("max-samples")
		if n >= 0 {
			f.MaxSamples = &n
		}
	}

	if cmd.Flags().Changed("timeout") {
		s, _ := cmd.Flags().GetString("timeout")
		timeout, err := time.ParseDuration(s)
		if err != nil {
			return f, fmt.Errorf("invalid timeout format %q: %w", s, err)
		}
		f.Timeout = &timeout
	}
	return f, nil
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags, err := evalFlags(cmd)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(flags)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tasks, err := parser.ParseFiles(args)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	out := cmd.OutOrStdout()
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		printTaskSummary(out, tasks, cfg.Model)
		return nil
	}

	mode, err := display.ParseMode(cfg.Display)
	if err != nil {
		return err
	}
	noColor, _ := cmd.Flags().GetBool("no-color")
	disp := display.New(mode, display.Options{
		Out:             out,
		In:              cmd.InOrStdin(),
		NoColor:         noColor,
		RefreshInterval: cfg.RefreshInterval,
	})
	defer disp.Close()

	// Live displays own the terminal; only warnings reach the console there.
	consoleLevel := cfg.LogLevel
	if mode == display.ModeFull || mode == display.ModeConversation {
		consoleLevel = logger.MaxLevel(cfg.LogLevel, "warn")
	}
	consoleLog := logger.NewConsoleLoggerWithColor(disp.LogWriter(), consoleLevel, !noColor && display.IsTerminal(out))

	fileLog, err := logger.NewFileLoggerWithLevel(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()

	st, err := store.NewStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer st.Close()

	approver, err := eval.NewApprover(cfg.Approval)
	if err != nil {
		return err
	}

	toolOpts, err := toolOptions(cfg)
	if err != nil {
		return err
	}

	runner := eval.NewRunner(eval.Config{
		Model:          cfg.Model,
		MaxSamples:     cfg.MaxSamples,
		MaxConnections: cfg.MaxConnections,
		Timeout:        cfg.Timeout,
		Serial:         mode == display.ModeConversation,
		Approver:       approver,
		Tools:          toolOpts,
	}, disp, logger.NewMultiLogger(consoleLog, fileLog), st)

	result, runErr := runner.Run(cmd.Context(), tasks)
	disp.Close()

	if result != nil {
		path, err := filelock.WriteEvalLog(cfg.LogDir, *result)
		if err != nil {
			fileLog.LogError(fmt.Sprintf("Failed to write eval log: %v", err))
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to write eval log: %v\n", err)
		} else {
			fmt.Fprintf(out, "Eval log: %s\n", path)
		}
		printRunSummary(out, *result)
	}

	return describeRunError(runErr, result, cfg.Timeout)
}

// describeRunError adds what the operator can do next to a failed run.
func describeRunError(err error, result *models.EvalResult, timeout time.Duration) error {
	switch {
	case err == nil:
		return nil
	case eval.IsTimeoutError(err):
		return fmt.Errorf("run stopped after the %s timeout; raise --timeout to let it finish: %w", timeout, err)
	case eval.IsEvalError(err) && result != nil:
		return fmt.Errorf("%w\nInspect the failed samples with: evalrun transcript %s", err, shortID(result.RunID))
	default:
		return err
	}
}

// toolOptions maps the web_search configuration onto tool options. The
// relevance model is resolved here only when one is configured.
func toolOptions(cfg *config.Config) (tool.Options, error) {
	ws := tool.WebSearchOptions{
		Provider:         cfg.WebSearch.Provider,
		NumResults:       cfg.WebSearch.NumResults,
		MaxProviderCalls: cfg.WebSearch.MaxProviderCalls,
		MaxConnections:   cfg.WebSearch.MaxConnections,
	}
	if cfg.WebSearch.Model != "" {
		m, err := model.Get(cfg.WebSearch.Model)
		if err != nil {
			return tool.Options{}, fmt.Errorf("web_search model: %w", err)
		}
		ws.Model = m
	}
	return tool.Options{WebSearch: ws}, nil
}

func printTaskSummary(w io.Writer, tasks []models.Task, defaultModel string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Task", "Samples", "Epochs", "Model", "Solvers", "Scorer", "File"})
	for _, task := range tasks {
		m := task.Model
		if m == "" {
			m = defaultModel
		}
		solvers := make([]string, 0, len(task.Solvers))
		for _, s := range task.Solvers {
			solvers = append(solvers, s.Name)
		}
		if len(solvers) == 0 {
			solvers = append(solvers, "generate")
		}
		scorer := task.Scorer.Name
		if scorer == "" {
			scorer = "match"
		}
		t.AppendRow(table.Row{task.Name, len(task.Samples), task.EpochCount(), m, strings.Join(solvers, ", "), scorer, task.SourceFile})
	}
	t.Render()
	fmt.Fprintf(w, "\n%d task(s) are valid and ready to run.\n", len(tasks))
}

func printRunSummary(w io.Writer, result models.EvalResult) {
	total, succeeded, _ := result.Totals()
	fmt.Fprintf(w, "Run %s: %s, %d/%d samples succeeded in %s\n",
		result.RunID, result.Status, succeeded, total, logger.FormatDuration(result.Duration))
}
