package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/rewind/pkg/history"
	"github.com/dshills/rewind/pkg/inspect"
	"github.com/dshills/rewind/pkg/session"
)

// HistoryFlags holds the flags for the history command
type HistoryFlags struct {
	JSON     bool
	Where    string
	Step     int
	Lookup   string
	Variable string
	Timeout  time.Duration
}

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	flags := &HistoryFlags{}

	cmd := &cobra.Command{
		Use:   "history <file>",
		Short: "Evaluate a file and inspect the recorded steps",
		Long: `Evaluate a JavaScript file with history recording on, then show the
recorded steps.

Examples:
  # List every step with the bindings it changed
  rewind history scratch.js

  # Steps where a binding crossed a threshold
  rewind history scratch.js --where 'total > 100'

  # Steps that changed a binding
  rewind history scratch.js --where '"cart" in changed'

  # Bindings at step 3, or one nested value
  rewind history scratch.js --step 3
  rewind history scratch.js --step 3 --lookup 'cart.items.#'

  # How one binding evolved
  rewind history scratch.js --var total`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Export the full history as JSON")
	cmd.Flags().StringVar(&flags.Where, "where", "", "Only show steps matching an expression")
	cmd.Flags().IntVar(&flags.Step, "step", -1, "Show the bindings at a step (0-based)")
	cmd.Flags().StringVar(&flags.Lookup, "lookup", "", "Query bindings at the step with a path (requires --step, or uses the last step)")
	cmd.Flags().StringVar(&flags.Variable, "var", "", "Show how one binding evolved")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Per-statement time limit (default from config)")

	return cmd
}

func runHistory(cmd *cobra.Command, path string, flags *HistoryFlags) error {
	text, err := readSource(cmd, path)
	if err != nil {
		return err
	}

	settings := commandSettings(flags.Timeout)
	settings.HistoryEnabled = true
	sess := session.New(settings, GlobalConfig.Logger)
	pass, err := sess.Run(cmd.Context(), text)
	if err != nil {
		return err
	}
	if len(pass.Diagnostics) > 0 {
		writeDiagnostics(cmd.ErrOrStderr(), path, pass.Diagnostics, newStyles(true))
		return fmt.Errorf("%s: %d syntax error(s), nothing recorded", path, len(pass.Diagnostics))
	}

	store := sess.History()
	out := cmd.OutOrStdout()

	switch {
	case flags.JSON:
		return store.Export(out)

	case flags.Variable != "":
		entries := store.VariableHistory(flags.Variable)
		if len(entries) == 0 {
			return fmt.Errorf("binding %q was never recorded", flags.Variable)
		}
		writeVariableHistory(out, entries)
		return nil

	case flags.Lookup != "" || flags.Step >= 0:
		if flags.Step >= 0 && store.GoToStep(flags.Step) == nil {
			return fmt.Errorf("step %d out of range (0-%d)", flags.Step, store.Len()-1)
		}
		step := store.CurrentStep()
		if step == nil {
			return fmt.Errorf("no steps recorded")
		}
		if flags.Lookup == "" {
			writeBindings(out, store.CurrentIndex(), step)
			return nil
		}
		result, err := inspect.NewJSONPathQuerier().Lookup(*step, flags.Lookup)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal lookup result: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))
		return nil

	case flags.Where != "":
		matches, err := inspect.Where(cmd.Context(), inspect.NewExpressionEvaluator(), store.AllSteps(), flags.Where)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			_, _ = fmt.Fprintln(out, "No matching steps.")
			return nil
		}
		steps := make([]indexedStep, len(matches))
		for i, m := range matches {
			steps[i] = indexedStep{m.Index, m.Step}
		}
		writeSteps(out, steps, -1)
		return nil
	}

	all := store.AllSteps()
	steps := make([]indexedStep, len(all))
	for i, s := range all {
		steps[i] = indexedStep{i, s}
	}
	writeSteps(out, steps, store.CurrentIndex())
	return nil
}

type indexedStep struct {
	index int
	step  history.ExecutionStep
}

func writeSteps(w io.Writer, steps []indexedStep, current int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STEP\tRANGE\tUNIT\tOUTCOME\tCHANGED")
	for _, s := range steps {
		marker := " "
		if s.index == current {
			marker = "*"
		}
		outcome := "=> " + s.step.Result.String()
		if s.step.Failed() {
			outcome = "Error: " + s.step.Error
		}
		var changed []string
		for _, b := range s.step.Changed() {
			changed = append(changed, b.Name)
		}
		_, _ = fmt.Fprintf(tw, "%s%d\t%s\t%s\t%s\t%s\n",
			marker, s.index, s.step.UnitRange, truncate(s.step.UnitText, 40),
			truncate(outcome, 40), strings.Join(changed, ","))
	}
	_ = tw.Flush()
}

func writeBindings(w io.Writer, index int, step *history.ExecutionStep) {
	_, _ = fmt.Fprintf(w, "Step %d: %s\n", index, truncate(step.UnitText, 60))
	if len(step.Bindings) == 0 {
		_, _ = fmt.Fprintln(w, "No bindings.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tTYPE\tVALUE\tCHANGED")
	for _, b := range step.Bindings {
		changed := ""
		if b.Changed {
			changed = "yes"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Name, b.Type, truncate(b.Value.String(), 60), changed)
	}
	_ = tw.Flush()
}

func writeVariableHistory(w io.Writer, entries []history.VariableEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STEP\tUNIT\tVALUE")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Index, truncate(e.Step.UnitText, 40), truncate(e.Value.String(), 60))
	}
	_ = tw.Flush()
}
