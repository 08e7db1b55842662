package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/rewind/pkg/config"
	"github.com/dshills/rewind/pkg/errors"
	"github.com/dshills/rewind/pkg/session"
	"github.com/dshills/rewind/pkg/source"
)

// passReport is the --json form of a pass.
type passReport struct {
	RunID       string               `json:"runId"`
	File        string               `json:"file"`
	Units       int                  `json:"units"`
	Failed      bool                 `json:"failed"`
	DurationMS  int64                `json:"durationMs"`
	Diagnostics []source.Diagnostic  `json:"diagnostics"`
	Annotations []session.Annotation `json:"annotations"`
}

func newPassReport(name string, pass *session.Pass) passReport {
	r := passReport{
		RunID:       pass.RunID.String(),
		File:        name,
		Units:       len(pass.Units),
		Failed:      pass.Failed(),
		DurationMS:  pass.Duration.Milliseconds(),
		Diagnostics: pass.Diagnostics,
		Annotations: pass.Annotations,
	}
	if r.Diagnostics == nil {
		r.Diagnostics = []source.Diagnostic{}
	}
	if r.Annotations == nil {
		r.Annotations = []session.Annotation{}
	}
	return r
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var (
		outputJSON bool
		noColor    bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Evaluate a JavaScript file and annotate every statement",
		Long: `Evaluate each top-level statement of a JavaScript file in order and print
the file with each statement's result, console output or error appended as a
trailing comment.

Examples:
  # Annotate a file
  rewind run scratch.js

  # Read from stdin
  cat scratch.js | rewind run -

  # Machine-readable output with a longer per-statement limit
  rewind run scratch.js --json --timeout 5s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}

			sess := session.New(commandSettings(timeout), GlobalConfig.Logger)
			pass, err := sess.Run(cmd.Context(), text)
			if err != nil {
				return err
			}

			if outputJSON {
				output, err := json.MarshalIndent(newPassReport(args[0], pass), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal output: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}

			st := newStyles(noColor)
			writeListing(cmd.OutOrStdout(), text, pass, st)
			if len(pass.Diagnostics) > 0 {
				writeDiagnostics(cmd.ErrOrStderr(), args[0], pass.Diagnostics, st)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output annotations as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-statement time limit (default from config)")

	return cmd
}

// commandSettings returns the loaded settings with command-line overrides.
func commandSettings(timeout time.Duration) config.Config {
	settings := GlobalConfig.Settings
	if settings.HistoryCapacity == 0 {
		settings = config.Defaults()
	}
	if timeout > 0 {
		settings.EvaluationTimeout = timeout
	}
	return settings
}

// readSource reads path, or stdin when path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.NewOperationalError("reading source", "", "", err).
			WithAttrs(map[string]any{"path": path})
	}
	return string(data), nil
}
