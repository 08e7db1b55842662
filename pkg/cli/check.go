package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/rewind/pkg/source"
)

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Report syntax errors without evaluating",
		Long: `Parse a JavaScript file, list its top-level statements and report syntax
errors. Nothing is evaluated. Exits non-zero when the file has errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}

			res := source.Extract(text)
			if res.HasErrors() {
				writeDiagnostics(cmd.OutOrStdout(), args[0], res.Diagnostics, newStyles(noColor))
				return fmt.Errorf("%s: %d syntax error(s)", args[0], len(res.Diagnostics))
			}

			if GlobalConfig.Debug {
				for _, u := range res.Units {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "DEBUG: unit %s\n", u.Range)
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d statement(s)\n", args[0], len(res.Units))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
