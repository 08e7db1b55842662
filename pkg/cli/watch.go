package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/dshills/rewind/pkg/session"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	var (
		noColor bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-evaluate a file every time it is saved",
		Long: `Evaluate a JavaScript file, then watch it and re-evaluate after every save.
Saves arriving within the debounce window (live.debounce in rewind.yaml) are
coalesced, and a save arriving while a pass is running cancels that pass.
Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := commandSettings(timeout)
			sess := session.New(settings, GlobalConfig.Logger)
			return watchFile(cmd.Context(), cmd.OutOrStdout(), args[0], sess, newStyles(noColor), GlobalConfig.Logger)
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-statement time limit (default from config)")

	return cmd
}

// watchFile evaluates path once, then again after every write to it, until
// ctx is cancelled. Each completed pass is printed as a listing.
func watchFile(ctx context.Context, w io.Writer, path string, sess *session.Session, st styles, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often replace the file on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	var outMu sync.Mutex
	live := sess.Live(ctx, func(pass *session.Pass, err error) {
		outMu.Lock()
		defer outMu.Unlock()
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s\n", st.err.Render("pass failed: "+err.Error()))
			return
		}
		_, _ = fmt.Fprintln(w, st.dim.Render(fmt.Sprintf("── %s  %s  %d statement(s) ──",
			time.Now().Format("15:04:05"), path, len(pass.Units))))
		writeListing(w, pass.Text, pass, st)
		if len(pass.Diagnostics) > 0 {
			writeDiagnostics(w, path, pass.Diagnostics, st)
		}
	})
	defer live.Stop()

	schedule := func() {
		data, err := os.ReadFile(abs)
		if err != nil {
			logger.Debug("watch read failed", slog.String("path", abs), slog.Any("error", err))
			return
		}
		live.Schedule(string(data))
	}
	schedule()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				schedule()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
			logger.Debug("watch error", slog.Any("error", err))
		}
	}
}
