// Package session drives evaluation passes over a document.
//
// A pass extracts the document's units, runs them in order in a fresh sandbox
// context, records each step in the history store and produces annotations
// for display. Passes on one Session are serialized.
package session

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dshills/rewind/pkg/config"
	"github.com/dshills/rewind/pkg/domain/types"
	"github.com/dshills/rewind/pkg/errors"
	"github.com/dshills/rewind/pkg/history"
	"github.com/dshills/rewind/pkg/sandbox"
	"github.com/dshills/rewind/pkg/source"
)

// Pass is the outcome of evaluating one version of a document.
type Pass struct {
	RunID       types.RunID
	Text        string
	Units       []source.Unit
	Diagnostics []source.Diagnostic
	// Outcomes holds one entry per evaluated unit, in unit order. It is
	// shorter than Units when the pass was cancelled.
	Outcomes    []sandbox.Outcome
	Annotations []Annotation
	Duration    time.Duration
}

// Failed reports whether the pass had syntax errors or any unit failed.
func (p *Pass) Failed() bool {
	if len(p.Diagnostics) > 0 {
		return true
	}
	for _, o := range p.Outcomes {
		if o.Failed() {
			return true
		}
	}
	return false
}

// Session owns an evaluator and a history store.
type Session struct {
	mu             sync.Mutex
	cfg            config.Config
	evaluator      *sandbox.Evaluator
	history        *history.Store
	historyEnabled bool
	logger         *slog.Logger
}

// New creates a session from resolved settings. A nil logger means
// slog.Default().
func New(cfg config.Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg: cfg,
		evaluator: sandbox.NewEvaluator(sandbox.Options{
			Timeout: cfg.EvaluationTimeout,
			Logger:  logger,
		}),
		history:        history.NewStore(cfg.HistoryCapacity, history.WithLogger(logger)),
		historyEnabled: cfg.HistoryEnabled,
		logger:         logger.With(slog.String("component", "session")),
	}
}

// Config returns the settings the session was created with.
func (s *Session) Config() config.Config {
	return s.cfg
}

// History returns the session's history store.
func (s *Session) History() *history.Store {
	return s.history
}

// SetHistoryEnabled turns step recording on or off for later passes.
func (s *Session) SetHistoryEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyEnabled = enabled
}

// HistoryEnabled reports whether passes record steps.
func (s *Session) HistoryEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyEnabled
}

// Reset drops all recorded history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.ClearHistory()
}

// Run evaluates text as one pass.
//
// When extraction reports diagnostics nothing is evaluated and the pass
// carries one error annotation per diagnostic. Otherwise every unit runs in
// order in a fresh context; a failing unit does not stop later units.
//
// Run returns an *errors.OperationalError wrapping ctx.Err() when ctx is done
// before the pass completes. The partial pass is returned with it; the unit
// that was interrupted is neither recorded nor annotated.
func (s *Session) Run(ctx context.Context, text string) (*Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	pass := &Pass{RunID: types.NewRunID(), Text: text}
	logger := s.logger.With(slog.String("run_id", pass.RunID.String()))

	extracted := source.Extract(text)
	pass.Units = extracted.Units
	pass.Diagnostics = extracted.Diagnostics

	if len(pass.Diagnostics) > 0 {
		for _, d := range pass.Diagnostics {
			pass.Annotations = append(pass.Annotations, Annotation{Range: d.Range, Kind: KindError, Text: d.Message})
		}
		pass.Duration = time.Since(start)
		logger.Debug("pass rejected", slog.Int("diagnostics", len(pass.Diagnostics)))
		return pass, nil
	}

	var annotations []Annotation
	sc := s.evaluator.CreateContext(func(message string, origin *source.Range) {
		if origin == nil {
			logger.Info("unattributed output", slog.String("message", message))
			return
		}
		annotations = append(annotations, Annotation{Range: *origin, Kind: KindLog, Text: message})
	})

	for _, unit := range pass.Units {
		if err := ctx.Err(); err != nil {
			return s.abandon(pass, annotations, start, unit, err)
		}

		mark := len(annotations)
		outcome := s.evaluator.Evaluate(ctx, unit.Text, unit.Range, sc)
		if err := ctx.Err(); err != nil {
			return s.abandon(pass, annotations[:mark], start, unit, err)
		}
		pass.Outcomes = append(pass.Outcomes, outcome)

		if s.historyEnabled {
			s.history.RecordStep(unit.Text, unit.Range, outcome.Value, sc, outcome.Err)
		}

		switch {
		case outcome.Failed():
			annotations = append(annotations, Annotation{Range: unit.Range, Kind: KindError, Text: outcome.Err})
		case !outcome.Value.IsUndefined() && !source.IsConsoleCall(unit.Node):
			annotations = append(annotations, Annotation{Range: unit.Range, Kind: KindResult, Text: outcome.Value.String()})
		}
	}

	pass.Annotations = sortAnnotations(annotations)
	pass.Duration = time.Since(start)
	logger.Debug("pass complete",
		slog.Int("units", len(pass.Units)),
		slog.Int("annotations", len(pass.Annotations)),
		slog.Duration("duration", pass.Duration))
	return pass, nil
}

func (s *Session) abandon(pass *Pass, annotations []Annotation, start time.Time, unit source.Unit, cause error) (*Pass, error) {
	pass.Annotations = sortAnnotations(annotations)
	pass.Duration = time.Since(start)
	s.logger.Debug("pass abandoned",
		slog.String("run_id", pass.RunID.String()),
		slog.String("unit", unit.Range.String()),
		slog.Any("error", cause))
	return pass, errors.NewOperationalError("evaluating unit", pass.RunID.String(), unit.Range.String(), cause).
		WithAttrs(map[string]any{"completed": len(pass.Outcomes), "units": len(pass.Units)})
}

// sortAnnotations orders annotations by start line, keeping emission order
// within a line.
func sortAnnotations(annotations []Annotation) []Annotation {
	slices.SortStableFunc(annotations, func(a, b Annotation) int {
		return cmp.Compare(a.Range.Start.Line, b.Range.Start.Line)
	})
	return annotations
}
