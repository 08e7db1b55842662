package session

import (
	"context"
	"sync"
	"time"
)

// PassFunc receives the result of a live pass. err is non-nil when the pass
// could not complete for a reason other than being superseded.
type PassFunc func(pass *Pass, err error)

// Live re-evaluates a document after edits settle.
//
// Each Schedule call restarts the debounce timer and cancels any pass still
// running for an older text, so only the newest text is ever reported.
type Live struct {
	session *Session
	delay   time.Duration
	onPass  PassFunc
	base    context.Context

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	gen     uint64
	stopped bool
	wg      sync.WaitGroup
}

// Live starts a live scheduler bound to ctx. The debounce delay comes from
// the session config; zero or less means no delay. Cancelling ctx cancels
// in-flight passes but does not stop the scheduler; call Stop for that.
func (s *Session) Live(ctx context.Context, onPass PassFunc) *Live {
	return &Live{
		session: s,
		delay:   s.cfg.LiveDebounce,
		onPass:  onPass,
		base:    ctx,
	}
}

// Schedule queues text for evaluation after the debounce delay, superseding
// anything queued or running.
func (l *Live) Schedule(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}

	l.supersede()
	l.gen++
	gen := l.gen
	l.timer = time.AfterFunc(max(l.delay, 0), func() { l.fire(gen, text) })
}

// Stop cancels pending and running passes and waits for them to return.
// No PassFunc call starts after Stop returns.
func (l *Live) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.gen++
	l.supersede()
	l.mu.Unlock()

	l.wg.Wait()
}

// supersede must be called with mu held.
func (l *Live) supersede() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *Live) fire(gen uint64, text string) {
	l.mu.Lock()
	if l.stopped || gen != l.gen {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(l.base)
	l.cancel = cancel
	l.wg.Add(1)
	l.mu.Unlock()

	defer l.wg.Done()
	defer cancel()

	pass, err := l.session.Run(ctx, text)

	l.mu.Lock()
	current := gen == l.gen
	l.mu.Unlock()
	if !current || l.onPass == nil {
		return
	}
	l.onPass(pass, err)
}
