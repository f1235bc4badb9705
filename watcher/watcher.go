package watcher

import (
	"context"
	"sync"
	"time"

	"changeportal/client/store"
	"changeportal/config"
	"changeportal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type State string

const (
	Idle      State = "idle"
	Polling   State = "polling"
	Detected  State = "detected"
	TimedOut  State = "timed_out"
	Cancelled State = "cancelled"
)

const (
	DefaultFastInterval = 2 * time.Second
	DefaultSlowInterval = 5 * time.Second
	DefaultSlowAfter    = 20 * time.Second
	DefaultMaxDuration  = 90 * time.Second
)

type Revalidator interface {
	Revalidate(ctx context.Context, path string, token string) (*store.Response, error)
}

type Predicate func(o *domain.ManagedObject) bool

type Options struct {
	Name string

	FastInterval time.Duration
	SlowInterval time.Duration
	SlowAfter    time.Duration
	MaxDuration  time.Duration

	// token of the last known version, the first poll is unconditional when empty
	InitialToken string
}

func OptionsFrom(cfg config.WatchConfig) Options {
	return Options{
		FastInterval: cfg.FastInterval,
		SlowInterval: cfg.SlowInterval,
		SlowAfter:    cfg.SlowAfter,
		MaxDuration:  cfg.MaxDuration,
	}
}

func (o Options) withDefaults() Options {
	if o.FastInterval <= 0 {
		o.FastInterval = DefaultFastInterval
	}
	if o.SlowInterval <= 0 {
		o.SlowInterval = DefaultSlowInterval
	}
	if o.SlowAfter <= 0 {
		o.SlowAfter = DefaultSlowAfter
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = DefaultMaxDuration
	}
	return o
}

// Interval is the wait before the next poll once elapsed time has passed since the start.
func (o Options) Interval(elapsed time.Duration) time.Duration {
	if elapsed < o.SlowAfter {
		return o.FastInterval
	}
	return o.SlowInterval
}

type Outcome struct {
	WatcherID string        `json:"watcherId"`
	Name      string        `json:"name"`
	Path      string        `json:"path"`
	State     State         `json:"state"`
	Polls     int           `json:"polls"`
	Elapsed   time.Duration `json:"elapsed"`

	// refreshed object, set when State is Detected
	Object *domain.ManagedObject `json:"object,omitempty"`
}

// Handler receives Detected and TimedOut outcomes. It runs while the watcher holds its
// lock, so it must not call Cancel on the same watcher.
type Handler func(outcome Outcome)

// Watcher polls one object until predicate holds, the max duration elapses or it is cancelled.
type Watcher struct {
	id        string
	path      string
	fetcher   Revalidator
	predicate Predicate
	opts      Options

	lock    sync.Mutex
	state   State
	outcome Outcome
	begin   time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(fetcher Revalidator, path string, predicate Predicate, opts Options) *Watcher {
	w := &Watcher{
		id:        uuid.New().String(),
		path:      path,
		fetcher:   fetcher,
		predicate: predicate,
		opts:      opts.withDefaults(),
		state:     Idle,
		done:      make(chan struct{}),
	}
	w.outcome = Outcome{WatcherID: w.id, Name: w.opts.Name, Path: path, State: Idle}
	return w
}

// Start creates a watcher and begins polling right away.
func Start(ctx context.Context, fetcher Revalidator, path string, predicate Predicate, opts Options, handler Handler) *Watcher {
	w := New(fetcher, path, predicate, opts)
	w.Start(ctx, handler)
	return w
}

func (w *Watcher) Start(ctx context.Context, handler Handler) bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.state != Idle {
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.state = Polling
	w.outcome.State = Polling
	w.begin = time.Now()

	go w.run(runCtx, handler)
	return true
}

// Cancel stops polling. Once it returns, the predicate is not evaluated again and no outcome
// is emitted, a response already in flight is discarded. It reports whether the watcher was
// still pending.
func (w *Watcher) Cancel() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.cancelLocked()
}

func (w *Watcher) cancelLocked() bool {
	switch w.state {
	case Idle:
		w.setFinal(Cancelled, nil)
		close(w.done)
		return true
	case Polling:
		w.setFinal(Cancelled, nil)
		w.cancel()
		return true
	}
	return false
}

func (w *Watcher) ID() string {
	return w.id
}

func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) State() State {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.state
}

func (w *Watcher) Outcome() Outcome {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.outcome
}

// Done is closed once the polling goroutine has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) setFinal(state State, obj *domain.ManagedObject) {
	w.state = state
	w.outcome.State = state
	w.outcome.Object = obj
	if !w.begin.IsZero() {
		w.outcome.Elapsed = time.Since(w.begin)
	}
}

func (w *Watcher) run(ctx context.Context, handler Handler) {
	defer close(w.done)
	defer w.cancel()

	log := logrus.WithFields(logrus.Fields{"watcher": w.id, "name": w.opts.Name, "path": w.path})
	log.Debug("watcher started")

	deadlineAt := w.begin.Add(w.opts.MaxDuration)
	deadline := time.NewTimer(w.opts.MaxDuration)
	defer deadline.Stop()

	token := w.opts.InitialToken
	for {
		wait := time.NewTimer(w.opts.Interval(time.Since(w.begin)))
		select {
		case <-ctx.Done():
			wait.Stop()
			w.lock.Lock()
			w.cancelLocked()
			w.lock.Unlock()
			log.Debug("watcher cancelled")
			return
		case <-deadline.C:
			wait.Stop()
			w.timeout(handler)
			log.Info("watcher timed out")
			return
		case <-wait.C:
		}

		pollCtx, cancelPoll := context.WithDeadline(ctx, deadlineAt)
		resp, err := w.fetcher.Revalidate(pollCtx, w.path, token)
		cancelPoll()
		if err != nil {
			if ctx.Err() == nil && time.Now().Before(deadlineAt) {
				log.Warnf("watcher poll failed: %v", err)
			}
			w.countPoll()
			continue
		}
		if resp.NotModified {
			w.countPoll()
			continue
		}

		token = resp.Token
		obj, err := store.DecodeObject(resp)
		if err != nil {
			log.Warnf("watcher poll returned undecodable object: %v", err)
			w.countPoll()
			continue
		}
		if w.evaluate(obj, handler) {
			log.Debug("watcher finished")
			return
		}
	}
}

func (w *Watcher) countPoll() {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.outcome.Polls++
}

// evaluate reports whether the loop should stop.
func (w *Watcher) evaluate(obj *domain.ManagedObject, handler Handler) bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.state != Polling {
		return true
	}
	w.outcome.Polls++
	if !w.predicate(obj) {
		return false
	}
	w.setFinal(Detected, obj)
	if handler != nil {
		handler(w.outcome)
	}
	return true
}

func (w *Watcher) timeout(handler Handler) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.state != Polling {
		return
	}
	w.setFinal(TimedOut, nil)
	if handler != nil {
		handler(w.outcome)
	}
}
