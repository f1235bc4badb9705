package coordinator

import (
	"changeportal/domain"
	"changeportal/event"
	"changeportal/watcher"

	"github.com/sirupsen/logrus"
)

// watch replaces any watcher running for path with a new one.
func (c *Coordinator) watch(path string, persisted *domain.ManagedObject, sideEffect string, predicate watcher.Predicate) {
	opts := c.opts.Watch
	opts.Name = sideEffect
	opts.InitialToken = persisted.RevalidationToken
	w := watcher.New(c.store, path, predicate, opts)

	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return
	}
	previous := c.watches[path]
	c.watches[path] = w
	c.lock.Unlock()

	if previous != nil {
		previous.Cancel()
	}
	w.Start(c.watchCtx, c.sideEffectHandler(path, persisted.Kind, persisted.ID, sideEffect))
	logrus.WithFields(logrus.Fields{"path": path, "watcher": w.ID(), "sideEffect": sideEffect}).Debug("watch started")
}

// sideEffectHandler runs under the watcher's lock, it must only touch the registry and the bus.
func (c *Coordinator) sideEffectHandler(path string, kind domain.Kind, id string, sideEffect string) watcher.Handler {
	return func(outcome watcher.Outcome) {
		c.lock.Lock()
		if w := c.watches[path]; w != nil && w.ID() == outcome.WatcherID {
			delete(c.watches, path)
		}
		c.lock.Unlock()

		switch outcome.State {
		case watcher.Detected:
			c.store.InvalidatePath(path)
			c.bus.Publish(event.NewSideEffectDetected(sideEffect, outcome.Object))
		case watcher.TimedOut:
			c.bus.Publish(event.NewSideEffectTimedOut(sideEffect, kind, id))
		}
	}
}

func (c *Coordinator) cancelWatchAt(path string) bool {
	c.lock.Lock()
	w := c.watches[path]
	delete(c.watches, path)
	c.lock.Unlock()

	if w == nil {
		return false
	}
	return w.Cancel()
}

// CancelWatch stops the watcher of an object, reporting whether one was pending.
func (c *Coordinator) CancelWatch(kind domain.Kind, id string) bool {
	path, err := domain.ObjectPath(kind, id)
	if err != nil {
		return false
	}
	return c.cancelWatchAt(path)
}

func (c *Coordinator) ActiveWatches() []watcher.Outcome {
	c.lock.Lock()
	watches := make([]*watcher.Watcher, 0, len(c.watches))
	for _, w := range c.watches {
		watches = append(watches, w)
	}
	c.lock.Unlock()

	outcomes := []watcher.Outcome{}
	for _, w := range watches {
		outcomes = append(outcomes, w.Outcome())
	}
	return outcomes
}

// Close cancels every pending watcher, no side effect event is published afterwards.
func (c *Coordinator) Close() {
	c.lock.Lock()
	watches := c.watches
	c.watches = map[string]*watcher.Watcher{}
	c.closed = true
	c.lock.Unlock()

	for _, w := range watches {
		w.Cancel()
	}
	c.stopWatches()
}
