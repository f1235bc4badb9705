package event

import (
	"sync"

	"github.com/sirupsen/logrus"
)

/*
return nil if not support
*/
type EventHandler func(e *EventRecord) *EventHandleResult

type EventHandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

// Bus delivers records to its subscribers synchronously, in subscription order.
type Bus struct {
	lock     sync.RWMutex
	handlers []EventHandler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(handler EventHandler) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.handlers = append(b.handlers, handler)
}

func (b *Bus) Publish(record *EventRecord) []EventHandleResult {
	b.lock.RLock()
	handlers := append([]EventHandler(nil), b.handlers...)
	b.lock.RUnlock()
	return invokeHandlers(handlers, record)
}

func invokeHandlers(handlers []EventHandler, record *EventRecord) []EventHandleResult {
	results := []EventHandleResult{}
	for _, handler := range handlers {
		logrus.Debug("pre handle event ", record.Type, " ", record.ObjectID)
		r := handler(record)

		if r == nil {
			continue
		}

		results = append(results, *r)

		if r.Success {
			logrus.Debug("post handle event. ", r)
		} else {
			logrus.Error("post handler error. ", r)
		}
	}
	return results
}
