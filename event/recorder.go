package event

import "sync"

const DefaultRecorderCapacity = 200

// Recorder keeps the most recent records, oldest first.
type Recorder struct {
	lock     sync.Mutex
	capacity int
	records  []EventRecord
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{capacity: capacity}
}

func (r *Recorder) Handle(e *EventRecord) *EventHandleResult {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.records = append(r.records, *e)
	if overflow := len(r.records) - r.capacity; overflow > 0 {
		r.records = append([]EventRecord(nil), r.records[overflow:]...)
	}
	return &EventHandleResult{Success: true, HandlerIdentifier: "recorder"}
}

func (r *Recorder) Records() []EventRecord {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]EventRecord{}, r.records...)
}

// RecordsOf returns the records about objectID.
func (r *Recorder) RecordsOf(objectID string) []EventRecord {
	r.lock.Lock()
	defer r.lock.Unlock()
	found := []EventRecord{}
	for _, e := range r.records {
		if e.ObjectID == objectID {
			found = append(found, e)
		}
	}
	return found
}
