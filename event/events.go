package event

import (
	"changeportal/bizerror"
	"changeportal/common"
	"changeportal/domain"

	"github.com/fundwit/go-commons/types"
)

var idWorker = common.NewIdWorker()

func newRecord(typ EventType, kind domain.Kind, objectID string) *EventRecord {
	return &EventRecord{
		ID:        common.NextId(idWorker),
		Type:      typ,
		Kind:      kind,
		ObjectID:  objectID,
		Timestamp: types.CurrentTimestamp(),
	}
}

func NewTransitionSucceeded(from domain.Status, obj *domain.ManagedObject) *EventRecord {
	r := newRecord(TransitionSucceeded, obj.Kind, obj.ID)
	r.From = from
	r.To = obj.Status
	r.Object = obj.Redacted()
	return r
}

func NewTransitionFailed(obj *domain.ManagedObject, to domain.Status, err error) *EventRecord {
	r := newRecord(TransitionFailed, obj.Kind, obj.ID)
	r.From = obj.Status
	r.To = to
	r.Reason = bizerror.Classify(err)
	if err != nil {
		r.Message = err.Error()
	}
	return r
}

func NewSideEffectDetected(sideEffect string, obj *domain.ManagedObject) *EventRecord {
	r := newRecord(SideEffectDetected, obj.Kind, obj.ID)
	r.SideEffect = sideEffect
	r.To = obj.Status
	r.Object = obj.Redacted()
	return r
}

func NewSideEffectTimedOut(sideEffect string, kind domain.Kind, objectID string) *EventRecord {
	r := newRecord(SideEffectTimedOut, kind, objectID)
	r.SideEffect = sideEffect
	r.Message = sideEffect + " not observed before timeout, refresh later"
	return r
}
