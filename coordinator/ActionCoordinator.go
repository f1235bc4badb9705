package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"changeportal/bizerror"
	"changeportal/client/store"
	"changeportal/domain"
	"changeportal/domain/state"
	"changeportal/event"
	"changeportal/watcher"

	"github.com/sirupsen/logrus"
)

// Store is the data access the coordinator needs, satisfied by *store.Client.
type Store interface {
	watcher.Revalidator
	FetchObject(ctx context.Context, kind domain.Kind, id string, opts store.FetchOptions) (*domain.ManagedObject, error)
	FetchCollection(ctx context.Context, kind domain.Kind, opts store.FetchOptions) ([]domain.ManagedObject, error)
	Update(ctx context.Context, path string, obj *domain.ManagedObject) (*domain.ManagedObject, error)
	Create(ctx context.Context, collectionPath string, obj *domain.ManagedObject) (*domain.ManagedObject, error)
	InvalidatePath(path string)
}

type ActionCoordinatorTraits interface {
	Perform(ctx context.Context, obj *domain.ManagedObject, req TransitionRequest) (*domain.ManagedObject, error)
	PerformByID(ctx context.Context, kind domain.Kind, id string, req TransitionRequest) (*domain.ManagedObject, error)
	Create(ctx context.Context, kind domain.Kind, c *DraftCreation, actorID string) (*domain.ManagedObject, error)
	Edit(ctx context.Context, kind domain.Kind, id string, u *DraftUpdating, actorID string) (*domain.ManagedObject, error)
	Get(ctx context.Context, kind domain.Kind, id string) (*ObjectDetail, error)
	List(ctx context.Context, kind domain.Kind) ([]domain.ManagedObject, error)
	CancelWatch(kind domain.Kind, id string) bool
	ActiveWatches() []watcher.Outcome
}

const (
	SideEffectMeetingScheduled = "meeting_scheduled"
	SideEffectMeetingCancelled = "meeting_cancelled"
)

type Options struct {
	Watch watcher.Options
}

type TransitionRequest struct {
	To      domain.Status `json:"to" validate:"required"`
	ActorID string        `json:"-"`
	// cancellation reason
	Reason string `json:"reason"`
}

// Coordinator validates transitions, persists them and turns the results into outcome events.
// It owns the side effect watchers it starts.
type Coordinator struct {
	store Store
	bus   *event.Bus
	opts  Options

	watchCtx    context.Context
	stopWatches context.CancelFunc

	lock    sync.Mutex
	watches map[string]*watcher.Watcher
	closed  bool
}

func New(s Store, bus *event.Bus, opts Options) *Coordinator {
	watchCtx, stop := context.WithCancel(context.Background())
	return &Coordinator{
		store:       s,
		bus:         bus,
		opts:        opts,
		watchCtx:    watchCtx,
		stopWatches: stop,
		watches:     map[string]*watcher.Watcher{},
	}
}

// Perform moves obj to req.To. The legality check runs before any network call and the
// caller's object is left untouched; the returned object is the persisted one, redacted.
func (c *Coordinator) Perform(ctx context.Context, obj *domain.ManagedObject, req TransitionRequest) (*domain.ManagedObject, error) {
	if obj == nil {
		return nil, errors.New("no object to transition")
	}
	from := obj.Status
	if !state.ValidateTransition(from, req.To) {
		return nil, c.fail(obj, req.To, &bizerror.ErrTransition{From: from, To: req.To})
	}
	path, err := domain.ObjectPath(obj.Kind, obj.ID)
	if err != nil {
		return nil, c.fail(obj, req.To, err)
	}

	entry := domain.NewModification(domain.ModificationOfStatus(req.To), req.ActorID)
	if req.To == domain.StatusCancelled {
		entry.Reason = req.Reason
	}
	next := obj.AppendModification(entry)
	next.Status = req.To
	if err := next.Validate(); err != nil {
		return nil, c.fail(obj, req.To, fmt.Errorf("%w: %w", bizerror.ErrValidationRejected, err))
	}

	persisted, err := c.store.Update(ctx, path, next)
	if err != nil {
		return nil, c.fail(obj, req.To, err)
	}
	logrus.WithFields(logrus.Fields{"object": obj.ID, "kind": obj.Kind, "from": from, "to": req.To}).Info("transition persisted")
	c.bus.Publish(event.NewTransitionSucceeded(from, persisted))

	switch {
	case req.To == domain.StatusApproved && persisted.MeetingRequired && watcher.MeetingLinkPresent(persisted):
		c.cancelWatchAt(path)
		c.bus.Publish(event.NewSideEffectDetected(SideEffectMeetingScheduled, persisted))
	case req.To == domain.StatusApproved && persisted.MeetingRequired:
		c.watch(path, persisted, SideEffectMeetingScheduled, watcher.MeetingLinkPresent)
	case req.To == domain.StatusCancelled && obj.MeetingMetadata != nil:
		c.watch(path, persisted, SideEffectMeetingCancelled, watcher.MeetingRemoved)
	default:
		c.cancelWatchAt(path)
	}
	return persisted.Redacted(), nil
}

// PerformByID reads the current object bypassing the cache, then performs the transition on it.
func (c *Coordinator) PerformByID(ctx context.Context, kind domain.Kind, id string, req TransitionRequest) (*domain.ManagedObject, error) {
	obj, err := c.store.FetchObject(ctx, kind, id, store.FetchOptions{SkipCache: true})
	if err != nil {
		return nil, c.fail(&domain.ManagedObject{Kind: kind, ID: id}, req.To, err)
	}
	return c.Perform(ctx, obj, req)
}

func (c *Coordinator) Submit(ctx context.Context, obj *domain.ManagedObject, actorID string) (*domain.ManagedObject, error) {
	return c.Perform(ctx, obj, TransitionRequest{To: domain.StatusSubmitted, ActorID: actorID})
}

func (c *Coordinator) Approve(ctx context.Context, obj *domain.ManagedObject, actorID string) (*domain.ManagedObject, error) {
	return c.Perform(ctx, obj, TransitionRequest{To: domain.StatusApproved, ActorID: actorID})
}

func (c *Coordinator) Complete(ctx context.Context, obj *domain.ManagedObject, actorID string) (*domain.ManagedObject, error) {
	return c.Perform(ctx, obj, TransitionRequest{To: domain.StatusCompleted, ActorID: actorID})
}

func (c *Coordinator) Cancel(ctx context.Context, obj *domain.ManagedObject, actorID, reason string) (*domain.ManagedObject, error) {
	return c.Perform(ctx, obj, TransitionRequest{To: domain.StatusCancelled, ActorID: actorID, Reason: reason})
}

func (c *Coordinator) fail(obj *domain.ManagedObject, to domain.Status, err error) error {
	logrus.WithFields(logrus.Fields{"object": obj.ID, "kind": obj.Kind, "from": obj.Status, "to": to}).
		Warnf("transition failed: %v", err)
	c.bus.Publish(event.NewTransitionFailed(obj, to, err))
	return err
}

func AvailableActions(obj *domain.ManagedObject) []state.Action {
	return state.AvailableActions(obj.Kind, obj.Status)
}
