package coordinator

import (
	"context"
	"fmt"

	"changeportal/bizerror"
	"changeportal/client/store"
	"changeportal/domain"
	"changeportal/domain/state"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type DraftCreation struct {
	Title           string   `json:"title" validate:"required,lte=200"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Customers       []string `json:"customers"`
	MeetingRequired bool     `json:"include_meeting"`
}

type DraftUpdating struct {
	Title           string   `json:"title" validate:"required,lte=200"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Customers       []string `json:"customers"`
	MeetingRequired bool     `json:"include_meeting"`
}

type ObjectDetail struct {
	*domain.ManagedObject
	Actions []state.Action `json:"actions"`
}

func (c *DraftCreation) BuildObject(kind domain.Kind, id string, actorID string) *domain.ManagedObject {
	return &domain.ManagedObject{
		ID:              id,
		Kind:            kind,
		Category:        c.Category,
		Title:           c.Title,
		Description:     c.Description,
		Status:          domain.StatusDraft,
		CreatedBy:       actorID,
		Customers:       append([]string{}, c.Customers...),
		MeetingRequired: c.MeetingRequired,
		Modifications:   []domain.ModificationEntry{domain.NewModification(domain.ModificationCreated, actorID)},
	}
}

// Create stores a new draft with a fresh id.
func (c *Coordinator) Create(ctx context.Context, kind domain.Kind, creation *DraftCreation, actorID string) (*domain.ManagedObject, error) {
	collection, err := domain.CollectionPath(kind)
	if err != nil {
		return nil, err
	}
	obj := creation.BuildObject(kind, uuid.New().String(), actorID)
	if err := obj.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", bizerror.ErrValidationRejected, err)
	}
	persisted, err := c.store.Create(ctx, collection, obj)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"object": obj.ID, "kind": kind}).Info("draft created")
	return persisted.Redacted(), nil
}

// Edit replaces the editable fields of a draft and records an updated entry.
func (c *Coordinator) Edit(ctx context.Context, kind domain.Kind, id string, u *DraftUpdating, actorID string) (*domain.ManagedObject, error) {
	current, err := c.store.FetchObject(ctx, kind, id, store.FetchOptions{SkipCache: true})
	if err != nil {
		return nil, err
	}
	if current.Status != domain.StatusDraft {
		return nil, fmt.Errorf("%w: %s object cannot be edited", bizerror.ErrIllegalTransition, current.Status)
	}

	next := current.AppendModification(domain.NewModification(domain.ModificationUpdated, actorID))
	next.Title = u.Title
	next.Description = u.Description
	next.Category = u.Category
	next.Customers = append([]string{}, u.Customers...)
	next.MeetingRequired = u.MeetingRequired
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", bizerror.ErrValidationRejected, err)
	}

	path, err := domain.ObjectPath(kind, id)
	if err != nil {
		return nil, err
	}
	persisted, err := c.store.Update(ctx, path, next)
	if err != nil {
		return nil, err
	}
	return persisted.Redacted(), nil
}

func (c *Coordinator) Get(ctx context.Context, kind domain.Kind, id string) (*ObjectDetail, error) {
	obj, err := c.store.FetchObject(ctx, kind, id, store.FetchOptions{})
	if err != nil {
		return nil, err
	}
	return &ObjectDetail{ManagedObject: obj.Redacted(), Actions: AvailableActions(obj)}, nil
}

func (c *Coordinator) List(ctx context.Context, kind domain.Kind) ([]domain.ManagedObject, error) {
	objects, err := c.store.FetchCollection(ctx, kind, store.FetchOptions{})
	if err != nil {
		return nil, err
	}
	return domain.RedactAll(objects), nil
}
