package domain

import (
	"fmt"

	"github.com/fundwit/go-commons/types"
	"github.com/go-playground/validator/v10"
)

type Kind string

const (
	KindChange       Kind = "change"
	KindAnnouncement Kind = "announcement"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type ModificationType string

const (
	ModificationCreated   ModificationType = "created"
	ModificationSubmitted ModificationType = "submitted"
	ModificationApproved  ModificationType = "approved"
	ModificationCancelled ModificationType = "cancelled"
	ModificationCompleted ModificationType = "completed"
	ModificationUpdated   ModificationType = "updated"

	ModificationMeetingScheduled ModificationType = "meeting_scheduled"
	ModificationMeetingCancelled ModificationType = "meeting_cancelled"
)

// ManagedObject is a change or an announcement as persisted by the object store.
type ManagedObject struct {
	ID          string `json:"id" validate:"required"`
	Kind        Kind   `json:"kind" validate:"required,oneof=change announcement"`
	Category    string `json:"category,omitempty"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status" validate:"required,oneof=draft submitted approved completed cancelled"`
	CreatedBy   string `json:"created_by"`

	Customers       []string `json:"customers"`
	MeetingRequired bool     `json:"include_meeting"`

	Modifications   []ModificationEntry `json:"modifications"`
	MeetingMetadata *MeetingMetadata    `json:"meeting_metadata,omitempty"`

	RevalidationToken string `json:"-"`
}

type ModificationEntry struct {
	Timestamp types.Timestamp  `json:"timestamp"`
	ActorID   string           `json:"user_id"`
	Type      ModificationType `json:"modification_type"`

	Reason          string           `json:"reason,omitempty"`
	MeetingMetadata *MeetingMetadata `json:"meeting_metadata,omitempty"`
}

type MeetingMetadata struct {
	JoinURL   string `json:"join_url"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Duration  int    `json:"duration"`
}

var objectValidator = validator.New()

// Validate checks required fields and the customers rule for submitted or later objects.
func (o *ManagedObject) Validate() error {
	if err := objectValidator.Struct(o); err != nil {
		return err
	}
	if o.Status != StatusDraft && len(o.Customers) == 0 {
		return ErrCustomersMissing
	}
	return nil
}

// Clone returns a deep copy, the audit trail included.
func (o *ManagedObject) Clone() *ManagedObject {
	c := *o
	if o.Customers != nil {
		c.Customers = append([]string(nil), o.Customers...)
	}
	if o.Modifications != nil {
		c.Modifications = make([]ModificationEntry, len(o.Modifications))
		for i, m := range o.Modifications {
			c.Modifications[i] = m
			if m.MeetingMetadata != nil {
				meeting := *m.MeetingMetadata
				c.Modifications[i].MeetingMetadata = &meeting
			}
		}
	}
	if o.MeetingMetadata != nil {
		meeting := *o.MeetingMetadata
		c.MeetingMetadata = &meeting
	}
	return &c
}

// AppendModification returns a copy with the entry added at the end of the audit trail.
// The receiver is left untouched.
func (o *ManagedObject) AppendModification(entry ModificationEntry) *ManagedObject {
	c := o.Clone()
	c.Modifications = append(c.Modifications, entry)
	return c
}

// LastStatusEntry returns the most recent status changing entry.
func (o *ManagedObject) LastStatusEntry() (ModificationEntry, bool) {
	for i := len(o.Modifications) - 1; i >= 0; i-- {
		if _, ok := StatusOfModification(o.Modifications[i].Type); ok {
			return o.Modifications[i], true
		}
	}
	return ModificationEntry{}, false
}

func (o *ManagedObject) CheckHistory() error {
	entry, found := o.LastStatusEntry()
	if !found {
		if len(o.Modifications) == 0 && o.Status == StatusDraft {
			return nil
		}
		return fmt.Errorf("%w: status %s has no status entry", ErrHistoryMismatch, o.Status)
	}
	status, _ := StatusOfModification(entry.Type)
	if status != o.Status {
		return fmt.Errorf("%w: status %s, latest entry %s", ErrHistoryMismatch, o.Status, entry.Type)
	}
	return nil
}

func (o *ManagedObject) HasMeetingLink() bool {
	return o.MeetingMetadata != nil && o.MeetingMetadata.JoinURL != ""
}

// Redacted hides the meeting join link of completed and cancelled objects.
func (o *ManagedObject) Redacted() *ManagedObject {
	c := o.Clone()
	if c.MeetingMetadata != nil && (c.Status == StatusCompleted || c.Status == StatusCancelled) {
		c.MeetingMetadata.JoinURL = ""
	}
	return c
}

func RedactAll(objects []ManagedObject) []ManagedObject {
	r := make([]ManagedObject, 0, len(objects))
	for i := range objects {
		r = append(r, *objects[i].Redacted())
	}
	return r
}

// ModificationOfStatus maps a status to the entry type recording the move into it.
func ModificationOfStatus(s Status) ModificationType {
	if s == StatusDraft {
		return ModificationCreated
	}
	return ModificationType(s)
}

func StatusOfModification(t ModificationType) (Status, bool) {
	switch t {
	case ModificationCreated:
		return StatusDraft, true
	case ModificationSubmitted, ModificationApproved, ModificationCompleted, ModificationCancelled:
		return Status(t), true
	}
	return "", false
}

func NewModification(t ModificationType, actorID string) ModificationEntry {
	return ModificationEntry{Timestamp: types.CurrentTimestamp(), ActorID: actorID, Type: t}
}
