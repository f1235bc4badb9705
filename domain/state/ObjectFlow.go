package state

import "changeportal/domain"

const (
	ActionSubmit   = "submit"
	ActionApprove  = "approve"
	ActionComplete = "complete"
	ActionCancel   = "cancel"
)

var (
	StateDraft     = State{Name: string(domain.StatusDraft), Category: InBacklog}
	StateSubmitted = State{Name: string(domain.StatusSubmitted), Category: InProcess}
	StateApproved  = State{Name: string(domain.StatusApproved), Category: InProcess}
	StateCompleted = State{Name: string(domain.StatusCompleted), Category: Done}
	StateCancelled = State{Name: string(domain.StatusCancelled), Category: Done}
)

// ObjectStateMachine is the transition table shared by changes and announcements.
//
//	            submitted  approved  completed  cancelled
//	draft       submit     -         -          cancel
//	submitted   -          approve   -          cancel
//	approved    -          -         complete   cancel
//	completed   (terminal)
//	cancelled   (terminal)
var ObjectStateMachine = NewStateMachine(
	[]State{StateDraft, StateSubmitted, StateApproved, StateCompleted, StateCancelled},
	[]Transition{
		{Name: ActionSubmit, From: StateDraft, To: StateSubmitted},
		{Name: ActionCancel, From: StateDraft, To: StateCancelled},
		{Name: ActionApprove, From: StateSubmitted, To: StateApproved},
		{Name: ActionCancel, From: StateSubmitted, To: StateCancelled},
		{Name: ActionComplete, From: StateApproved, To: StateCompleted},
		{Name: ActionCancel, From: StateApproved, To: StateCancelled},
	})

type Action struct {
	Name string        `json:"name"`
	To   domain.Status `json:"to"`
}

func knownKind(kind domain.Kind) bool {
	return kind == domain.KindChange || kind == domain.KindAnnouncement
}

// ValidateTransition reports whether from -> to is in the table. Must be checked before any mutation.
func ValidateTransition(from, to domain.Status) bool {
	if from == "" || to == "" {
		return false
	}
	return len(ObjectStateMachine.AvailableTransitions(string(from), string(to))) == 1
}

func NextStatuses(kind domain.Kind, current domain.Status) []domain.Status {
	r := []domain.Status{}
	for _, a := range AvailableActions(kind, current) {
		r = append(r, a.To)
	}
	return r
}

func AvailableActions(kind domain.Kind, current domain.Status) []Action {
	r := []Action{}
	if !knownKind(kind) || current == "" {
		return r
	}
	for _, t := range ObjectStateMachine.AvailableTransitions(string(current), "") {
		r = append(r, Action{Name: t.Name, To: domain.Status(t.To.Name)})
	}
	return r
}

func IsTerminal(s domain.Status) bool {
	found, ok := ObjectStateMachine.FindState(string(s))
	return ok && found.Category == Done
}
