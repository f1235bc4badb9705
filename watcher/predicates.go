package watcher

import "changeportal/domain"

// MeetingLinkPresent holds once the backend attached a meeting join link.
func MeetingLinkPresent(o *domain.ManagedObject) bool {
	return o.HasMeetingLink()
}

// MeetingRemoved holds once the meeting metadata is gone or a meeting_cancelled marker was
// appended after the latest cancellation.
func MeetingRemoved(o *domain.ManagedObject) bool {
	if o.MeetingMetadata == nil {
		return true
	}
	for i := len(o.Modifications) - 1; i >= 0; i-- {
		switch o.Modifications[i].Type {
		case domain.ModificationMeetingCancelled:
			return true
		case domain.ModificationCancelled:
			return false
		}
	}
	return false
}
