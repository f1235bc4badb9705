package state_test

import (
	"changeportal/domain"
	"changeportal/domain/state"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ObjectFlow", func() {
	allStatuses := []domain.Status{domain.StatusDraft, domain.StatusSubmitted, domain.StatusApproved,
		domain.StatusCompleted, domain.StatusCancelled}
	legal := map[domain.Status][]domain.Status{
		domain.StatusDraft:     {domain.StatusSubmitted, domain.StatusCancelled},
		domain.StatusSubmitted: {domain.StatusApproved, domain.StatusCancelled},
		domain.StatusApproved:  {domain.StatusCompleted, domain.StatusCancelled},
		domain.StatusCompleted: {},
		domain.StatusCancelled: {},
	}

	Describe("ValidateTransition", func() {
		It("should accept exactly the pairs of the transition table", func() {
			for _, from := range allStatuses {
				for _, to := range allStatuses {
					expected := false
					for _, l := range legal[from] {
						if l == to {
							expected = true
						}
					}
					Expect(state.ValidateTransition(from, to)).To(Equal(expected), "%s -> %s", from, to)
				}
			}
		})
		It("should reject unknown statuses and going back to draft", func() {
			Expect(state.ValidateTransition("archived", domain.StatusCancelled)).To(BeFalse())
			Expect(state.ValidateTransition(domain.StatusDraft, "archived")).To(BeFalse())
			Expect(state.ValidateTransition("", "")).To(BeFalse())
			Expect(state.ValidateTransition(domain.StatusSubmitted, domain.StatusDraft)).To(BeFalse())
		})
	})

	Describe("AvailableActions", func() {
		It("should be identical for changes and announcements", func() {
			for _, s := range allStatuses {
				Expect(state.AvailableActions(domain.KindChange, s)).To(Equal(state.AvailableActions(domain.KindAnnouncement, s)))
				Expect(state.NextStatuses(domain.KindChange, s)).To(Equal(legal[s]))
			}
		})
		It("should name the actions", func() {
			Expect(state.AvailableActions(domain.KindChange, domain.StatusSubmitted)).To(Equal([]state.Action{
				{Name: state.ActionApprove, To: domain.StatusApproved},
				{Name: state.ActionCancel, To: domain.StatusCancelled},
			}))
			Expect(state.AvailableActions(domain.KindAnnouncement, domain.StatusCompleted)).To(BeEmpty())
		})
		It("should return nothing for unknown kinds", func() {
			Expect(state.AvailableActions("memo", domain.StatusDraft)).To(BeEmpty())
			Expect(state.NextStatuses("memo", domain.StatusDraft)).To(BeEmpty())
		})
	})

	Describe("IsTerminal", func() {
		It("should mark completed and cancelled only", func() {
			Expect(state.IsTerminal(domain.StatusCompleted)).To(BeTrue())
			Expect(state.IsTerminal(domain.StatusCancelled)).To(BeTrue())
			Expect(state.IsTerminal(domain.StatusApproved)).To(BeFalse())
			Expect(state.IsTerminal("unknown")).To(BeFalse())
		})
	})
})
