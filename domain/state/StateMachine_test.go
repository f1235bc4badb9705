package state_test

import (
	"changeportal/domain/state"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("StateMachine", func() {
	var (
		stateMachine *state.StateMachine
	)

	BeforeEach(func() {
		//         PENDING      DOING         DONE
		// PENDING   -            V (begin)   V (close)
		// DOING     V (cancel)   -           V (finish)
		// DONE      V (reopen)   X			  -
		stateMachine = state.NewStateMachine(
			[]state.State{{Name: "PENDING"}, {Name: "DOING", Category: state.InProcess}, {Name: "DONE", Category: state.Done}},
			[]state.Transition{
				{Name: "begin", From: state.State{Name: "PENDING"}, To: state.State{Name: "DOING"}},
				{Name: "close", From: state.State{Name: "PENDING"}, To: state.State{Name: "DONE"}},
				{Name: "cancel", From: state.State{Name: "DOING"}, To: state.State{Name: "PENDING"}},
				{Name: "finish", From: state.State{Name: "DOING"}, To: state.State{Name: "DONE"}},
				{Name: "reopen", From: state.State{Name: "DONE"}, To: state.State{Name: "PENDING"}},
			})
	})

	Describe("AvailableTransitions", func() {
		It("should filter by from state", func() {
			Ω(stateMachine.AvailableTransitions("PENDING", "")).Should(Equal([]state.Transition{
				{Name: "begin", From: state.State{Name: "PENDING"}, To: state.State{Name: "DOING"}},
				{Name: "close", From: state.State{Name: "PENDING"}, To: state.State{Name: "DONE"}},
			}))
			Ω(stateMachine.AvailableTransitions("DONE", "")).Should(Equal([]state.Transition{
				{Name: "reopen", From: state.State{Name: "DONE"}, To: state.State{Name: "PENDING"}},
			}))
			Ω(len(stateMachine.AvailableTransitions("UNKNOWN", ""))).Should(Equal(0))
		})
		It("should filter by from and to state", func() {
			Ω(stateMachine.AvailableTransitions("DOING", "DONE")).Should(Equal([]state.Transition{
				{Name: "finish", From: state.State{Name: "DOING"}, To: state.State{Name: "DONE"}},
			}))
			Ω(stateMachine.AvailableTransitions("", "PENDING")).Should(HaveLen(2))
			Ω(stateMachine.AvailableTransitions("DONE", "DOING")).Should(BeEmpty())
		})
	})

	Describe("FindState", func() {
		It("should find declared states only", func() {
			s, found := stateMachine.FindState("DOING")
			Expect(found).To(BeTrue())
			Expect(s).To(Equal(state.State{Name: "DOING", Category: state.InProcess}))

			_, found = stateMachine.FindState("UNKNOWN")
			Expect(found).To(BeFalse())
		})
	})
})
