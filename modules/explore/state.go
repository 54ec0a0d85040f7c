package explore

import (
	"github.com/aukilabs/depthlab/freespace"
)

// State is the exploration state shared by the participants of a session.
type State struct {
	Runner *freespace.Runner
}

func newState(explorer freespace.Explorer, policy freespace.Policy) *State {
	return &State{
		Runner: &freespace.Runner{
			Explorer: explorer,
			Policy:   policy,
		},
	}
}

// Current returns the id of the latest exploration and the participant that
// requested it.
func (s *State) Current() (explorationID string, ownerID uint32) {
	return s.Runner.Current()
}

// CancelOwnedBy cancels the running exploration when it was requested by the
// given participant.
func (s *State) CancelOwnedBy(participantID uint32) bool {
	return s.Runner.CancelOwnedBy(participantID)
}
