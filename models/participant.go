package models

import (
	"github.com/aukilabs/depthlab/protocol"
)

// A session participant.
type Participant struct {
	ID        uint32
	ClientID  string
	Responder protocol.ResponseSender
}

// ParticipantIDs returns the ids of the given participants.
func ParticipantIDs(participants []*Participant) []uint32 {
	ids := make([]uint32, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	return ids
}
