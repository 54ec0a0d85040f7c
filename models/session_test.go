package models

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/depthlab/protocol"
	"github.com/stretchr/testify/require"
)

func TestSessionParticipants(t *testing.T) {
	t.Run("participant is added", func(t *testing.T) {
		session := NewSession(42)
		participant := &Participant{ID: session.NewParticipantID()}
		require.NotZero(t, participant.ID)

		session.AddParticipant(participant)
		require.Equal(t, 1, session.ParticipantCount())
		require.Equal(t, []*Participant{participant}, session.GetParticipants())
	})

	t.Run("participant is removed and its id reused", func(t *testing.T) {
		session := NewSession(42)
		participant := &Participant{ID: session.NewParticipantID()}

		session.AddParticipant(participant)
		session.RemoveParticipant(participant)
		require.Zero(t, session.ParticipantCount())
		require.Equal(t, participant.ID, session.NewParticipantID())
	})

	t.Run("participants are retrieved by ids", func(t *testing.T) {
		session := NewSession(42)
		for i := 1; i <= 10; i++ {
			session.AddParticipant(&Participant{ID: uint32(i)})
		}

		participants := session.GetParticipantsByIDs(3, 7, 42)
		sort.Slice(participants, func(i, j int) bool {
			return participants[i].ID < participants[j].ID
		})
		require.Equal(t, []uint32{3, 7}, ParticipantIDs(participants))
	})
}

func TestSessionCamera(t *testing.T) {
	session := NewSession(42)

	_, ok := session.Camera()
	require.False(t, ok)

	camera := collision.NewCamera(
		geometry.RotationX(math.Pi/2),
		depth.NewIntrinsics(32, 32, 32, 16, 64, 32),
	)
	session.SetCamera(camera)

	c, ok := session.Camera()
	require.True(t, ok)
	require.Equal(t, camera, c)

	var source collision.CameraSource = session
	_, ok = source.Camera()
	require.True(t, ok)

	session.SetCamera(collision.Camera{})
	_, ok = session.Camera()
	require.False(t, ok)
}

func TestSessionModuleState(t *testing.T) {
	t.Run("module state is found", func(t *testing.T) {
		s := NewSession(42)

		stateA := 42
		s.SetModuleState("testModule", stateA)

		stateB, ok := s.ModuleState("testModule")
		require.True(t, ok)
		require.Equal(t, stateA, stateB)
	})

	t.Run("module state is not found", func(t *testing.T) {
		s := NewSession(42)

		state, ok := s.ModuleState("testModule")
		require.False(t, ok)
		require.Nil(t, state)
	})

	t.Run("module state is created once", func(t *testing.T) {
		s := NewSession(42)

		calls := 0
		newState := func() any {
			calls++
			return calls
		}
		require.Equal(t, 1, s.LoadOrStoreModuleState("testModule", newState))
		require.Equal(t, 1, s.LoadOrStoreModuleState("testModule", newState))
		require.Equal(t, 1, calls)
	})
}

func TestSessionClose(t *testing.T) {
	session := NewSession(42)
	session.Depth.Set(depth.PlaneFrame(depth.NewIntrinsics(32, 32, 32, 16, 64, 32), 2))

	closed := 0
	session.OnClose(func() { closed++ })

	session.Close()
	session.Close()
	require.Equal(t, 1, closed)
	require.False(t, session.Depth.Ready())
}

func TestSessionBroadcast(t *testing.T) {
	newParticipant := func(id uint32, received *[]protocol.Msg) *Participant {
		return &Participant{
			ID: id,
			Responder: testResponseSender{
				sendMsg: func(msg protocol.Msg) {
					*received = append(*received, msg)
				},
			},
		}
	}

	t.Run("msg from participant A is broadcasted to participant B", func(t *testing.T) {
		var receivedA, receivedB []protocol.Msg
		participantA := newParticipant(1, &receivedA)
		participantB := newParticipant(2, &receivedB)

		session := NewSession(42)
		session.AddParticipant(participantA)
		session.AddParticipant(participantB)

		session.Broadcast(participantA, protocol.MsgTypePing, nil)
		require.Empty(t, receivedA)
		require.Len(t, receivedB, 1)
		require.Equal(t, protocol.MsgTypePing, receivedB[0].Type)
	})

	t.Run("msg without sender is broadcasted to everyone", func(t *testing.T) {
		var receivedA, receivedB []protocol.Msg
		session := NewSession(42)
		session.AddParticipant(newParticipant(1, &receivedA))
		session.AddParticipant(newParticipant(2, &receivedB))

		session.Broadcast(nil, protocol.MsgTypeExploreMarkers, protocol.ExploreMarkers{
			ExplorationID: "test",
		})
		require.Len(t, receivedA, 1)
		require.Len(t, receivedB, 1)
	})

	t.Run("msg is broadcasted to participant B once", func(t *testing.T) {
		var receivedA, receivedB []protocol.Msg
		participantA := newParticipant(1, &receivedA)
		participantB := newParticipant(2, &receivedB)

		session := NewSession(42)
		session.AddParticipant(participantA)
		session.AddParticipant(participantB)

		session.BroadcastTo(participantA, protocol.MsgTypePing, nil,
			participantA.ID,
			participantB.ID,
			participantB.ID,
			42,
		)
		require.Empty(t, receivedA)
		require.Len(t, receivedB, 1)
	})
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("session is added and retrieved", func(t *testing.T) {
		sessions := SessionStore{ServerID: "test"}

		session := NewSession(sessions.NewID())
		require.NoError(t, sessions.Add(ctx, session))
		require.Equal(t, 1, sessions.Count())
		require.Equal(t, "testx1", sessions.GlobalSessionID(session.ID))

		res, ok := sessions.GetByGlobalID(sessions.GlobalSessionID(session.ID))
		require.True(t, ok)
		require.Equal(t, session, res)
	})

	t.Run("session is not retrieved", func(t *testing.T) {
		var sessions SessionStore
		res, ok := sessions.GetByGlobalID(sessions.GlobalSessionID(84))
		require.False(t, ok)
		require.Nil(t, res)
	})

	t.Run("session is removed and closed", func(t *testing.T) {
		var sessions SessionStore

		sessionID := sessions.NewID()
		session := NewSession(sessionID)
		closed := false
		session.OnClose(func() { closed = true })

		require.NoError(t, sessions.Add(ctx, session))
		sessions.Remove(ctx, session)
		require.Zero(t, sessions.Count())
		require.True(t, closed)

		sessions.Remove(ctx, session)
		require.Equal(t, sessionID, sessions.NewID())
		require.Equal(t, sessionID+1, sessions.NewID())
	})
}

type testResponseSender struct {
	sendMsg func(protocol.Msg)
}

func (r testResponseSender) Send(t protocol.MsgType, requestID uint32, data any) {
	msg, err := protocol.NewMsg(t, requestID, data)
	if err != nil {
		panic(err)
	}
	r.sendMsg(msg)
}

func (r testResponseSender) SendMsg(msg protocol.Msg) {
	r.sendMsg(msg)
}
