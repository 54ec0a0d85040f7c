// Package explore runs free space explorations from a touched anchor point
// and streams the free points back to the session participants.
package explore

import (
	"context"

	"github.com/aukilabs/depthlab/freespace"
	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/depthlab/models"
	"github.com/aukilabs/depthlab/protocol"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
)

const (
	defaultMarkerBatchSize = 64
)

type Module struct {
	// The explorer configuration shared by all sessions.
	Config freespace.Config

	// What happens when an exploration is requested while another one runs
	// in the same session.
	Policy freespace.Policy

	// Sends markers to the other session participants too.
	BroadcastMarkers bool

	// The number of markers sent per explore_markers message.
	MarkerBatchSize int

	currentSession     *models.Session
	currentParticipant *models.Participant
	state              *State
}

func (m *Module) Name() string {
	return "explore"
}

func (m *Module) Init(s *models.Session, p *models.Participant) {
	m.currentSession = s
	m.currentParticipant = p

	m.state = s.LoadOrStoreModuleState(m.Name(), func() any {
		state := newState(freespace.Explorer{Config: m.Config}, m.Policy)
		s.OnClose(func() {
			state.Runner.Cancel()
		})
		return state
	}).(*State)
}

func (m *Module) HandleMsg(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	switch msg.Type {
	case protocol.MsgTypeExploreRequest:
		return m.handleExploreRequest(ctx, respond, msg)

	case protocol.MsgTypeExploreCancel:
		return m.handleExploreCancel(ctx, respond, msg)

	default:
		return protocol.ErrModuleMsgSkip
	}
}

// HandleDisconnect cancels the exploration requested by the leaving
// participant.
func (m *Module) HandleDisconnect() {
	if m.state == nil || m.currentParticipant == nil {
		return
	}
	m.state.CancelOwnedBy(m.currentParticipant.ID)
}

func (m *Module) handleExploreRequest(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	session := m.currentSession
	participant := m.currentParticipant
	if session == nil || participant == nil {
		return errors.New("session not joined").
			WithType(protocol.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}

	var req protocol.ExploreRequest
	if err := msg.DataTo(&req); err != nil {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeBadRequest, err.Error())
		return nil
	}

	camera, _ := session.Camera()
	explorationID := uuid.New().String()
	stream := m.newMarkerStream(session, participant, respond, explorationID)

	_, err := m.state.Runner.Start(ctx, freespace.Request{
		ID:     explorationID,
		Owner:  participant.ID,
		Frame:  session.Depth.Snapshot(),
		Camera: camera,
		Anchor: geometry.NewVector3fFromArray(req.Anchor),
		Sink:   stream.add,
		Done: func(generation uint64, res freespace.Result) {
			stream.flush()

			logs.WithTag("session_id", session.SessionUUID).
				WithTag("participant_id", participant.ID).
				WithTag("exploration_id", explorationID).
				WithTag("generation", generation).
				WithTag("status", res.Status).
				WithTag("marked", res.Marked).
				WithTag("duration", res.Duration).
				Debug("exploration ended")

			respond.Send(protocol.MsgTypeExploreResponse, msg.RequestID, protocol.ExploreResponse{
				ExplorationID: explorationID,
				Generation:    generation,
				Result:        res,
			})
		},
	})
	if errors.IsType(err, freespace.ErrTypeBusy) {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeBusy, err.Error())
		return nil
	}
	if err != nil {
		return errors.New("starting exploration failed").
			WithTag("exploration_id", explorationID).
			Wrap(err)
	}
	return nil
}

func (m *Module) handleExploreCancel(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	if m.currentSession == nil || m.currentParticipant == nil {
		return errors.New("session not joined").
			WithType(protocol.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}

	if !m.state.Runner.Cancel() {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeNotFound, "no running exploration")
	}
	return nil
}

// markerStream batches the markers of one exploration. It is only used from
// the exploration goroutine.
type markerStream struct {
	runner        *freespace.Runner
	session       *models.Session
	participant   *models.Participant
	respond       protocol.ResponseSender
	explorationID string
	batchSize     int
	broadcast     bool

	generation uint64
	markers    [][4]float32
}

func (m *Module) newMarkerStream(s *models.Session, p *models.Participant, respond protocol.ResponseSender, explorationID string) *markerStream {
	batchSize := m.MarkerBatchSize
	if batchSize <= 0 {
		batchSize = defaultMarkerBatchSize
	}

	return &markerStream{
		runner:        m.state.Runner,
		session:       s,
		participant:   p,
		respond:       respond,
		explorationID: explorationID,
		batchSize:     batchSize,
		broadcast:     m.BroadcastMarkers,
		markers:       make([][4]float32, 0, batchSize),
	}
}

func (s *markerStream) add(generation uint64, p geometry.Vector3f, depthToCamera float32) {
	s.generation = generation
	s.markers = append(s.markers, [4]float32{p.X(), p.Y(), p.Z(), depthToCamera})
	if len(s.markers) >= s.batchSize {
		s.flush()
	}
}

// flush sends the buffered markers. Markers of a superseded exploration are
// dropped.
func (s *markerStream) flush() {
	if len(s.markers) == 0 {
		return
	}
	if !s.runner.IsCurrent(s.generation) {
		s.markers = s.markers[:0]
		return
	}

	batch := protocol.ExploreMarkers{
		ExplorationID: s.explorationID,
		Markers:       s.markers,
	}
	s.respond.Send(protocol.MsgTypeExploreMarkers, 0, batch)
	if s.broadcast {
		s.session.Broadcast(s.participant, protocol.MsgTypeExploreMarkers, batch)
	}

	s.markers = make([][4]float32, 0, s.batchSize)
}
