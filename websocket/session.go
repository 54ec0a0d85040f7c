package websocket

import (
	"context"
	"time"

	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/models"
	"github.com/aukilabs/depthlab/modules"
	"github.com/aukilabs/depthlab/protocol"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// SessionHandler manages a client connection: it joins the client to a
// session, feeds the session depth and camera, and passes the other messages
// to the modules.
type SessionHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The store that contains all the server sessions.
	Sessions *models.SessionStore

	// The modules that answer depth queries. They are created for each
	// connection.
	Modules []modules.Module

	conn               *websocket.Conn
	currentSession     *models.Session
	currentParticipant *models.Participant

	clientID string
}

func (h *SessionHandler) HandleConnect(conn *websocket.Conn) {
	h.conn = conn

	if req := conn.Request(); req != nil {
		h.clientID = req.Header.Get(protocol.HeaderClientID)
	}
	if h.clientID == "" {
		h.clientID = uuid.New().String()
	}
}

func (h *SessionHandler) HandlePing(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	respond.Send(protocol.MsgTypePong, msg.RequestID, nil)
	return nil
}

func (h *SessionHandler) HandleSessionJoin(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	var req protocol.SessionJoinRequest
	if err := msg.DataTo(&req); err != nil {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeBadRequest, err.Error())
		return nil
	}

	if h.currentSession != nil && h.Sessions.GlobalSessionID(h.currentSession.ID) == req.SessionID {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeSessionAlreadyJoined, "")
		return nil
	}

	if h.currentParticipant != nil {
		h.leaveSession()
	}

	session, ok := h.Sessions.GetByGlobalID(req.SessionID)
	if !ok && req.SessionID != "" {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeNotFound, "")
		return nil
	}

	if !ok {
		session = models.NewSession(h.Sessions.NewID())
		if err := h.Sessions.Add(ctx, session); err != nil {
			protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeInternalServerError, "")
			return nil
		}
	}

	participant := &models.Participant{
		ID:        session.NewParticipantID(),
		ClientID:  h.clientID,
		Responder: respond,
	}
	session.AddParticipant(participant)

	respond.Send(protocol.MsgTypeSessionJoinResponse, msg.RequestID, protocol.SessionJoinResponse{
		SessionID:     h.Sessions.GlobalSessionID(session.ID),
		SessionUUID:   session.SessionUUID,
		ParticipantID: participant.ID,
	})

	h.currentSession = session
	h.currentParticipant = participant

	for _, m := range h.Modules {
		m.Init(session, participant)
	}

	return nil
}

func (h *SessionHandler) HandleDepthFrame(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	session := h.currentSession
	if session == nil || h.currentParticipant == nil {
		return errors.New("session not joined").
			WithType(protocol.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}

	var payload protocol.DepthFrame
	if err := msg.DataTo(&payload); err != nil {
		instrumentDepthFrame(depthFrameInvalid)
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeInvalidFrame, err.Error())
		return nil
	}

	frame, err := depth.DecodePayload(payload)
	if err != nil {
		instrumentDepthFrame(depthFrameInvalid)
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeInvalidFrame, err.Error())
		return nil
	}

	session.Depth.Set(frame)
	instrumentDepthFrame(depthFrameAccepted)
	return nil
}

func (h *SessionHandler) HandleCameraUpdate(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	session := h.currentSession
	if session == nil || h.currentParticipant == nil {
		return errors.New("session not joined").
			WithType(protocol.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}

	var update protocol.CameraUpdate
	if err := msg.DataTo(&update); err != nil {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeInvalidCamera, err.Error())
		return nil
	}

	camera, err := update.Camera()
	if err != nil {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeInvalidCamera, err.Error())
		return nil
	}

	session.SetCamera(camera)
	return nil
}

func (h *SessionHandler) HandleDisconnect(_ error) {
	if h.currentParticipant != nil {
		h.leaveSession()
	}
}

func (h *SessionHandler) HandleWithModule(ctx context.Context, m modules.Module, respond protocol.ResponseSender, msg protocol.Msg) error {
	if h.CurrentParticipant() == nil || h.CurrentSession() == nil {
		return nil
	}

	err := m.HandleMsg(ctx, respond, msg)
	if errors.IsType(err, protocol.ErrTypeMsgSkip) {
		return nil
	}
	if err != nil {
		return errors.New("handling message with module failed").
			WithTag("module", m.Name()).
			Wrap(err)
	}
	return nil
}

func (h *SessionHandler) Receiver() protocol.Receiver {
	return func() (protocol.Msg, int, error) {
		return protocol.Receive(h.conn)
	}
}

func (h *SessionHandler) Sender() protocol.Sender {
	return func(msg protocol.Msg) (int, error) {
		return protocol.Send(h.conn, msg)
	}
}

func (h *SessionHandler) Close() {
}

func (h *SessionHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *SessionHandler) GetSessions() *models.SessionStore {
	return h.Sessions
}

func (h *SessionHandler) GetModules() []modules.Module {
	return h.Modules
}

func (h *SessionHandler) CurrentSession() *models.Session {
	return h.currentSession
}

func (h *SessionHandler) CurrentParticipant() *models.Participant {
	return h.currentParticipant
}

func (h *SessionHandler) GetClientID() string {
	return h.clientID
}

func (h *SessionHandler) leaveSession() {
	session := h.currentSession
	participant := h.currentParticipant

	if participant == nil || session == nil {
		return
	}

	for _, m := range h.Modules {
		m.HandleDisconnect()
	}

	session.RemoveParticipant(participant)

	if session.ParticipantCount() == 0 {
		// Removing the session closes it, which stops its explorations.
		h.Sessions.Remove(context.Background(), session)
	}

	h.currentParticipant = nil
	h.currentSession = nil
}
