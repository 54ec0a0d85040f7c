package models

import (
	"context"
	"fmt"
	"sync"

	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/protocol"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
)

// Session groups the participants sharing the same AR view. It holds the
// latest depth frame and the camera that captured it.
type Session struct {
	ID          uint32
	SessionUUID string

	// The latest depth frame received from a participant.
	Depth *depth.Provider

	participantIDs   SequentialIDGenerator
	participantMutex sync.RWMutex
	participants     map[uint32]*Participant

	cameraMutex sync.RWMutex
	camera      collision.Camera
	cameraSet   bool

	moduleStates map[string]any
	moduleMutex  sync.RWMutex

	closeMutex    sync.Mutex
	closeHandlers []func()
	closeOnce     sync.Once
}

func NewSession(id uint32) *Session {
	return &Session{
		ID:           id,
		SessionUUID:  uuid.New().String(),
		Depth:        &depth.Provider{},
		participants: make(map[uint32]*Participant),
		moduleStates: make(map[string]any),
	}
}

// OnClose registers a function called when the session is closed.
func (s *Session) OnClose(h func()) {
	s.closeMutex.Lock()
	defer s.closeMutex.Unlock()

	s.closeHandlers = append(s.closeHandlers, h)
}

// Close drops the session depth and calls the close handlers once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closeMutex.Lock()
		handlers := s.closeHandlers
		s.closeHandlers = nil
		s.closeMutex.Unlock()

		for _, h := range handlers {
			h()
		}
		s.Depth.Reset()
	})
}

func (s *Session) NewParticipantID() uint32 {
	return s.participantIDs.New()
}

func (s *Session) AddParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	s.participants[p.ID] = p
}

func (s *Session) RemoveParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	delete(s.participants, p.ID)
	s.participantIDs.Reuse(p.ID)
}

func (s *Session) GetParticipants() []*Participant {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	return participants
}

func (s *Session) GetParticipantsByIDs(ids ...uint32) []*Participant {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(ids))
	for _, id := range ids {
		p, ok := s.participants[id]
		if ok {
			participants = append(participants, p)
		}
	}
	return participants
}

func (s *Session) ParticipantCount() int {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	return len(s.participants)
}

// SetCamera sets the camera matching the latest depth frame.
func (s *Session) SetCamera(c collision.Camera) {
	s.cameraMutex.Lock()
	defer s.cameraMutex.Unlock()

	s.camera = c
	s.cameraSet = !c.IsZero()
}

// Camera returns the latest camera and whether one was set. It makes the
// session usable as a collision.CameraSource.
func (s *Session) Camera() (collision.Camera, bool) {
	s.cameraMutex.RLock()
	defer s.cameraMutex.RUnlock()

	return s.camera, s.cameraSet
}

// Broadcast sends a message to all the session participants but the sender.
// A nil sender broadcasts to everyone.
func (s *Session) Broadcast(sender *Participant, t protocol.MsgType, data any) {
	msg, err := protocol.NewMsg(t, 0, data)
	if err != nil {
		logs.WithTag("msg_type", t).Debug(err)
		return
	}

	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	for _, p := range s.participants {
		if p == sender {
			continue
		}
		p.Responder.SendMsg(msg)
	}
}

// BroadcastTo sends a message to the given participants but the sender. Each
// participant receives the message once.
func (s *Session) BroadcastTo(sender *Participant, t protocol.MsgType, data any, participantIDs ...uint32) {
	msg, err := protocol.NewMsg(t, 0, data)
	if err != nil {
		logs.WithTag("msg_type", t).Debug(err)
		return
	}

	participants := s.GetParticipantsByIDs(participantIDs...)
	isParticipantHandled := make(map[uint32]struct{}, len(participantIDs))

	for _, p := range participants {
		if p == sender {
			continue
		}

		if _, ok := isParticipantHandled[p.ID]; ok {
			continue
		}
		isParticipantHandled[p.ID] = struct{}{}

		p.Responder.SendMsg(msg)
	}
}

func (s *Session) SetModuleState(moduleName string, state any) {
	s.moduleMutex.Lock()
	defer s.moduleMutex.Unlock()

	s.moduleStates[moduleName] = state
}

func (s *Session) ModuleState(moduleName string) (any, bool) {
	s.moduleMutex.RLock()
	defer s.moduleMutex.RUnlock()

	state, ok := s.moduleStates[moduleName]
	return state, ok
}

// LoadOrStoreModuleState returns the state of the given module. When the
// module has no state yet, the one returned by newState is stored.
func (s *Session) LoadOrStoreModuleState(moduleName string, newState func() any) any {
	s.moduleMutex.Lock()
	defer s.moduleMutex.Unlock()

	state, ok := s.moduleStates[moduleName]
	if !ok {
		state = newState()
		s.moduleStates[moduleName] = state
	}
	return state
}

type SessionStore struct {
	// The id of the current server. It prefixes global session ids.
	ServerID string

	initOnce sync.Once
	mutex    sync.RWMutex
	sessions map[string]*Session
	ids      SequentialIDGenerator
}

func (s *SessionStore) init() {
	s.sessions = map[string]*Session{}

	if s.ServerID == "" {
		s.ServerID = "depthlab"
	}
}

func (s *SessionStore) NewID() uint32 {
	return s.ids.New()
}

func (s *SessionStore) Add(ctx context.Context, session *Session) error {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[s.GlobalSessionID(session.ID)] = session

	instrumentIncreaseSessionGauge()
	instrumentCountSession()
	return nil
}

func (s *SessionStore) Remove(ctx context.Context, session *Session) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := s.GlobalSessionID(session.ID)
	if _, ok := s.sessions[id]; !ok {
		return
	}

	delete(s.sessions, id)
	session.Close()

	s.ids.Reuse(session.ID)

	instrumentDecreaseSessionGauge()
}

func (s *SessionStore) GetByGlobalID(v string) (*Session, bool) {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, ok := s.sessions[v]
	return session, ok
}

func (s *SessionStore) Count() int {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.sessions)
}

func (s *SessionStore) GlobalSessionID(sessionID uint32) string {
	s.initOnce.Do(s.init)
	return fmt.Sprintf("%sx%x", s.ServerID, sessionID)
}
