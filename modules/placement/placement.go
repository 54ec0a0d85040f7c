// Package placement answers collision requests sent while the user drags a
// virtual object across the real scene.
package placement

import (
	"context"

	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/models"
	"github.com/aukilabs/depthlab/protocol"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

type Module struct {
	// The named proxy geometries requests can refer to.
	Profiles collision.Profiles

	// The thresholds used when neither the request nor its profile sets
	// them.
	Thresholds collision.Thresholds

	// The number of goroutines used to test large sample sets.
	Parallelism int

	currentSession     *models.Session
	currentParticipant *models.Participant
}

func (m *Module) Name() string {
	return "placement"
}

func (m *Module) Init(s *models.Session, p *models.Participant) {
	m.currentSession = s
	m.currentParticipant = p

	if m.Profiles == nil {
		m.Profiles = collision.DefaultProfiles()
	}
}

func (m *Module) HandleMsg(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	switch msg.Type {
	case protocol.MsgTypeCollisionRequest:
		return m.handleCollisionRequest(ctx, respond, msg)

	default:
		return protocol.ErrModuleMsgSkip
	}
}

func (m *Module) HandleDisconnect() {
}

func (m *Module) handleCollisionRequest(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	session := m.currentSession
	if session == nil || m.currentParticipant == nil {
		return errors.New("session not joined").
			WithType(protocol.ErrTypeSessionNotJoined).
			WithTag("msg_type", msg.Type)
	}

	var req protocol.CollisionRequest
	if err := msg.DataTo(&req); err != nil {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeBadRequest, err.Error())
		return nil
	}

	profile, err := m.profile(req)
	if err != nil {
		code := protocol.ErrorCodeBadRequest
		if errors.IsType(err, collision.ErrTypeProfileNotFound) {
			code = protocol.ErrorCodeNotFound
		}
		protocol.SendError(respond, msg.RequestID, code, err.Error())
		return nil
	}

	samples, err := profile.SampleSet()
	if err != nil {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeBadRequest, err.Error())
		return nil
	}

	thresholds := profile.ThresholdsOr(m.Thresholds)
	if req.Thresholds != nil {
		thresholds = *req.Thresholds
	}
	if err := thresholds.Validate(); err != nil {
		protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeBadRequest, err.Error())
		return nil
	}

	aggregator := collision.Aggregator{
		Depth:       session.Depth,
		Cameras:     session,
		Thresholds:  thresholds,
		Parallelism: m.Parallelism,
	}
	verdict := aggregator.TestTransformed(req.ObjectToWorld(), samples)

	logs.WithTag("session_id", session.SessionUUID).
		WithTag("participant_id", m.currentParticipant.ID).
		WithTag("profile", profile.Name).
		WithTag("samples", len(samples)).
		WithTag("collided", verdict.Collided).
		WithTag("ratio", verdict.Ratio).
		Debug("collision tested")

	respond.Send(protocol.MsgTypeCollisionResponse, msg.RequestID, protocol.CollisionResponse{
		Verdict: verdict,
	})
	return nil
}

func (m *Module) profile(req protocol.CollisionRequest) (collision.Profile, error) {
	if req.HasInlineGeometry() {
		return req.InlineProfile(), nil
	}
	return m.Profiles.Get(req.Profile)
}
