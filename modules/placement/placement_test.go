package placement

import (
	"context"
	"testing"

	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/depthlab/models"
	"github.com/aukilabs/depthlab/protocol"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

type testResponseSender struct {
	msgs []protocol.Msg
}

func (r *testResponseSender) Send(t protocol.MsgType, requestID uint32, data any) {
	msg, err := protocol.NewMsg(t, requestID, data)
	if err != nil {
		panic(err)
	}
	r.SendMsg(msg)
}

func (r *testResponseSender) SendMsg(msg protocol.Msg) {
	r.msgs = append(r.msgs, msg)
}

func (r *testResponseSender) last(t *testing.T) protocol.Msg {
	require.NotEmpty(t, r.msgs)
	return r.msgs[len(r.msgs)-1]
}

// newJoinedModule returns a module joined to a session seeing a wall 2m in
// front of a camera at the origin.
func newJoinedModule(t *testing.T) (*Module, *models.Session) {
	in := depth.NewIntrinsics(32, 32, 32, 16, 64, 32)

	session := models.NewSession(1)
	session.Depth.Set(depth.PlaneFrame(in, 2))
	session.SetCamera(collision.NewCamera(geometry.Identity(), in))

	profiles, err := collision.ParseProfiles([]byte(`
profiles:
  - name: strict
    mode: proxy
    center: [0, 0.1, 0]
    extents: [0.1, 0.1, 0.1]
    thresholds:
      vertex_distance_meters: 5
      mesh_ratio_threshold: 0.1
`))
	require.NoError(t, err)

	m := &Module{
		Profiles:   profiles,
		Thresholds: collision.DefaultThresholds(),
	}
	m.Init(session, &models.Participant{ID: 1})
	return m, session
}

func collisionRequest(t *testing.T, req protocol.CollisionRequest) protocol.Msg {
	msg, err := protocol.NewMsg(protocol.MsgTypeCollisionRequest, 12, req)
	require.NoError(t, err)
	return msg
}

func verdictOf(t *testing.T, msg protocol.Msg) collision.Verdict {
	require.Equal(t, protocol.MsgTypeCollisionResponse, msg.Type)
	require.Equal(t, uint32(12), msg.RequestID)

	var res protocol.CollisionResponse
	require.NoError(t, msg.DataTo(&res))
	return res.Verdict
}

func errorOf(t *testing.T, msg protocol.Msg) protocol.ErrorCode {
	require.Equal(t, protocol.MsgTypeErrorResponse, msg.Type)
	require.Equal(t, uint32(12), msg.RequestID)

	var res protocol.ErrorResponse
	require.NoError(t, msg.DataTo(&res))
	return res.Code
}

func TestModuleCollisionRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("object behind the wall collides", func(t *testing.T) {
		m, _ := newJoinedModule(t)
		respond := &testResponseSender{}

		err := m.HandleMsg(ctx, respond, collisionRequest(t, protocol.CollisionRequest{
			Position: [3]float32{0, 0, 3},
		}))
		require.NoError(t, err)

		v := verdictOf(t, respond.last(t))
		require.True(t, v.Collided)
		require.Equal(t, v.TotalTested, v.CollidedCount)
		require.Zero(t, v.InvalidCount)
	})

	t.Run("object in front of the wall is free", func(t *testing.T) {
		m, _ := newJoinedModule(t)
		respond := &testResponseSender{}

		err := m.HandleMsg(ctx, respond, collisionRequest(t, protocol.CollisionRequest{
			Position: [3]float32{0, 0, 1},
		}))
		require.NoError(t, err)

		v := verdictOf(t, respond.last(t))
		require.False(t, v.Collided)
		require.Zero(t, v.CollidedCount)
		require.NotZero(t, v.TotalTested)
	})

	t.Run("profile thresholds are used", func(t *testing.T) {
		m, _ := newJoinedModule(t)
		respond := &testResponseSender{}

		err := m.HandleMsg(ctx, respond, collisionRequest(t, protocol.CollisionRequest{
			Profile:  "strict",
			Position: [3]float32{0, 0, 3},
		}))
		require.NoError(t, err)
		require.False(t, verdictOf(t, respond.last(t)).Collided)
	})

	t.Run("request thresholds override the profile ones", func(t *testing.T) {
		m, _ := newJoinedModule(t)
		respond := &testResponseSender{}

		thresholds := collision.DefaultThresholds()
		err := m.HandleMsg(ctx, respond, collisionRequest(t, protocol.CollisionRequest{
			Profile:    "strict",
			Position:   [3]float32{0, 0, 3},
			Thresholds: &thresholds,
		}))
		require.NoError(t, err)
		require.True(t, verdictOf(t, respond.last(t)).Collided)
	})

	t.Run("inline mesh", func(t *testing.T) {
		m, _ := newJoinedModule(t)
		respond := &testResponseSender{}

		err := m.HandleMsg(ctx, respond, collisionRequest(t, protocol.CollisionRequest{
			Mode: collision.ModeMesh,
			Vertices: [][3]float32{
				{0, 0, 0},
				{0.1, 0, 0},
				{0, 0.1, 0},
				{0, 0, 0.1},
			},
			Position: [3]float32{0, 0, 3},
		}))
		require.NoError(t, err)

		v := verdictOf(t, respond.last(t))
		require.True(t, v.Collided)
		require.Equal(t, 4, v.TotalTested)
	})

	t.Run("no depth yet", func(t *testing.T) {
		m, session := newJoinedModule(t)
		session.Depth.Reset()
		respond := &testResponseSender{}

		err := m.HandleMsg(ctx, respond, collisionRequest(t, protocol.CollisionRequest{
			Position: [3]float32{0, 0, 3},
		}))
		require.NoError(t, err)

		v := verdictOf(t, respond.last(t))
		require.True(t, v.SensorNotReady)
		require.False(t, v.Collided)
	})

	t.Run("unknown profile", func(t *testing.T) {
		m, _ := newJoinedModule(t)
		respond := &testResponseSender{}

		err := m.HandleMsg(ctx, respond, collisionRequest(t, protocol.CollisionRequest{
			Profile: "piano",
		}))
		require.NoError(t, err)
		require.Equal(t, protocol.ErrorCodeNotFound, errorOf(t, respond.last(t)))
	})

	t.Run("invalid thresholds", func(t *testing.T) {
		m, _ := newJoinedModule(t)
		respond := &testResponseSender{}

		err := m.HandleMsg(ctx, respond, collisionRequest(t, protocol.CollisionRequest{
			Thresholds: &collision.Thresholds{MeshRatioThreshold: 2},
		}))
		require.NoError(t, err)
		require.Equal(t, protocol.ErrorCodeBadRequest, errorOf(t, respond.last(t)))
	})

	t.Run("invalid mode", func(t *testing.T) {
		m, _ := newJoinedModule(t)
		respond := &testResponseSender{}

		err := m.HandleMsg(ctx, respond, collisionRequest(t, protocol.CollisionRequest{
			Mode:    "sphere",
			Extents: [3]float32{1, 1, 1},
		}))
		require.NoError(t, err)
		require.Equal(t, protocol.ErrorCodeBadRequest, errorOf(t, respond.last(t)))
	})

	t.Run("malformed request", func(t *testing.T) {
		m, _ := newJoinedModule(t)
		respond := &testResponseSender{}

		err := m.HandleMsg(ctx, respond, protocol.Msg{
			Type:      protocol.MsgTypeCollisionRequest,
			RequestID: 12,
			Data:      []byte(`{"position": 42}`),
		})
		require.NoError(t, err)
		require.Equal(t, protocol.ErrorCodeBadRequest, errorOf(t, respond.last(t)))
	})

	t.Run("session not joined", func(t *testing.T) {
		m := &Module{}
		err := m.HandleMsg(ctx, &testResponseSender{}, collisionRequest(t, protocol.CollisionRequest{}))
		require.Error(t, err)
		require.True(t, errors.IsType(err, protocol.ErrTypeSessionNotJoined))
	})

	t.Run("other messages are skipped", func(t *testing.T) {
		m, _ := newJoinedModule(t)
		err := m.HandleMsg(ctx, &testResponseSender{}, protocol.Msg{Type: protocol.MsgTypePing})
		require.Equal(t, protocol.ErrModuleMsgSkip, err)
	})
}
