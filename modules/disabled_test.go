package modules

import (
	"context"
	"testing"

	"github.com/aukilabs/depthlab/protocol"
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

func TestDisabled(t *testing.T) {
	m := &Disabled{
		ModuleName: "explore",
		Requests:   []protocol.MsgType{protocol.MsgTypeExploreRequest},
	}
	require.Equal(t, "explore", m.Name())

	t.Run("request is answered with an error", func(t *testing.T) {
		respond := &testResponseSender{}
		err := m.HandleMsg(context.Background(), respond, protocol.Msg{
			Type:      protocol.MsgTypeExploreRequest,
			RequestID: 5,
		})
		require.NoError(t, err)
		require.Len(t, respond.msgs, 1)
		require.Equal(t, uint32(5), respond.msgs[0].RequestID)

		var res protocol.ErrorResponse
		require.NoError(t, respond.msgs[0].DataTo(&res))
		require.Equal(t, protocol.ErrorCodeDisabled, res.Code)
	})

	t.Run("other messages are skipped", func(t *testing.T) {
		respond := &testResponseSender{}
		err := m.HandleMsg(context.Background(), respond, protocol.Msg{Type: protocol.MsgTypePing})
		require.Equal(t, protocol.ErrModuleMsgSkip, err)
		require.Empty(t, respond.msgs)
	})
}
