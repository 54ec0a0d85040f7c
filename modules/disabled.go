package modules

import (
	"context"

	"github.com/aukilabs/depthlab/models"
	"github.com/aukilabs/depthlab/protocol"
)

// Disabled stands for a module turned off by a feature flag. It answers the
// requests the module would have handled with a disabled error.
type Disabled struct {
	ModuleName string
	Requests   []protocol.MsgType
}

func (m *Disabled) Name() string {
	return m.ModuleName
}

func (m *Disabled) Init(*models.Session, *models.Participant) {
}

func (m *Disabled) HandleMsg(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error {
	for _, t := range m.Requests {
		if msg.Type == t {
			protocol.SendError(respond, msg.RequestID, protocol.ErrorCodeDisabled, m.ModuleName+" is disabled")
			return nil
		}
	}
	return protocol.ErrModuleMsgSkip
}

func (m *Disabled) HandleDisconnect() {
}
