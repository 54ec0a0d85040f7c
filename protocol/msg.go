package protocol

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeMsgSkip          = "msg-skip"
	ErrTypeSessionNotJoined = "session-not-joined"
	ErrTypeBadMsg           = "bad-msg"
)

// HeaderClientID is the HTTP header where clients set their id.
const HeaderClientID = "X-Depthlab-Client-Id"

// ErrModuleMsgSkip is returned by modules that do not handle a message.
var ErrModuleMsgSkip = errors.New("message skipped by module").WithType(ErrTypeMsgSkip)

// MsgType identifies the content of a message.
type MsgType string

const (
	MsgTypePing                MsgType = "ping"
	MsgTypePong                MsgType = "pong"
	MsgTypeSessionJoin         MsgType = "session_join"
	MsgTypeSessionJoinResponse MsgType = "session_join_response"
	MsgTypeDepthFrame          MsgType = "depth_frame"
	MsgTypeCameraUpdate        MsgType = "camera_update"
	MsgTypeCollisionRequest    MsgType = "collision_request"
	MsgTypeCollisionResponse   MsgType = "collision_response"
	MsgTypeExploreRequest      MsgType = "explore_request"
	MsgTypeExploreMarkers      MsgType = "explore_markers"
	MsgTypeExploreResponse     MsgType = "explore_response"
	MsgTypeExploreCancel       MsgType = "explore_cancel"
	MsgTypeErrorResponse       MsgType = "error_response"
)

// Msg is the envelope of every message exchanged over a WebSocket
// connection.
type Msg struct {
	Type      MsgType         `json:"type"`
	RequestID uint32          `json:"request_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMsg creates a message with the given data encoded in JSON.
func NewMsg(t MsgType, requestID uint32, data any) (Msg, error) {
	msg := Msg{
		Type:      t,
		RequestID: requestID,
		Timestamp: time.Now(),
	}

	if data == nil {
		return msg, nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return Msg{}, errors.New("encoding message data failed").
			WithTag("msg_type", t).
			Wrap(err)
	}
	msg.Data = b
	return msg, nil
}

// DataTo decodes the message data into v.
func (m Msg) DataTo(v any) error {
	if len(m.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeBadMsg).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// Receiver receives a message. It returns the number of bytes read.
type Receiver func() (Msg, int, error)

// Sender sends a message. It returns the number of bytes written.
type Sender func(Msg) (int, error)

// Receive reads a JSON message from a WebSocket connection.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var b []byte
	if err := websocket.Message.Receive(conn, &b); err != nil {
		return Msg{}, 0, err
	}

	var msg Msg
	if err := json.Unmarshal(b, &msg); err != nil {
		return Msg{}, len(b), errors.New("decoding message failed").
			WithType(ErrTypeBadMsg).
			Wrap(err)
	}
	return msg, len(b), nil
}

// Send writes a message as JSON on a WebSocket connection.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.New("encoding message failed").
			WithTag("msg_type", msg.Type).
			Wrap(err)
	}

	if err := websocket.Message.Send(conn, string(b)); err != nil {
		return 0, err
	}
	return len(b), nil
}

// ResponseSender sends messages to a client.
type ResponseSender interface {
	// Encodes data and sends it with the given type.
	Send(t MsgType, requestID uint32, data any)

	SendMsg(Msg)
}
