package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/depthlab/models"
	"github.com/aukilabs/depthlab/modules"
	"github.com/aukilabs/depthlab/protocol"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize    = 512
	receiveChanSize = 64
)

// Handler represents a realtime connection handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a ping request.
	HandlePing(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a request to join a session.
	HandleSessionJoin(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a depth frame sent by the AR client.
	HandleDepthFrame(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles an update of the camera that captures depth frames.
	HandleCameraUpdate(ctx context.Context, respond protocol.ResponseSender, msg protocol.Msg) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Handle a message with a module.
	HandleWithModule(ctx context.Context, module modules.Module, respond protocol.ResponseSender, msg protocol.Msg) error

	// Creates a message receiver used to receive incoming messages.
	Receiver() protocol.Receiver

	// Creates a message sender passed in service methods in order to send
	// messages.
	Sender() protocol.Sender

	// Closes the service and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// Returns the session store.
	GetSessions() *models.SessionStore

	// Returns the modules.
	GetModules() []modules.Module

	// The currently joined session.
	CurrentSession() *models.Session

	// The current participant.
	CurrentParticipant() *models.Participant

	// Get ClientID
	GetClientID() string
}

// Handle handles the given service.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	// The connection handler.
	Handler Handler

	sendChan       chan protocol.Msg
	receiveChan    chan protocol.Msg
	sender         protocol.Sender
	receiver       protocol.Receiver
	disconnectChan chan error
	ctx            context.Context
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.ctx = ctx

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan protocol.Msg, sendChanSize)
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan protocol.Msg, receiveChanSize)
	h.receiver = h.Handler.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	var responder = responseSender{
		send:    h.send,
		sendMsg: h.sendMsg,
	}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			h.disconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", idleTimeout))

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				h.disconnect(errors.New("handling message failed").Wrap(err))
			}

		case err := <-h.disconnectChan:
			h.handleDisconnect(err)
			if ctx.Err() == nil {
				// cancel context so go routines can cleanly exit
				cancel()
			}
		}
	}

	wg.Wait()
}

func (h *handler) send(t protocol.MsgType, requestID uint32, data any) {
	msg, err := protocol.NewMsg(t, requestID, data)
	if err != nil {
		logs.WithTag(logs.ClientIDTag, h.Handler.GetClientID()).
			WithTag("msg_type", t).
			Debug(err)
		return
	}
	h.sendMsg(msg)
}

// sendMsg queues a message. Messages sent after the connection ended, for
// example by an exploration still streaming, are dropped.
func (h *handler) sendMsg(msg protocol.Msg) {
	select {
	case <-h.ctx.Done():
	case h.sendChan <- msg:
	}
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		default:
			msg, _, err := h.receiver()
			if errors.IsType(err, protocol.ErrTypeBadMsg) {
				continue
			}
			if err != nil {
				h.disconnect(errors.New("receiving message failed").Wrap(err))
				return
			}

			select {
			case <-ctx.Done():
				return
			case h.receiveChan <- msg:
			}
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg protocol.Msg, responder protocol.ResponseSender) error {
	var err error

	switch msg.Type {
	case protocol.MsgTypePing:
		err = h.Handler.HandlePing(ctx, responder, msg)

	case protocol.MsgTypeSessionJoin:
		err = h.Handler.HandleSessionJoin(ctx, responder, msg)

	case protocol.MsgTypeDepthFrame:
		err = h.Handler.HandleDepthFrame(ctx, responder, msg)

	case protocol.MsgTypeCameraUpdate:
		err = h.Handler.HandleCameraUpdate(ctx, responder, msg)
	}

	if err != nil {
		return err
	}

	if h.Handler.CurrentParticipant() == nil || h.Handler.CurrentSession() == nil {
		return nil
	}

	for _, m := range h.Handler.GetModules() {
		if err = h.Handler.HandleWithModule(ctx, m, responder, msg); err != nil {
			return err
		}
	}
	return nil
}

func (h *handler) disconnect(err error) {
	select {
	case h.disconnectChan <- err:
	default:
	}
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

type responseSender struct {
	send    func(protocol.MsgType, uint32, any)
	sendMsg func(protocol.Msg)
}

func (r responseSender) Send(t protocol.MsgType, requestID uint32, data any) {
	r.send(t, requestID, data)
}

func (r responseSender) SendMsg(msg protocol.Msg) {
	r.sendMsg(msg)
}
