package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/hagall-spatial/messages"
	"github.com/aukilabs/hagall-spatial/models"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize    = 512
	receiveChanSize = 64
)

// Handler represents a spatial index server handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a ping request.
	HandlePing(ctx context.Context, respond ResponseSender, msg messages.Msg) error

	// Handles a request to create a space.
	HandleSpaceCreate(ctx context.Context, respond ResponseSender, msg messages.Msg) error

	// Handles a request to join a space.
	HandleSpaceJoin(ctx context.Context, respond ResponseSender, msg messages.Msg) error

	// Handles a request to put an entity in the joined space.
	HandleEntityPut(ctx context.Context, respond ResponseSender, msg messages.Msg) error

	// Handles a range query in the joined space.
	HandleQuery(ctx context.Context, respond ResponseSender, msg messages.Msg) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Creates a message receiver used to receive incoming messages.
	Receiver() Receiver

	// Creates a message sender passed in service methods in order to send
	// messages.
	Sender() Sender

	// Closes the service and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// Returns the space store.
	GetSpaces() *models.SpaceStore

	// The currently joined space.
	CurrentSpace() *models.Space

	// The current participant.
	CurrentParticipant() *models.Participant

	GetClientID() string
}

// Handle runs h on the given connection until the client disconnects or ctx
// is canceled.
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

	Handler Handler

	sendChan       chan messages.Msg
	receiveChan    chan messages.Msg
	sender         Sender
	receiver       Receiver
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan messages.Msg, sendChanSize)
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan messages.Msg, receiveChanSize)
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
			h.handleDisconnect(ctx.Err())

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

	// Unblocks the receiving goroutine.
	h.Conn.Close()
	wg.Wait()
}

func (h *handler) send(protoMsg messages.ProtoMsg) {
	msg, err := messages.MsgFromProto(protoMsg)
	if err != nil {
		logs.WithTag("msg_type", protoMsg.GetType().String()).
			WithClientID(h.Handler.GetClientID()).
			Debug(err)
		return
	}
	h.sendMsg(msg)
}

func (h *handler) sendMsg(msg messages.Msg) {
	select {
	case h.sendChan <- msg:
	default:
		h.disconnect(errors.New("send queue is full").
			WithTag("msg_type", msg.TypeString()))
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
		msg, _, err := h.receiver()
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

func (h *handler) handleMessage(ctx context.Context, msg messages.Msg, responder ResponseSender) error {
	switch msg.Type {
	case messages.MsgTypePingRequest:
		return h.Handler.HandlePing(ctx, responder, msg)

	case messages.MsgTypeSpaceCreateRequest:
		return h.Handler.HandleSpaceCreate(ctx, responder, msg)

	case messages.MsgTypeSpaceJoinRequest:
		return h.Handler.HandleSpaceJoin(ctx, responder, msg)

	case messages.MsgTypeEntityPutRequest:
		return h.Handler.HandleEntityPut(ctx, responder, msg)

	case messages.MsgTypeQueryRequest:
		return h.Handler.HandleQuery(ctx, responder, msg)

	default:
		responder.Send(&messages.ErrorResponse{
			RequestID: msg.RequestID,
			Code:      messages.ErrorCodeBadRequest,
		})
		return nil
	}
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
	send    func(messages.ProtoMsg)
	sendMsg func(messages.Msg)
}

func (r responseSender) Send(protoMsg messages.ProtoMsg) {
	r.send(protoMsg)
}

func (r responseSender) SendMsg(msg messages.Msg) {
	r.sendMsg(msg)
}
