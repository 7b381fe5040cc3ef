package websocket

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/hagall-spatial/messages"
	"golang.org/x/net/websocket"
)

const (
	spaceIDTag   = "space_id"
	spaceUUIDTag = "space_uuid"
)

// HandlerWithLogs decorates h with connection logs and a periodic summary of
// the received message types.
func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	originalRequest *http.Request

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int

	spaceID       uint32
	spaceUUID     string
	participantID uint32
}

type httpHeaders struct {
	UserAgent     string `json:"user_agent,omitempty"`
	XForwardedFor string `json:"x_forwarded_for,omitempty"`
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)
	h.originalRequest = conn.Request()

	logs.WithClientID(h.GetClientID()).
		WithTag("http_headers", h.httpHeaders()).
		Info("new client is connected")
}

func (h *handlerWithLogs) HandleSpaceCreate(ctx context.Context, respond ResponseSender, msg messages.Msg) error {
	before := h.GetSpaces().Count()

	if err := h.Handler.HandleSpaceCreate(ctx, respond, msg); err != nil {
		return err
	}

	logs.WithClientID(h.GetClientID()).
		WithTag("request_id", msg.RequestID).
		WithTag("space_count", h.GetSpaces().Count()).
		WithTag("created", h.GetSpaces().Count() > before).
		Debug("space create request handled")
	return nil
}

func (h *handlerWithLogs) HandleSpaceJoin(ctx context.Context, respond ResponseSender, msg messages.Msg) error {
	if err := h.Handler.HandleSpaceJoin(ctx, respond, msg); err != nil {
		return err
	}

	space := h.CurrentSpace()
	participant := h.CurrentParticipant()
	if space == nil || participant == nil || participant.ID == h.participantID && space.ID == h.spaceID {
		var req messages.SpaceJoinRequest
		// Parsing already succeeded in h.Handler.HandleSpaceJoin.
		msg.DataTo(&req)

		logs.WithClientID(h.GetClientID()).
			WithTag(spaceIDTag, req.SpaceID).
			WithTag("request_id", req.RequestID).
			WithTag("http_headers", h.httpHeaders()).
			Info("participant failed to join a space")
		return nil
	}

	h.spaceID = space.ID
	h.spaceUUID = space.SpaceUUID
	h.participantID = participant.ID

	logs.WithClientID(h.GetClientID()).
		WithTag(spaceIDTag, h.spaceID).
		WithTag(spaceUUIDTag, h.spaceUUID).
		WithTag(logs.ParticipantIDTag, h.participantID).
		WithTag("http_headers", h.httpHeaders()).
		Info("participant joined a space")
	return nil
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	participant := h.CurrentParticipant()
	h.Handler.HandleDisconnect(err)

	entry := logs.WithClientID(h.GetClientID()).
		WithTag(spaceIDTag, h.spaceID).
		WithTag(spaceUUIDTag, h.spaceUUID).
		WithTag(logs.ParticipantIDTag, h.participantID)

	if participant != nil {
		entry = entry.WithTag("entity_count", participant.EntityCount())
	}

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
		entry = entry.WithTag("reason", err.Error())
	}
	entry.Info("client disconnected")
}

func (h *handlerWithLogs) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (messages.Msg, int, error) {
		msg, n, err := receive()
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			logs.WithClientID(h.GetClientID()).
				Error(errors.New("receiving message failed").Wrap(err))
		} else if err == nil {
			logs.WithClientID(h.GetClientID()).
				WithTag("msg_type", msg.TypeString()).
				Debug("message received")
			h.incCounter(msg.TypeString())
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() Sender {
	sender := h.Handler.Sender()

	return func(msg messages.Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			logs.WithClientID(h.GetClientID()).
				WithTag("msg_type", msgType).
				Error(errors.New("sending message failed").Wrap(err))
		} else if err == nil {
			logs.WithClientID(h.GetClientID()).
				WithTag("msg_type", msgType).
				Debug("message sent")
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) httpHeaders() httpHeaders {
	if h.originalRequest == nil {
		return httpHeaders{}
	}

	return httpHeaders{
		UserAgent:     h.originalRequest.UserAgent(),
		XForwardedFor: h.originalRequest.Header.Get("X-Forwarded-For"),
	}
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) incCounter(msgType string) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.counter[msgType]++
}

func (h *handlerWithLogs) logSummary() {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	if len(h.counter) == 0 {
		return
	}

	entry := logs.
		WithClientID(h.GetClientID()).
		WithTag(logs.ParticipantIDTag, h.participantID).
		WithTag(spaceIDTag, h.spaceID).
		WithTag(spaceUUIDTag, h.spaceUUID).
		WithTag("time_interval", h.summaryInterval)

	for k, v := range h.counter {
		entry = entry.WithTag(k, v)
		delete(h.counter, k)
	}

	entry.Info("inbound message summary")
}
