package websocket

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/messages"
	"golang.org/x/net/websocket"
)

// Sender sends a message and returns the number of bytes written.
type Sender func(messages.Msg) (int, error)

// Receiver reads the next message and returns the number of bytes read.
type Receiver func() (messages.Msg, int, error)

// ResponseSender queues messages to be sent to a client.
type ResponseSender interface {
	Send(messages.ProtoMsg)
	SendMsg(messages.Msg)
}

// Send writes msg as a binary frame.
func Send(conn *websocket.Conn, msg messages.Msg) (int, error) {
	if err := websocket.Message.Send(conn, msg.Data); err != nil {
		return 0, err
	}
	return len(msg.Data), nil
}

// SendProto encodes p and writes it as a binary frame.
func SendProto(conn *websocket.Conn, p messages.ProtoMsg) (int, error) {
	return Send(conn, messages.Msg{
		Type: p.GetType(),
		Data: messages.Marshal(p),
	})
}

// Receive reads the next frame and decodes its message type and request id.
func Receive(conn *websocket.Conn) (messages.Msg, int, error) {
	var b []byte
	if err := websocket.Message.Receive(conn, &b); err != nil {
		return messages.Msg{}, 0, err
	}

	msg, err := messages.Decode(b)
	if err != nil {
		return messages.Msg{}, len(b), errors.New("decoding message failed").Wrap(err)
	}
	return msg, len(b), nil
}
