// Package messages contains the messages of the realtime spatial protocol.
//
// Messages are encoded with the protocol buffers wire format. Every message
// starts with its type (field 1) and the id of the request it belongs to
// (field 2). Message specific fields start at 3.
package messages

import (
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/quadtree"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	ErrTypeMalformed    = "malformed_message"
	ErrTypeUnknownType  = "unknown_message_type"
	ErrTypeTypeMismatch = "message_type_mismatch"
)

const (
	fieldType      protowire.Number = 1
	fieldRequestID protowire.Number = 2
)

type MsgType uint32

const (
	MsgTypeUnspecified MsgType = iota
	MsgTypeErrorResponse
	MsgTypePingRequest
	MsgTypePingResponse
	MsgTypeSpaceCreateRequest
	MsgTypeSpaceCreateResponse
	MsgTypeSpaceJoinRequest
	MsgTypeSpaceJoinResponse
	MsgTypeEntityPutRequest
	MsgTypeEntityPutResponse
	MsgTypeQueryRequest
	MsgTypeQueryResponse
)

var msgTypeNames = map[MsgType]string{
	MsgTypeUnspecified:         "MSG_TYPE_UNSPECIFIED",
	MsgTypeErrorResponse:       "MSG_TYPE_ERROR_RESPONSE",
	MsgTypePingRequest:         "MSG_TYPE_PING_REQUEST",
	MsgTypePingResponse:        "MSG_TYPE_PING_RESPONSE",
	MsgTypeSpaceCreateRequest:  "MSG_TYPE_SPACE_CREATE_REQUEST",
	MsgTypeSpaceCreateResponse: "MSG_TYPE_SPACE_CREATE_RESPONSE",
	MsgTypeSpaceJoinRequest:    "MSG_TYPE_SPACE_JOIN_REQUEST",
	MsgTypeSpaceJoinResponse:   "MSG_TYPE_SPACE_JOIN_RESPONSE",
	MsgTypeEntityPutRequest:    "MSG_TYPE_ENTITY_PUT_REQUEST",
	MsgTypeEntityPutResponse:   "MSG_TYPE_ENTITY_PUT_RESPONSE",
	MsgTypeQueryRequest:        "MSG_TYPE_QUERY_REQUEST",
	MsgTypeQueryResponse:       "MSG_TYPE_QUERY_RESPONSE",
}

func (t MsgType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "MSG_TYPE_" + strconv.FormatUint(uint64(t), 10)
}

type ErrorCode uint32

const (
	ErrorCodeUnspecified ErrorCode = iota
	ErrorCodeBadRequest
	ErrorCodeSpaceNotFound
	ErrorCodeSpaceNotJoined
	ErrorCodeOutOfBounds
	ErrorCodeDisabled
	ErrorCodeTooManySpaces
	ErrorCodeSpaceAlreadyJoined
)

// ProtoMsg is the interface implemented by all the protocol messages.
type ProtoMsg interface {
	GetType() MsgType

	appendFields(b []byte) []byte
	consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error)
}

// Msg is an encoded message whose type and request id have been read.
type Msg struct {
	Type      MsgType
	RequestID uint32
	Data      []byte
}

func (m Msg) TypeString() string {
	return m.Type.String()
}

// DataTo decodes the message into p. p must be of the message type.
func (m Msg) DataTo(p ProtoMsg) error {
	if p.GetType() != m.Type {
		return errors.New("message type mismatch").
			WithType(ErrTypeTypeMismatch).
			WithTag("msg_type", m.Type).
			WithTag("expected_msg_type", p.GetType())
	}

	return consumeFields(m.Data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == fieldType {
			return 0, nil
		}
		return p.consumeField(num, typ, b)
	})
}

// Marshal encodes p.
func Marshal(p ProtoMsg) []byte {
	b := appendVarint(nil, fieldType, uint64(p.GetType()))
	return p.appendFields(b)
}

// MsgFromProto encodes p into a Msg ready to be sent.
func MsgFromProto(p ProtoMsg) (Msg, error) {
	return Decode(Marshal(p))
}

// Decode reads the type and request id of an encoded message.
func Decode(b []byte) (Msg, error) {
	msg := Msg{Data: b}

	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldType:
			v, n, err := consumeVarint(num, typ, b)
			msg.Type = MsgType(v)
			return n, err

		case fieldRequestID:
			v, n, err := consumeVarint(num, typ, b)
			msg.RequestID = uint32(v)
			return n, err

		default:
			return 0, nil
		}
	})
	if err != nil {
		return Msg{}, err
	}

	if _, ok := msgTypeNames[msg.Type]; !ok || msg.Type == MsgTypeUnspecified {
		return Msg{}, errors.New("unknown message type").
			WithType(ErrTypeUnknownType).
			WithTag("msg_type", uint32(msg.Type))
	}
	return msg, nil
}

func appendRequestID(b []byte, id uint32) []byte {
	if id == 0 {
		return b
	}
	return appendVarint(b, fieldRequestID, uint64(id))
}

func consumeRequestID(id *uint32, num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	v, n, err := consumeVarint(num, typ, b)
	*id = uint32(v)
	return n, err
}

type ErrorResponse struct {
	RequestID uint32
	Code      ErrorCode
}

func (m *ErrorResponse) GetType() MsgType { return MsgTypeErrorResponse }

func (m *ErrorResponse) appendFields(b []byte) []byte {
	b = appendRequestID(b, m.RequestID)
	return appendVarint(b, 3, uint64(m.Code))
}

func (m *ErrorResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case fieldRequestID:
		return consumeRequestID(&m.RequestID, num, typ, b)
	case 3:
		v, n, err := consumeVarint(num, typ, b)
		m.Code = ErrorCode(v)
		return n, err
	}
	return 0, nil
}

type PingRequest struct {
	RequestID uint32
}

func (m *PingRequest) GetType() MsgType { return MsgTypePingRequest }

func (m *PingRequest) appendFields(b []byte) []byte {
	return appendRequestID(b, m.RequestID)
}

func (m *PingRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	if num == fieldRequestID {
		return consumeRequestID(&m.RequestID, num, typ, b)
	}
	return 0, nil
}

type PingResponse struct {
	RequestID uint32
}

func (m *PingResponse) GetType() MsgType { return MsgTypePingResponse }

func (m *PingResponse) appendFields(b []byte) []byte {
	return appendRequestID(b, m.RequestID)
}

func (m *PingResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	if num == fieldRequestID {
		return consumeRequestID(&m.RequestID, num, typ, b)
	}
	return 0, nil
}

// SpaceCreateRequest asks for a new space covering Bounds. Zero MaxItems and
// MaxDepth select the server defaults.
type SpaceCreateRequest struct {
	RequestID uint32
	Bounds    quadtree.Rectangle
	MaxItems  uint32
	MaxDepth  uint32
}

func (m *SpaceCreateRequest) GetType() MsgType { return MsgTypeSpaceCreateRequest }

func (m *SpaceCreateRequest) appendFields(b []byte) []byte {
	b = appendRequestID(b, m.RequestID)
	b = appendMessage(b, 3, func(b []byte) []byte {
		return appendRectangle(b, m.Bounds)
	})
	b = appendVarint(b, 4, uint64(m.MaxItems))
	b = appendVarint(b, 5, uint64(m.MaxDepth))
	return b
}

func (m *SpaceCreateRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case fieldRequestID:
		return consumeRequestID(&m.RequestID, num, typ, b)
	case 3:
		v, n, err := consumeRectangle(num, typ, b)
		m.Bounds = v
		return n, err
	case 4:
		v, n, err := consumeVarint(num, typ, b)
		m.MaxItems = uint32(v)
		return n, err
	case 5:
		v, n, err := consumeVarint(num, typ, b)
		m.MaxDepth = uint32(v)
		return n, err
	}
	return 0, nil
}

type SpaceCreateResponse struct {
	RequestID uint32
	SpaceID   uint32
	SpaceUUID string
}

func (m *SpaceCreateResponse) GetType() MsgType { return MsgTypeSpaceCreateResponse }

func (m *SpaceCreateResponse) appendFields(b []byte) []byte {
	b = appendRequestID(b, m.RequestID)
	b = appendVarint(b, 3, uint64(m.SpaceID))
	b = appendString(b, 4, m.SpaceUUID)
	return b
}

func (m *SpaceCreateResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case fieldRequestID:
		return consumeRequestID(&m.RequestID, num, typ, b)
	case 3:
		v, n, err := consumeVarint(num, typ, b)
		m.SpaceID = uint32(v)
		return n, err
	case 4:
		v, n, err := consumeBytes(num, typ, b)
		m.SpaceUUID = string(v)
		return n, err
	}
	return 0, nil
}

type SpaceJoinRequest struct {
	RequestID uint32
	SpaceID   uint32
}

func (m *SpaceJoinRequest) GetType() MsgType { return MsgTypeSpaceJoinRequest }

func (m *SpaceJoinRequest) appendFields(b []byte) []byte {
	b = appendRequestID(b, m.RequestID)
	return appendVarint(b, 3, uint64(m.SpaceID))
}

func (m *SpaceJoinRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case fieldRequestID:
		return consumeRequestID(&m.RequestID, num, typ, b)
	case 3:
		v, n, err := consumeVarint(num, typ, b)
		m.SpaceID = uint32(v)
		return n, err
	}
	return 0, nil
}

type SpaceJoinResponse struct {
	RequestID     uint32
	SpaceUUID     string
	Bounds        quadtree.Rectangle
	ParticipantID uint32
}

func (m *SpaceJoinResponse) GetType() MsgType { return MsgTypeSpaceJoinResponse }

func (m *SpaceJoinResponse) appendFields(b []byte) []byte {
	b = appendRequestID(b, m.RequestID)
	b = appendString(b, 3, m.SpaceUUID)
	b = appendMessage(b, 4, func(b []byte) []byte {
		return appendRectangle(b, m.Bounds)
	})
	b = appendVarint(b, 5, uint64(m.ParticipantID))
	return b
}

func (m *SpaceJoinResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case fieldRequestID:
		return consumeRequestID(&m.RequestID, num, typ, b)
	case 3:
		v, n, err := consumeBytes(num, typ, b)
		m.SpaceUUID = string(v)
		return n, err
	case 4:
		v, n, err := consumeRectangle(num, typ, b)
		m.Bounds = v
		return n, err
	case 5:
		v, n, err := consumeVarint(num, typ, b)
		m.ParticipantID = uint32(v)
		return n, err
	}
	return 0, nil
}

type EntityPutRequest struct {
	RequestID uint32
	Label     string
	Position  quadtree.Point
}

func (m *EntityPutRequest) GetType() MsgType { return MsgTypeEntityPutRequest }

func (m *EntityPutRequest) appendFields(b []byte) []byte {
	b = appendRequestID(b, m.RequestID)
	if m.Label != "" {
		b = appendString(b, 3, m.Label)
	}
	b = appendMessage(b, 4, func(b []byte) []byte {
		return appendPoint(b, m.Position)
	})
	return b
}

func (m *EntityPutRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case fieldRequestID:
		return consumeRequestID(&m.RequestID, num, typ, b)
	case 3:
		v, n, err := consumeBytes(num, typ, b)
		m.Label = string(v)
		return n, err
	case 4:
		v, n, err := consumePoint(num, typ, b)
		m.Position = v
		return n, err
	}
	return 0, nil
}

// EntityPutResponse acknowledges a put. EntityID is 0 when the entity was
// dropped for being out of the space bounds.
type EntityPutResponse struct {
	RequestID uint32
	EntityID  uint32
}

func (m *EntityPutResponse) GetType() MsgType { return MsgTypeEntityPutResponse }

func (m *EntityPutResponse) appendFields(b []byte) []byte {
	b = appendRequestID(b, m.RequestID)
	return appendVarint(b, 3, uint64(m.EntityID))
}

func (m *EntityPutResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case fieldRequestID:
		return consumeRequestID(&m.RequestID, num, typ, b)
	case 3:
		v, n, err := consumeVarint(num, typ, b)
		m.EntityID = uint32(v)
		return n, err
	}
	return 0, nil
}

type QueryRequest struct {
	RequestID uint32
	Range     quadtree.Rectangle
}

func (m *QueryRequest) GetType() MsgType { return MsgTypeQueryRequest }

func (m *QueryRequest) appendFields(b []byte) []byte {
	b = appendRequestID(b, m.RequestID)
	b = appendMessage(b, 3, func(b []byte) []byte {
		return appendRectangle(b, m.Range)
	})
	return b
}

func (m *QueryRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case fieldRequestID:
		return consumeRequestID(&m.RequestID, num, typ, b)
	case 3:
		v, n, err := consumeRectangle(num, typ, b)
		m.Range = v
		return n, err
	}
	return 0, nil
}

type QueryResponse struct {
	RequestID uint32
	Entities  []Entity
}

func (m *QueryResponse) GetType() MsgType { return MsgTypeQueryResponse }

func (m *QueryResponse) appendFields(b []byte) []byte {
	b = appendRequestID(b, m.RequestID)
	for _, e := range m.Entities {
		b = appendMessage(b, 3, func(b []byte) []byte {
			return appendEntity(b, e)
		})
	}
	return b
}

func (m *QueryResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch num {
	case fieldRequestID:
		return consumeRequestID(&m.RequestID, num, typ, b)
	case 3:
		v, n, err := consumeEntity(num, typ, b)
		if err == nil {
			m.Entities = append(m.Entities, v)
		}
		return n, err
	}
	return 0, nil
}
