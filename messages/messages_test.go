package messages

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/quadtree"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestMsgFromProto(t *testing.T) {
	msg, err := MsgFromProto(&SpaceCreateRequest{
		RequestID: 42,
		Bounds:    quadtree.NewRectangle(-10, 0.5, 200, 100),
		MaxItems:  4,
		MaxDepth:  2,
	})
	require.NoError(t, err)
	require.Equal(t, MsgTypeSpaceCreateRequest, msg.Type)
	require.Equal(t, uint32(42), msg.RequestID)
	require.Equal(t, "MSG_TYPE_SPACE_CREATE_REQUEST", msg.TypeString())

	var req SpaceCreateRequest
	require.NoError(t, msg.DataTo(&req))
	require.Equal(t, uint32(42), req.RequestID)
	require.Equal(t, quadtree.NewRectangle(-10, 0.5, 200, 100), req.Bounds)
	require.Equal(t, uint32(4), req.MaxItems)
	require.Equal(t, uint32(2), req.MaxDepth)
}

func TestQueryResponse(t *testing.T) {
	res := &QueryResponse{
		RequestID: 7,
		Entities: []Entity{
			{ID: 1, Label: "ted", Position: quadtree.NewPoint(10, 10)},
			{ID: 2, Position: quadtree.NewPoint(-1.25, 3)},
		},
	}

	msg, err := Decode(Marshal(res))
	require.NoError(t, err)

	var decoded QueryResponse
	require.NoError(t, msg.DataTo(&decoded))
	require.Equal(t, *res, decoded)

	t.Run("empty", func(t *testing.T) {
		msg, err := Decode(Marshal(&QueryResponse{RequestID: 8}))
		require.NoError(t, err)

		var decoded QueryResponse
		require.NoError(t, msg.DataTo(&decoded))
		require.Equal(t, uint32(8), decoded.RequestID)
		require.Empty(t, decoded.Entities)
	})
}

func TestEntityPutRequest(t *testing.T) {
	msg, err := MsgFromProto(&EntityPutRequest{
		RequestID: 3,
		Label:     "nunchaku",
		Position:  quadtree.NewPoint(0, 100),
	})
	require.NoError(t, err)

	var req EntityPutRequest
	require.NoError(t, msg.DataTo(&req))
	require.Equal(t, "nunchaku", req.Label)
	require.Equal(t, quadtree.NewPoint(0, 100), req.Position)
}

func TestDecode(t *testing.T) {
	t.Run("unknown message type", func(t *testing.T) {
		b := protowire.AppendTag(nil, fieldType, protowire.VarintType)
		b = protowire.AppendVarint(b, 9999)

		_, err := Decode(b)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeUnknownType))
	})

	t.Run("missing message type", func(t *testing.T) {
		_, err := Decode(nil)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeUnknownType))
	})

	t.Run("truncated message", func(t *testing.T) {
		b := Marshal(&SpaceJoinRequest{RequestID: 1, SpaceID: 300})
		_, err := Decode(b[:len(b)-1])
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeMalformed))
	})

	t.Run("unknown fields are skipped", func(t *testing.T) {
		b := Marshal(&SpaceJoinRequest{RequestID: 1, SpaceID: 21})
		b = protowire.AppendTag(b, 99, protowire.BytesType)
		b = protowire.AppendString(b, "from the future")

		msg, err := Decode(b)
		require.NoError(t, err)

		var req SpaceJoinRequest
		require.NoError(t, msg.DataTo(&req))
		require.Equal(t, uint32(21), req.SpaceID)
	})

	t.Run("wrong wire type", func(t *testing.T) {
		b := Marshal(&PingRequest{})
		b = protowire.AppendTag(b, fieldRequestID, protowire.BytesType)
		b = protowire.AppendString(b, "42")

		_, err := Decode(b)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeWireType))
	})
}

func TestMsgDataTo(t *testing.T) {
	msg, err := MsgFromProto(&PingRequest{RequestID: 1})
	require.NoError(t, err)

	var res PingResponse
	err = msg.DataTo(&res)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeTypeMismatch))
}
