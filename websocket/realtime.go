package websocket

import (
	"context"
	"math"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/featureflag"
	httpcmn "github.com/aukilabs/hagall-spatial/http"
	"github.com/aukilabs/hagall-spatial/messages"
	"github.com/aukilabs/hagall-spatial/models"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// RealtimeHandler serves the requests of a single client connection: it
// creates and joins spaces, puts entities and answers range queries.
type RealtimeHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The store that contains all the server spaces.
	Spaces *models.SpaceStore

	FeatureFlags featureflag.FeatureFlag

	conn               *websocket.Conn
	currentSpace       *models.Space
	currentParticipant *models.Participant

	// Spaces created by the client. They are removed when the client
	// disconnects if nobody joined them.
	createdSpaces []*models.Space

	clientID string
}

func (h *RealtimeHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = conn.Request().Header.Get(httpcmn.HeaderClientID)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}

	h.conn = conn
}

func (h *RealtimeHandler) HandlePing(ctx context.Context, respond ResponseSender, msg messages.Msg) error {
	var req messages.PingRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	respond.Send(&messages.PingResponse{
		RequestID: req.RequestID,
	})
	return nil
}

func (h *RealtimeHandler) HandleSpaceCreate(ctx context.Context, respond ResponseSender, msg messages.Msg) error {
	var req messages.SpaceCreateRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.FeatureFlags.IsSet(featureflag.FlagDisableSpaceCreate) {
		respondError(respond, req.RequestID, messages.ErrorCodeDisabled)
		return nil
	}

	maxDepth := req.MaxDepth
	if maxDepth > math.MaxUint8 {
		maxDepth = math.MaxUint8
	}

	space, err := h.Spaces.New(req.Bounds, int(req.MaxItems), uint8(maxDepth))
	if err != nil {
		respondError(respond, req.RequestID, errorCode(err))
		return nil
	}
	h.createdSpaces = append(h.createdSpaces, space)

	respond.Send(&messages.SpaceCreateResponse{
		RequestID: req.RequestID,
		SpaceID:   space.ID,
		SpaceUUID: space.SpaceUUID,
	})
	return nil
}

func (h *RealtimeHandler) HandleSpaceJoin(ctx context.Context, respond ResponseSender, msg messages.Msg) error {
	var req messages.SpaceJoinRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if _, err := h.Spaces.Get(req.SpaceID); err != nil {
		respondError(respond, req.RequestID, errorCode(err))
		return nil
	}

	if h.currentSpace != nil && h.currentSpace.ID == req.SpaceID {
		respondError(respond, req.RequestID, messages.ErrorCodeSpaceAlreadyJoined)
		return nil
	}

	if h.currentParticipant != nil {
		h.leaveSpace()
	}

	space, participant, err := h.Spaces.Join(req.SpaceID, h.clientID)
	if err != nil {
		respondError(respond, req.RequestID, errorCode(err))
		return nil
	}

	h.currentSpace = space
	h.currentParticipant = participant

	respond.Send(&messages.SpaceJoinResponse{
		RequestID:     req.RequestID,
		SpaceUUID:     space.SpaceUUID,
		Bounds:        space.Bounds(),
		ParticipantID: participant.ID,
	})
	return nil
}

func (h *RealtimeHandler) HandleEntityPut(ctx context.Context, respond ResponseSender, msg messages.Msg) error {
	var req messages.EntityPutRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	space := h.currentSpace
	if space == nil {
		respondError(respond, req.RequestID, messages.ErrorCodeSpaceNotJoined)
		return nil
	}

	entity, err := space.Put(h.currentParticipant, req.Label, req.Position)
	if errors.IsType(err, models.ErrTypeOutOfBounds) && h.FeatureFlags.IsSet(featureflag.FlagSilentOutOfBounds) {
		respond.Send(&messages.EntityPutResponse{
			RequestID: req.RequestID,
		})
		return nil
	}
	if err != nil {
		respondError(respond, req.RequestID, errorCode(err))
		return nil
	}

	respond.Send(&messages.EntityPutResponse{
		RequestID: req.RequestID,
		EntityID:  entity.ID,
	})
	return nil
}

func (h *RealtimeHandler) HandleQuery(ctx context.Context, respond ResponseSender, msg messages.Msg) error {
	var req messages.QueryRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	space := h.currentSpace
	if space == nil {
		respondError(respond, req.RequestID, messages.ErrorCodeSpaceNotJoined)
		return nil
	}

	respond.Send(&messages.QueryResponse{
		RequestID: req.RequestID,
		Entities:  models.EntitiesToMessages(space.Query(req.Range)),
	})
	return nil
}

func (h *RealtimeHandler) HandleDisconnect(_ error) {
	if h.currentParticipant != nil {
		h.leaveSpace()
	}

	for _, s := range h.createdSpaces {
		h.removeIfUnused(s)
	}
	h.createdSpaces = nil
}

func (h *RealtimeHandler) Receiver() Receiver {
	return func() (messages.Msg, int, error) {
		return Receive(h.conn)
	}
}

func (h *RealtimeHandler) Sender() Sender {
	return func(msg messages.Msg) (int, error) {
		return Send(h.conn, msg)
	}
}

func (h *RealtimeHandler) Close() {
}

func (h *RealtimeHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *RealtimeHandler) GetSpaces() *models.SpaceStore {
	return h.Spaces
}

func (h *RealtimeHandler) CurrentSpace() *models.Space {
	return h.currentSpace
}

func (h *RealtimeHandler) CurrentParticipant() *models.Participant {
	return h.currentParticipant
}

func (h *RealtimeHandler) GetClientID() string {
	return h.clientID
}

func (h *RealtimeHandler) leaveSpace() {
	space := h.currentSpace
	participant := h.currentParticipant

	if participant == nil || space == nil {
		return
	}

	space.RemoveParticipant(participant)
	h.removeIfUnused(space)

	h.currentParticipant = nil
	h.currentSpace = nil
}

func (h *RealtimeHandler) removeIfUnused(space *models.Space) {
	h.Spaces.RemoveIfUnused(space)
}

func respondError(respond ResponseSender, requestID uint32, code messages.ErrorCode) {
	respond.Send(&messages.ErrorResponse{
		RequestID: requestID,
		Code:      code,
	})
}

func errorCode(err error) messages.ErrorCode {
	switch errors.Type(err) {
	case models.ErrTypeSpaceNotFound:
		return messages.ErrorCodeSpaceNotFound

	case models.ErrTypeOutOfBounds:
		return messages.ErrorCodeOutOfBounds

	case models.ErrTypeTooManySpaces:
		return messages.ErrorCodeTooManySpaces

	default:
		return messages.ErrorCodeBadRequest
	}
}
