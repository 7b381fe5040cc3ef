package models

import (
	"github.com/aukilabs/hagall-spatial/messages"
	"github.com/aukilabs/hagall-spatial/quadtree"
)

// Entity is a labelled point put in a space by a participant.
type Entity struct {
	ID            uint32
	ParticipantID uint32
	Label         string

	position quadtree.Point
}

func NewEntity(id, participantID uint32, label string, position quadtree.Point) *Entity {
	return &Entity{
		ID:            id,
		ParticipantID: participantID,
		Label:         label,
		position:      position,
	}
}

// Position returns where the entity was put. Entities never move: the space
// index keeps a snapshot of the position.
func (e *Entity) Position() quadtree.Point {
	return e.position
}

func (e *Entity) ToMessage() messages.Entity {
	return messages.Entity{
		ID:       e.ID,
		Label:    e.Label,
		Position: e.position,
	}
}

func EntitiesToMessages(entities []*Entity) []messages.Entity {
	res := make([]messages.Entity, len(entities))
	for i, e := range entities {
		res[i] = e.ToMessage()
	}
	return res
}
