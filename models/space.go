package models

import (
	"sort"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/quadtree"
	"github.com/google/uuid"
)

const (
	ErrTypeOutOfBounds   = "out_of_bounds"
	ErrTypeSpaceNotFound = "space_not_found"
	ErrTypeTooManySpaces = "too_many_spaces"
	ErrTypeInvalidBounds = "invalid_bounds"
)

type entityItem = quadtree.Item[Entity]

// Space is a bounded area where participants put entities and query them by
// range. Entities are indexed in a quadtree.
//
// A space is safe for concurrent use: puts are serialized and queries run
// concurrently with each other.
type Space struct {
	ID        uint32
	SpaceUUID string
	Name      string

	// Persistent spaces are kept when their last participant leaves.
	Persist bool

	participantIDs   SequentialIDGenerator
	participantMutex sync.RWMutex
	participants     map[uint32]*Participant

	bounds  quadtree.Rectangle
	options quadtree.Options

	entityIDs SequentialIDGenerator
	mutex     sync.RWMutex
	entities  map[uint32]*Entity
	index     quadtree.SpatialIndex[entityItem]
}

func NewSpace(id uint32, bounds quadtree.Rectangle, options quadtree.Options) *Space {
	return &Space{
		ID:           id,
		SpaceUUID:    uuid.New().String(),
		participants: make(map[uint32]*Participant),
		bounds:       bounds,
		options:      options,
		entities:     make(map[uint32]*Entity),
		index:        quadtree.NewWithOptions[entityItem](bounds, options),
	}
}

func (s *Space) Bounds() quadtree.Rectangle {
	return s.bounds
}

func (s *Space) Options() quadtree.Options {
	return s.options
}

func (s *Space) NewParticipantID() uint32 {
	return s.participantIDs.New()
}

func (s *Space) AddParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	s.participants[p.ID] = p
}

func (s *Space) RemoveParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	delete(s.participants, p.ID)
}

func (s *Space) GetParticipants() []*Participant {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	return participants
}

func (s *Space) ParticipantCount() int {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	return len(s.participants)
}

// Put creates an entity at the given position and indexes it. An error of
// type ErrTypeOutOfBounds is returned when the position is outside of the
// space bounds, in which case nothing is stored.
func (s *Space) Put(p *Participant, label string, position quadtree.Point) (*Entity, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !quadtree.Contains(position, s.bounds) {
		instrumentCountDroppedPut()

		return nil, errors.New("position is out of space bounds").
			WithType(ErrTypeOutOfBounds).
			WithTag("space_id", s.ID).
			WithTag("position", position.String()).
			WithTag("bounds", s.bounds.String())
	}

	var participantID uint32
	if p != nil {
		participantID = p.ID
	}

	e := NewEntity(s.entityIDs.New(), participantID, label, position)
	s.entities[e.ID] = e
	s.index.Put(quadtree.NewItem(position, e))

	if p != nil {
		p.AddEntity(e)
	}

	instrumentIncreaseEntityGauge()
	return e, nil
}

// Query returns the entities positioned within rng, edges included.
func (s *Space) Query(rng quadtree.Rectangle) []*Entity {
	s.mutex.RLock()
	items := s.index.Query(rng)
	s.mutex.RUnlock()

	entities := make([]*Entity, len(items))
	for i, it := range items {
		entities[i] = it.Data()
	}

	instrumentObserveQuery(len(entities))
	return entities
}

func (s *Space) EntityByID(id uint32) (*Entity, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	e, ok := s.entities[id]
	return e, ok
}

func (s *Space) EntityCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.entities)
}

func (s *Space) DebugInfo() quadtree.DebugInfo {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.index.DebugInfo()
}

func (s *Space) close() {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	instrumentDecreaseEntityGauge(len(s.entities))
}

// SpaceSummary describes a space for the admin endpoints.
type SpaceSummary struct {
	ID               uint32               `json:"id"`
	SpaceUUID        string               `json:"space_uuid"`
	Name             string               `json:"name,omitempty"`
	Persist          bool                 `json:"persist"`
	Bounds           quadtree.Rectangle   `json:"bounds"`
	ParticipantCount int                  `json:"participant_count"`
	EntityCount      int                  `json:"entity_count"`
	Participants     []ParticipantSummary `json:"participants"`
}

type ParticipantSummary struct {
	ID          uint32 `json:"id"`
	ClientID    string `json:"client_id"`
	EntityCount int    `json:"entity_count"`
}

func (s *Space) Summary() SpaceSummary {
	participants := s.GetParticipants()
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ID < participants[j].ID
	})

	// Participant entities are added under the entity lock.
	s.mutex.RLock()
	entityCount := len(s.entities)
	participantSummaries := make([]ParticipantSummary, len(participants))
	for i, p := range participants {
		participantSummaries[i] = ParticipantSummary{
			ID:          p.ID,
			ClientID:    p.ClientID,
			EntityCount: p.EntityCount(),
		}
	}
	s.mutex.RUnlock()

	return SpaceSummary{
		ID:               s.ID,
		SpaceUUID:        s.SpaceUUID,
		Name:             s.Name,
		Persist:          s.Persist,
		Bounds:           s.Bounds(),
		ParticipantCount: len(participants),
		EntityCount:      entityCount,
		Participants:     participantSummaries,
	}
}
