package models

import (
	"math"
	"sort"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/quadtree"
)

// SpaceStore keeps track of the spaces hosted by the server.
type SpaceStore struct {
	// The maximum number of spaces. 0 means unlimited.
	MaxSpaces int

	// The options used when a space is created without specifying them.
	DefaultOptions quadtree.Options

	initOnce sync.Once
	mutex    sync.RWMutex
	spaces   map[uint32]*Space
	ids      SequentialIDGenerator
}

func (s *SpaceStore) init() {
	s.spaces = make(map[uint32]*Space)

	if s.DefaultOptions == (quadtree.Options{}) {
		s.DefaultOptions = quadtree.DefaultOptions()
	}
}

// New creates and adds a space covering bounds. Zero maxItems or maxDepth
// fall back to the store default options.
func (s *SpaceStore) New(bounds quadtree.Rectangle, maxItems int, maxDepth uint8) (*Space, error) {
	s.initOnce.Do(s.init)

	if err := validateBounds(bounds); err != nil {
		return nil, err
	}

	options := s.DefaultOptions
	if maxItems > 0 {
		options.MaxItems = maxItems
	}
	if maxDepth > 0 {
		options.MaxDepth = maxDepth
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.MaxSpaces > 0 && len(s.spaces) >= s.MaxSpaces {
		return nil, errors.New("too many spaces").
			WithType(ErrTypeTooManySpaces).
			WithTag("max_spaces", s.MaxSpaces)
	}

	space := NewSpace(s.ids.New(), bounds, options)
	s.spaces[space.ID] = space

	instrumentIncreaseSpaceGauge()
	instrumentCountSpace()
	return space, nil
}

func (s *SpaceStore) Get(id uint32) (*Space, error) {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	space, ok := s.spaces[id]
	if !ok {
		return nil, errors.New("space not found").
			WithType(ErrTypeSpaceNotFound).
			WithTag("space_id", id)
	}
	return space, nil
}

// Join adds a new participant for the given client to the space with the
// given id.
func (s *SpaceStore) Join(id uint32, clientID string) (*Space, *Participant, error) {
	s.initOnce.Do(s.init)

	// Held until the participant is added so that RemoveIfUnused cannot
	// remove the space in between.
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	space, ok := s.spaces[id]
	if !ok {
		return nil, nil, errors.New("space not found").
			WithType(ErrTypeSpaceNotFound).
			WithTag("space_id", id)
	}

	participant := &Participant{
		ID:       space.NewParticipantID(),
		ClientID: clientID,
	}
	space.AddParticipant(participant)
	return space, participant, nil
}

// RemoveIfUnused removes a space that is not persistent and has no
// participants. It reports whether the space was removed. The id of a removed
// space can then be attributed to a new space.
func (s *SpaceStore) RemoveIfUnused(space *Space) bool {
	s.initOnce.Do(s.init)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if space.Persist || space.ParticipantCount() != 0 {
		return false
	}
	return s.remove(space)
}

func (s *SpaceStore) remove(space *Space) bool {
	if current, ok := s.spaces[space.ID]; !ok || current != space {
		return false
	}

	delete(s.spaces, space.ID)
	s.ids.Reuse(space.ID)
	space.close()

	instrumentDecreaseSpaceGauge()
	return true
}

// Spaces returns the hosted spaces sorted by id.
func (s *SpaceStore) Spaces() []*Space {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	spaces := make([]*Space, 0, len(s.spaces))
	for _, space := range s.spaces {
		spaces = append(spaces, space)
	}
	s.mutex.RUnlock()

	sort.Slice(spaces, func(i, j int) bool {
		return spaces[i].ID < spaces[j].ID
	})
	return spaces
}

func (s *SpaceStore) Count() int {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.spaces)
}

// The quadtree accepts any rectangle. Spaces created by clients must at least
// have a finite positive area to be of any use.
func validateBounds(r quadtree.Rectangle) error {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("bounds are not finite").
				WithType(ErrTypeInvalidBounds).
				WithTag("bounds", r.String())
		}
	}

	if r.Width <= 0 || r.Height <= 0 {
		return errors.New("bounds have no area").
			WithType(ErrTypeInvalidBounds).
			WithTag("bounds", r.String())
	}
	return nil
}
