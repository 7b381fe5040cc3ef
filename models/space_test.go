package models

import (
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/quadtree"
	"github.com/stretchr/testify/require"
)

func newTestSpace() *Space {
	return NewSpace(1, quadtree.NewRectangle(0, 0, 100, 100), quadtree.Options{
		MaxItems: 4,
		MaxDepth: 3,
	})
}

func TestSpaceParticipants(t *testing.T) {
	s := newTestSpace()
	require.NotEmpty(t, s.SpaceUUID)

	p := &Participant{ID: s.NewParticipantID()}
	s.AddParticipant(p)
	require.Equal(t, 1, s.ParticipantCount())
	require.Equal(t, []*Participant{p}, s.GetParticipants())

	s.RemoveParticipant(p)
	require.Zero(t, s.ParticipantCount())
}

func TestSpacePut(t *testing.T) {
	t.Run("put within bounds", func(t *testing.T) {
		s := newTestSpace()
		p := &Participant{ID: s.NewParticipantID()}

		e, err := s.Put(p, "a", quadtree.NewPoint(10, 10))
		require.NoError(t, err)
		require.Equal(t, uint32(1), e.ID)
		require.Equal(t, p.ID, e.ParticipantID)
		require.Equal(t, 1, s.EntityCount())
		require.Equal(t, 1, p.EntityCount())

		stored, ok := s.EntityByID(e.ID)
		require.True(t, ok)
		require.Same(t, e, stored)
	})

	t.Run("put on the bounds edge", func(t *testing.T) {
		s := newTestSpace()

		_, err := s.Put(nil, "edge", quadtree.NewPoint(100, 100))
		require.NoError(t, err)
	})

	t.Run("put out of bounds", func(t *testing.T) {
		s := newTestSpace()

		e, err := s.Put(nil, "outside", quadtree.NewPoint(101, 10))
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeOutOfBounds))
		require.Nil(t, e)
		require.Zero(t, s.EntityCount())
	})
}

func TestSpaceQuery(t *testing.T) {
	s := newTestSpace()

	var want []uint32
	for i := 0; i < 10; i++ {
		e, err := s.Put(nil, "", quadtree.NewPoint(float64(i*10), float64(i*10)))
		require.NoError(t, err)

		if i < 5 {
			want = append(want, e.ID)
		}
	}

	entities := s.Query(quadtree.NewRectangle(0, 0, 40, 40))
	require.Len(t, entities, len(want))

	var got []uint32
	for _, e := range entities {
		got = append(got, e.ID)
	}
	require.ElementsMatch(t, want, got)

	info := s.DebugInfo()
	require.Equal(t, 10, info.ItemCount)
	require.Greater(t, info.NodeCount, 1)
}

func TestSpaceConcurrentPutAndQuery(t *testing.T) {
	s := newTestSpace()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			for j := 0; j < 50; j++ {
				if _, err := s.Put(nil, "", quadtree.NewPoint(float64(i*10), float64(j))); err != nil {
					t.Error(err)
				}
				s.Query(quadtree.NewRectangle(0, 0, 100, 100))
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 400, s.EntityCount())
	require.Len(t, s.Query(s.Bounds()), 400)
}

func TestSpaceSummary(t *testing.T) {
	s := newTestSpace()
	s.Name = "lobby"
	ted := &Participant{ID: s.NewParticipantID(), ClientID: "ted"}
	s.AddParticipant(ted)
	bob := &Participant{ID: s.NewParticipantID(), ClientID: "bob"}
	s.AddParticipant(bob)

	for i := 0; i < 2; i++ {
		_, err := s.Put(ted, "", quadtree.NewPoint(1, 1))
		require.NoError(t, err)
	}
	_, err := s.Put(nil, "", quadtree.NewPoint(1, 1))
	require.NoError(t, err)

	require.Equal(t, SpaceSummary{
		ID:               1,
		SpaceUUID:        s.SpaceUUID,
		Name:             "lobby",
		Bounds:           quadtree.NewRectangle(0, 0, 100, 100),
		ParticipantCount: 2,
		EntityCount:      3,
		Participants: []ParticipantSummary{
			{ID: ted.ID, ClientID: "ted", EntityCount: 2},
			{ID: bob.ID, ClientID: "bob", EntityCount: 0},
		},
	}, s.Summary())
}
