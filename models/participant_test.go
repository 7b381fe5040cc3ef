package models

import (
	"testing"

	"github.com/aukilabs/hagall-spatial/quadtree"
	"github.com/stretchr/testify/require"
)

func TestParticipantAddEntity(t *testing.T) {
	p := Participant{
		ID: 1,
	}
	require.Zero(t, p.EntityCount())

	e := NewEntity(1, p.ID, "", quadtree.NewPoint(1, 1))

	p.AddEntity(e)
	require.Equal(t, 1, p.EntityCount())

	p.AddEntity(e)
	require.Equal(t, 1, p.EntityCount())
}
