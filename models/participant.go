package models

// A space participant.
type Participant struct {
	ID       uint32
	ClientID string

	entityIDs map[uint32]struct{}
}

func (p *Participant) AddEntity(e *Entity) {
	if p.entityIDs == nil {
		p.entityIDs = make(map[uint32]struct{})
	}
	p.entityIDs[e.ID] = struct{}{}
}

// EntityCount returns the number of entities the participant put.
func (p *Participant) EntityCount() int {
	return len(p.entityIDs)
}
