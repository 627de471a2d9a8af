package state

import (
	"github.com/google/uuid"
)

// Track is an append-only history of one target's particle states, one per
// time step, with a unique identity.
type Track struct {
	id      string
	history []*ParticleState
}

// NewTrack creates a new Track starting from the given prior state.
func NewTrack(prior *ParticleState) *Track {
	return &Track{
		id:      uuid.NewString(),
		history: []*ParticleState{prior},
	}
}

// ID returns the track identity.
func (t *Track) ID() string {
	return t.id
}

// Append adds a state to the end of the track history.
func (t *Track) Append(s *ParticleState) {
	t.history = append(t.history, s)
}

// Latest returns the most recent state in the track.
func (t *Track) Latest() *ParticleState {
	return t.history[len(t.history)-1]
}

// Len returns the number of states in the track.
func (t *Track) Len() int {
	return len(t.history)
}

// History returns the track states in order.
func (t *Track) History() []*ParticleState {
	history := make([]*ParticleState, len(t.history))
	copy(history, t.history)

	return history
}
